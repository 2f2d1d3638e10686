package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/meeting-lobby/internal/model"
	"github.com/iliyamo/meeting-lobby/internal/repository"
)

// RoleFinder looks up a user's role on a room.
type RoleFinder interface {
	GetRole(ctx context.Context, roomID, userID string) (model.RoomRole, error)
}

// RequireRoomModerator aborts with 403 unless the authenticated user is an
// owner or administrator of the room named by the ":id" path parameter. It
// must run after JWTAuth.
func RequireRoomModerator(roles RoleFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := UserID(c)
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			role, err := roles.GetRole(c.Request().Context(), c.Param("id"), uid)
			switch {
			case errors.Is(err, repository.ErrNoAccess):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			case err != nil:
				log.Error().Err(err).Str("module", "auth").Str("room", c.Param("id")).Msg("role lookup failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if !role.IsModerator() {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
