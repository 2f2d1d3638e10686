package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/meeting-lobby/internal/lobby"
	"github.com/iliyamo/meeting-lobby/internal/repository"
	"github.com/iliyamo/meeting-lobby/internal/service"
)

// writeError maps domain errors to HTTP responses. Unknown errors are
// logged and answered with 500 without leaking details.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, lobby.ErrParticipantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "participant not found"})
	case errors.Is(err, repository.ErrRoomNotFound), errors.Is(err, lobby.ErrInvalidRoomID):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
	case errors.Is(err, service.ErrManagementNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "participant not found in room"})
	case errors.Is(err, service.ErrManagementUpstream):
		log.Error().Err(err).Str("module", "handler").Msg("media server call failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "media server error"})
	case errors.Is(err, service.ErrCredential):
		log.Error().Err(err).Str("module", "handler").Msg("credential issuance failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue credentials"})
	}
	log.Error().Err(err).Str("module", "handler").Str("route", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
