package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-lobby/internal/handler"
	"github.com/iliyamo/meeting-lobby/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication:
// liveness and readiness probes.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
	e.GET("/readyz", h.Ready)
}

// LobbyRoutes carries what the lobby and participant routes need besides
// their handlers.
type LobbyRoutes struct {
	JWTSecret string
	Roles     middleware.RoleFinder
	// Limiter guards the participant poll; nil disables rate limiting.
	Limiter echo.MiddlewareFunc
}

// RegisterLobby registers the participant poll and the moderator endpoints
// under /v1/rooms/:id.  Participants may be guests, so request-entry only
// reads a bearer token when one is sent.  Every other route requires a
// room owner or administrator.
func RegisterLobby(e *echo.Echo, l *handler.LobbyHandler, p *handler.ParticipantsHandler, cfg LobbyRoutes) {
	entry := []echo.MiddlewareFunc{middleware.OptionalJWT(cfg.JWTSecret)}
	if cfg.Limiter != nil {
		entry = append(entry, cfg.Limiter)
	}
	e.POST("/v1/rooms/:id/request-entry", l.RequestEntry, entry...)

	g := e.Group(
		"/v1/rooms/:id",
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRoomModerator(cfg.Roles),
	)

	// ---- Lobby ----
	g.GET("/waiting-participants", l.ListWaiting)
	g.POST("/enter", l.Enter)

	// ---- Connected participants ----
	g.POST("/mute-participant", p.Mute)
	g.POST("/remove-participant", p.Remove)
	g.POST("/update-participant", p.Update)
}
