package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-lobby/internal/lobby"
	"github.com/iliyamo/meeting-lobby/internal/model"
	"github.com/iliyamo/meeting-lobby/internal/service"
)

// ParticipantsHandler exposes moderator actions on connected participants.
type ParticipantsHandler struct {
	svc *service.ParticipantsService
}

func NewParticipantsHandler(svc *service.ParticipantsService) *ParticipantsHandler {
	if svc == nil {
		panic("nil service passed to NewParticipantsHandler")
	}
	return &ParticipantsHandler{svc: svc}
}

// roomName returns the canonical form of the path's room id, which is the
// name the room was created under on the media server. Ids that do not parse
// are passed on as given.
func roomName(c echo.Context) string {
	raw := c.Param("id")
	if id, err := lobby.ParseRoomID(raw); err == nil {
		return id
	}
	return raw
}

type muteBody struct {
	Identity string `json:"participant_identity"`
	TrackSID string `json:"track_sid"`
}

// Mute handles POST /v1/rooms/:id/mute-participant.
func (h *ParticipantsHandler) Mute(c echo.Context) error {
	var body muteBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Identity == "" || body.TrackSID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "participant_identity and track_sid are required"})
	}
	if err := h.svc.Mute(c.Request().Context(), roomName(c), body.Identity, body.TrackSID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "participant was muted"})
}

type removeBody struct {
	Identity string `json:"participant_identity"`
}

// Remove handles POST /v1/rooms/:id/remove-participant.  A malformed room id
// only skips the lobby cleanup.
func (h *ParticipantsHandler) Remove(c echo.Context) error {
	var body removeBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Identity == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "participant_identity is required"})
	}
	if err := h.svc.Remove(c.Request().Context(), roomName(c), body.Identity); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "participant was removed"})
}

type updateBody struct {
	Identity   string                       `json:"participant_identity"`
	Metadata   map[string]any               `json:"metadata"`
	Attributes map[string]string            `json:"attributes"`
	Permission *model.ParticipantPermission `json:"permission"`
	Name       string                       `json:"name"`
}

// Update handles POST /v1/rooms/:id/update-participant.  At least one of
// metadata, attributes, permission or name must be given.
func (h *ParticipantsHandler) Update(c echo.Context) error {
	var body updateBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Identity == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "participant_identity is required"})
	}
	if body.Metadata == nil && body.Attributes == nil && body.Permission == nil && body.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	upd := model.ParticipantUpdate{
		Metadata:   body.Metadata,
		Attributes: body.Attributes,
		Permission: body.Permission,
		Name:       body.Name,
	}
	if err := h.svc.Update(c.Request().Context(), roomName(c), body.Identity, upd); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "participant was updated"})
}
