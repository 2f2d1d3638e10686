package handler

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-lobby/internal/lobby"
	"github.com/iliyamo/meeting-lobby/internal/middleware"
	"github.com/iliyamo/meeting-lobby/internal/model"
	"github.com/iliyamo/meeting-lobby/internal/service"
)

const maxUsernameLen = 255

// LobbyHandler serves the participant poll and the moderator lobby
// endpoints.
type LobbyHandler struct {
	lobby        *service.LobbyService
	moderation   *service.ModerationService
	ids          *lobby.Issuer
	cookieName   string
	secureCookie bool
}

// NewLobbyHandler wires the lobby endpoints. secureCookie marks the identity
// cookie Secure and should be set whenever the service is behind HTTPS.
func NewLobbyHandler(ls *service.LobbyService, ms *service.ModerationService, ids *lobby.Issuer, cookieName string, secureCookie bool) *LobbyHandler {
	if ls == nil || ms == nil || ids == nil {
		panic("nil dependency passed to NewLobbyHandler")
	}
	return &LobbyHandler{lobby: ls, moderation: ms, ids: ids, cookieName: cookieName, secureCookie: secureCookie}
}

type requestEntryBody struct {
	Username string `json:"username"`
}

type requestEntryResponse struct {
	Status  model.WaitingStatus `json:"status"`
	LiveKit *model.Credential   `json:"livekit"`
}

// RequestEntry handles POST /v1/rooms/:id/request-entry.  Participants call
// it repeatedly until the status is accepted or denied.  The identity
// cookie is set on every response, including errors, so the next poll is
// recognised as the same participant.
func (h *LobbyHandler) RequestEntry(c echo.Context) error {
	pid, err := h.participantID(c)
	if err != nil {
		return writeError(c, err)
	}
	h.setIdentityCookie(c, pid)

	roomID, err := lobby.ParseRoomID(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	var body requestEntryBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Username)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username is required"})
	}
	if utf8.RuneCountInString(name) > maxUsernameLen {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username is too long"})
	}

	res, err := h.lobby.RequestEntry(c.Request().Context(), service.RequestEntry{
		RoomID:        roomID,
		ParticipantID: pid,
		DisplayName:   name,
		Authenticated: middleware.IsAuthenticated(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, requestEntryResponse{Status: res.Status, LiveKit: res.Credential})
}

// ListWaiting handles GET /v1/rooms/:id/waiting-participants.
func (h *LobbyHandler) ListWaiting(c echo.Context) error {
	roomID, err := lobby.ParseRoomID(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	list, err := h.moderation.ListWaiting(c.Request().Context(), roomID)
	if err != nil {
		return writeError(c, err)
	}
	if list == nil {
		list = []model.WaitingParticipant{}
	}
	return c.JSON(http.StatusOK, echo.Map{"participants": list})
}

type enterBody struct {
	ParticipantID string `json:"participant_id"`
	AllowEntry    *bool  `json:"allow_entry"`
}

// Enter handles POST /v1/rooms/:id/enter, the moderator's admit or deny.
func (h *LobbyHandler) Enter(c echo.Context) error {
	roomID, err := lobby.ParseRoomID(c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	var body enterBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ParticipantID == "" || body.AllowEntry == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "participant_id and allow_entry are required"})
	}
	if _, err := h.moderation.HandleEntry(c.Request().Context(), roomID, body.ParticipantID, *body.AllowEntry); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "participant was updated"})
}

// participantID returns the caller's identity from the cookie, minting a
// fresh one when it is missing or malformed.
func (h *LobbyHandler) participantID(c echo.Context) (string, error) {
	presented := ""
	if ck, err := c.Cookie(h.cookieName); err == nil {
		presented = ck.Value
	}
	pid, _, err := h.ids.Resolve(presented)
	return pid, err
}

func (h *LobbyHandler) setIdentityCookie(c echo.Context, pid string) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    pid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
