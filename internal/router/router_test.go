package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/meeting-lobby/internal/clock"
	"github.com/iliyamo/meeting-lobby/internal/config"
	"github.com/iliyamo/meeting-lobby/internal/handler"
	"github.com/iliyamo/meeting-lobby/internal/livekit"
	"github.com/iliyamo/meeting-lobby/internal/lobby"
	"github.com/iliyamo/meeting-lobby/internal/model"
	"github.com/iliyamo/meeting-lobby/internal/repository"
	"github.com/iliyamo/meeting-lobby/internal/service"
	"github.com/iliyamo/meeting-lobby/internal/store"
)

const (
	jwtSecret      = "router-test-secret"
	cookieName     = "test-lobby-cookie"
	restrictedRoom = "3f8a2c10-6b4d-4e1f-9a7c-5d2e8b0c1f22"
	publicRoom     = "7c1d4e92-0a3b-4c5d-8e6f-1a2b3c4d5e66"
	moderatorID    = "mod-1"
	adminID        = "admin-1"
)

type fakeRooms map[string]model.AccessLevel

func (f fakeRooms) GetByID(_ context.Context, id string) (*model.Room, error) {
	lvl, ok := f[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &model.Room{ID: id, AccessLevel: lvl}, nil
}

type fakeRoles map[string]model.RoomRole

func (f fakeRoles) GetRole(_ context.Context, _ string, userID string) (model.RoomRole, error) {
	role, ok := f[userID]
	if !ok {
		return "", repository.ErrNoAccess
	}
	return role, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Publish(_ context.Context, roomID string, msg model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, roomID+":"+msg.Type)
	return nil
}

type fakeMedia struct {
	removeErr error
	removed   []string
}

func (m *fakeMedia) MutePublishedTrack(context.Context, string, string, string, bool) error {
	return nil
}

func (m *fakeMedia) RemoveParticipant(_ context.Context, room, identity string) error {
	m.removed = append(m.removed, room+"/"+identity)
	return m.removeErr
}

func (m *fakeMedia) UpdateParticipant(context.Context, string, string, model.ParticipantUpdate) error {
	return nil
}

type testServer struct {
	e        *echo.Echo
	notifier *recordingNotifier
	media    *fakeMedia
	engine   *lobby.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clk := clock.NewManual(time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC))
	engine := lobby.NewEngine(store.NewMemory(clk), clk,
		lobby.WithKeyPrefix("router-lobby"),
		lobby.WithTTLs(60*time.Second, 60*time.Second, 60*time.Second),
	)
	creds := livekit.NewCredentialIssuer(config.LiveKitConfig{
		URL: "wss://media.test", APIKey: "devkey", APISecret: "devsecret", TokenTTL: time.Hour,
	})
	notifier := &recordingNotifier{}
	media := &fakeMedia{}
	rooms := fakeRooms{restrictedRoom: model.AccessRestricted, publicRoom: model.AccessPublic}

	lh := handler.NewLobbyHandler(
		service.NewLobbyService(rooms, engine, creds, notifier, "participantWaiting"),
		service.NewModerationService(engine),
		lobby.NewIssuer(),
		cookieName,
		false,
	)
	ph := handler.NewParticipantsHandler(service.NewParticipantsService(engine, media))

	e := echo.New()
	RegisterRoutes(e, handler.NewHealthHandler(map[string]handler.Check{
		"store": func(context.Context) error { return nil },
	}))
	roles := fakeRoles{
		moderatorID: model.RoleOwner,
		adminID:     model.RoleAdministrator,
		"member-1":  model.RoleMember,
	}
	RegisterLobby(e, lh, ph, LobbyRoutes{
		JWTSecret: jwtSecret,
		Roles:     roles,
	})
	return &testServer{e: e, notifier: notifier, media: media, engine: engine}
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()})
	s, err := tok.SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + s
}

type call struct {
	method string
	path   string
	body   string
	cookie string
	auth   string
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if c.body != "" {
		req = httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(c.method, c.path, nil)
	}
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: c.cookie})
	}
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func identityCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == cookieName {
			return ck
		}
	}
	t.Fatalf("response carries no %s cookie", cookieName)
	return nil
}

type entryResponse struct {
	Status  string            `json:"status"`
	LiveKit *model.Credential `json:"livekit"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestPublicRoomJoinsDirectly(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, call{method: http.MethodPost, path: "/v1/rooms/" + publicRoom + "/request-entry", body: `{"username":"Alice"}`})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[entryResponse](t, rec)
	if resp.Status != "accepted" || resp.LiveKit == nil || resp.LiveKit.Token == "" {
		t.Fatalf("expected accepted with credential, got %+v", resp)
	}
	if len(s.notifier.sent) != 0 {
		t.Fatalf("public room must not notify, got %v", s.notifier.sent)
	}
}

func TestWaitAdmitJoinFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	base := "/v1/rooms/" + restrictedRoom

	rec := s.do(t, call{method: http.MethodPost, path: base + "/request-entry", body: `{"username":"Alice"}`})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"livekit":null`) {
		t.Fatalf("waiting response must carry a null credential, got %s", rec.Body.String())
	}
	ck := identityCookie(t, rec)
	if !ck.HttpOnly || ck.Path != "/" || ck.SameSite != http.SameSiteLaxMode || !lobby.ValidParticipantID(ck.Value) {
		t.Fatalf("unexpected identity cookie %+v", ck)
	}
	pid := ck.Value
	if got := s.notifier.sent; len(got) != 1 || got[0] != restrictedRoom+":participantWaiting" {
		t.Fatalf("expected one moderator notification, got %v", got)
	}

	// Polling again with the cookie keeps the identity and does not re-notify.
	rec = s.do(t, call{method: http.MethodPost, path: base + "/request-entry", body: `{"username":"Alice"}`, cookie: pid})
	if identityCookie(t, rec).Value != pid || decode[entryResponse](t, rec).Status != "waiting" {
		t.Fatalf("expected same participant still waiting, got %s", rec.Body.String())
	}
	if len(s.notifier.sent) != 1 {
		t.Fatalf("expected no second notification, got %v", s.notifier.sent)
	}

	rec = s.do(t, call{method: http.MethodGet, path: base + "/waiting-participants", auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	list := decode[struct {
		Participants []model.WaitingParticipant `json:"participants"`
	}](t, rec)
	if len(list.Participants) != 1 || list.Participants[0].ParticipantID != pid || list.Participants[0].DisplayName != "Alice" {
		t.Fatalf("unexpected waiting list %+v", list.Participants)
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/enter", body: `{"participant_id":"` + pid + `","allow_entry":true}`, auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("enter: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/request-entry", body: `{"username":"Alice"}`, cookie: pid})
	resp := decode[entryResponse](t, rec)
	if resp.Status != "accepted" || resp.LiveKit == nil || resp.LiveKit.Room != restrictedRoom {
		t.Fatalf("expected credential after admission, got %+v", resp)
	}

	rec = s.do(t, call{method: http.MethodGet, path: base + "/waiting-participants", auth: bearer(t, moderatorID)})
	if strings.TrimSpace(rec.Body.String()) != `{"participants":[]}` {
		t.Fatalf("expected empty waiting list, got %s", rec.Body.String())
	}
}

func TestWaitDenyFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	base := "/v1/rooms/" + restrictedRoom

	rec := s.do(t, call{method: http.MethodPost, path: base + "/request-entry", body: `{"username":"Bob"}`})
	pid := identityCookie(t, rec).Value

	rec = s.do(t, call{method: http.MethodPost, path: base + "/enter", body: `{"participant_id":"` + pid + `","allow_entry":false}`, auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("deny: expected 200, got %d", rec.Code)
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/request-entry", body: `{"username":"Bob"}`, cookie: pid})
	resp := decode[entryResponse](t, rec)
	if resp.Status != "denied" || resp.LiveKit != nil {
		t.Fatalf("expected denied without credential, got %+v", resp)
	}

	// A second decision on a decided participant is a 404.
	rec = s.do(t, call{method: http.MethodPost, path: base + "/enter", body: `{"participant_id":"` + pid + `","allow_entry":true}`, auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for decided participant, got %d", rec.Code)
	}
}

func TestRequestEntryReplacesMalformedCookie(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	rec := s.do(t, call{
		method: http.MethodPost,
		path:   "/v1/rooms/" + restrictedRoom + "/request-entry",
		body:   `{"username":"Eve"}`,
		cookie: "x_" + restrictedRoom + "_*",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if pid := identityCookie(t, rec).Value; !lobby.ValidParticipantID(pid) {
		t.Fatalf("expected a freshly minted id, got %q", pid)
	}
}

func TestRequestEntryErrorsStillSetCookie(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown room", "/v1/rooms/00000000-0000-4000-8000-000000000000/request-entry", `{"username":"Alice"}`, http.StatusNotFound},
		{"malformed room", "/v1/rooms/not-a-room/request-entry", `{"username":"Alice"}`, http.StatusNotFound},
		{"missing username", "/v1/rooms/" + restrictedRoom + "/request-entry", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, call{method: http.MethodPost, path: tc.path, body: tc.body})
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			identityCookie(t, rec)
		})
	}
}

func TestModeratorRoutesRequireRole(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	path := "/v1/rooms/" + restrictedRoom + "/waiting-participants"

	if rec := s.do(t, call{method: http.MethodGet, path: path}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := s.do(t, call{method: http.MethodGet, path: path, auth: bearer(t, "member-1")}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", rec.Code)
	}
	if rec := s.do(t, call{method: http.MethodGet, path: path, auth: bearer(t, "stranger")}); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for stranger, got %d", rec.Code)
	}
}

func TestRemoveParticipantFlow(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	base := "/v1/rooms/" + restrictedRoom

	rec := s.do(t, call{method: http.MethodPost, path: base + "/request-entry", body: `{"username":"Alice"}`})
	pid := identityCookie(t, rec).Value
	s.do(t, call{method: http.MethodPost, path: base + "/enter", body: `{"participant_id":"` + pid + `","allow_entry":true}`, auth: bearer(t, moderatorID)})

	rec = s.do(t, call{method: http.MethodPost, path: base + "/remove-participant", body: `{"participant_identity":"` + pid + `"}`, auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(s.media.removed) != 1 {
		t.Fatalf("expected media server removal, got %v", s.media.removed)
	}
	if _, err := s.engine.Get(context.Background(), restrictedRoom, pid); !errors.Is(err, lobby.ErrParticipantNotFound) {
		t.Fatalf("expected lobby record cleared, got %v", err)
	}

	// The removed participant goes back to the lobby on the next poll.
	rec = s.do(t, call{method: http.MethodPost, path: base + "/request-entry", body: `{"username":"Alice"}`, cookie: pid})
	if decode[entryResponse](t, rec).Status != "waiting" {
		t.Fatalf("expected waiting after removal, got %s", rec.Body.String())
	}
}

func TestTwoModeratorsAdmitThenRemove(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	base := "/v1/rooms/" + restrictedRoom

	rec := s.do(t, call{method: http.MethodPost, path: base + "/request-entry", body: `{"username":"Alice"}`})
	pid := identityCookie(t, rec).Value

	for _, mod := range []string{moderatorID, adminID} {
		rec = s.do(t, call{method: http.MethodGet, path: base + "/waiting-participants", auth: bearer(t, mod)})
		if rec.Code != http.StatusOK {
			t.Fatalf("%s list: expected 200, got %d", mod, rec.Code)
		}
		list := decode[struct {
			Participants []model.WaitingParticipant `json:"participants"`
		}](t, rec)
		if len(list.Participants) != 1 || list.Participants[0].ParticipantID != pid {
			t.Fatalf("%s: expected the same waiting participant, got %+v", mod, list.Participants)
		}
	}

	rec = s.do(t, call{method: http.MethodPost, path: base + "/enter", body: `{"participant_id":"` + pid + `","allow_entry":true}`, auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("admit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, call{method: http.MethodPost, path: base + "/remove-participant", body: `{"participant_identity":"` + pid + `"}`, auth: bearer(t, adminID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, err := s.engine.Get(context.Background(), restrictedRoom, pid); !errors.Is(err, lobby.ErrParticipantNotFound) {
		t.Fatalf("expected lobby record gone, got %v", err)
	}
	if len(s.media.removed) != 1 {
		t.Fatalf("expected exactly one media removal, got %v", s.media.removed)
	}
}

func TestParticipantRoutesUseCanonicalRoomName(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	upper := strings.ToUpper(restrictedRoom)
	rec := s.do(t, call{method: http.MethodPost, path: "/v1/rooms/" + upper + "/remove-participant", body: `{"participant_identity":"p1"}`, auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, call{method: http.MethodPost, path: "/v1/rooms/not-a-room/remove-participant", body: `{"participant_identity":"p2"}`, auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	want := []string{restrictedRoom + "/p1", "not-a-room/p2"}
	if len(s.media.removed) != len(want) || s.media.removed[0] != want[0] || s.media.removed[1] != want[1] {
		t.Fatalf("expected media calls %v, got %v", want, s.media.removed)
	}
}

func TestParticipantManagementErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("livekit RemoveParticipant: %w: participant not found", livekit.ErrNotFound), http.StatusNotFound},
		{"upstream", livekit.ErrUpstream, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t)
			s.media.removeErr = tc.err
			rec := s.do(t, call{
				method: http.MethodPost,
				path:   "/v1/rooms/" + restrictedRoom + "/remove-participant",
				body:   `{"participant_identity":"someone"}`,
				auth:   bearer(t, moderatorID),
			})
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
		})
	}
}

func TestParticipantRequestValidation(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	base := "/v1/rooms/" + restrictedRoom

	cases := []struct {
		path string
		body string
	}{
		{base + "/mute-participant", `{"participant_identity":"p1"}`},
		{base + "/remove-participant", `{}`},
		{base + "/update-participant", `{"participant_identity":"p1"}`},
		{base + "/enter", `{"participant_id":"p1"}`},
	}
	for _, tc := range cases {
		rec := s.do(t, call{method: http.MethodPost, path: tc.path, body: tc.body, auth: bearer(t, moderatorID)})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.path, rec.Code)
		}
	}

	rec := s.do(t, call{method: http.MethodPost, path: base + "/update-participant", body: `{"participant_identity":"p1","name":"Bob"}`, auth: bearer(t, moderatorID)})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
}

func TestHealthRoutes(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)

	if rec := s.do(t, call{method: http.MethodGet, path: "/healthz"}); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz %d %q", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, call{method: http.MethodGet, path: "/readyz"}); rec.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d", rec.Code)
	}
}
