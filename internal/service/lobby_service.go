package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/meeting-lobby/internal/model"
)

// RoomFinder loads a room's admission policy.
type RoomFinder interface {
	GetByID(ctx context.Context, id string) (*model.Room, error)
}

// CredentialIssuer produces media credentials for admitted participants.
type CredentialIssuer interface {
	Issue(ctx context.Context, roomID, participantID, displayName string) (model.Credential, error)
}

// Notifier delivers a notification to a room's moderators.
type Notifier interface {
	Publish(ctx context.Context, roomID string, n model.Notification) error
}

// LobbyEngine is the subset of lobby.Engine the services use.
type LobbyEngine interface {
	GetOrCreateWaiting(ctx context.Context, roomID, participantID, displayName string) (model.WaitingParticipant, bool, error)
	RefreshWaiting(ctx context.Context, rec model.WaitingParticipant) error
	Decide(ctx context.Context, roomID, participantID string, accept bool) (model.WaitingParticipant, error)
	ListWaiting(ctx context.Context, roomID string) ([]model.WaitingParticipant, error)
	ClearParticipant(ctx context.Context, rawRoomID, participantID string) error
}

// RequestEntry is one participant poll.
type RequestEntry struct {
	RoomID        string
	ParticipantID string
	DisplayName   string
	// Authenticated is true when the caller presented a valid user token.
	Authenticated bool
}

// RequestEntryResult is what the participant learns from a poll. Credential
// is set only when Status is accepted.
type RequestEntryResult struct {
	ParticipantID string
	Status        model.WaitingStatus
	Credential    *model.Credential
}

// LobbyService orchestrates the participant side of the lobby.
type LobbyService struct {
	rooms            RoomFinder
	engine           LobbyEngine
	credentials      CredentialIssuer
	notifier         Notifier
	notificationType string
}

func NewLobbyService(rooms RoomFinder, engine LobbyEngine, credentials CredentialIssuer, notifier Notifier, notificationType string) *LobbyService {
	return &LobbyService{
		rooms:            rooms,
		engine:           engine,
		credentials:      credentials,
		notifier:         notifier,
		notificationType: notificationType,
	}
}

// RequestEntry handles one poll. Rooms that admit the caller directly skip
// the lobby store entirely. Otherwise the first poll parks the participant
// and notifies moderators once; later polls report the current status and
// only an accepted poll yields a credential.
func (s *LobbyService) RequestEntry(ctx context.Context, req RequestEntry) (RequestEntryResult, error) {
	res := RequestEntryResult{ParticipantID: req.ParticipantID}

	room, err := s.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		return res, err
	}
	if room.BypassesLobby(req.Authenticated) {
		return s.accept(ctx, res, req)
	}

	rec, created, err := s.engine.GetOrCreateWaiting(ctx, req.RoomID, req.ParticipantID, req.DisplayName)
	if err != nil {
		return res, err
	}

	switch rec.Status {
	case model.StatusAccepted:
		return s.accept(ctx, res, req)
	case model.StatusDenied:
		res.Status = model.StatusDenied
		return res, nil
	}

	res.Status = model.StatusWaiting
	if created {
		// The record stays in place when the notification fails; moderators
		// still see the participant in the waiting list.
		if err := s.notifier.Publish(ctx, req.RoomID, model.Notification{Type: s.notificationType}); err != nil {
			return res, fmt.Errorf("notify moderators: %w", err)
		}
		log.Info().Str("module", "lobby").Str("room", req.RoomID).Str("participant", req.ParticipantID).Msg("participant waiting")
		return res, nil
	}
	if err := s.engine.RefreshWaiting(ctx, rec); err != nil {
		return res, err
	}
	return res, nil
}

func (s *LobbyService) accept(ctx context.Context, res RequestEntryResult, req RequestEntry) (RequestEntryResult, error) {
	cred, err := s.credentials.Issue(ctx, req.RoomID, req.ParticipantID, req.DisplayName)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrCredential, err)
	}
	res.Status = model.StatusAccepted
	res.Credential = &cred
	return res, nil
}
