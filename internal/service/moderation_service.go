package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/meeting-lobby/internal/model"
)

// ModerationService applies moderator decisions to the lobby.
type ModerationService struct {
	engine LobbyEngine
}

func NewModerationService(engine LobbyEngine) *ModerationService {
	return &ModerationService{engine: engine}
}

// Admit accepts a waiting participant.
func (s *ModerationService) Admit(ctx context.Context, roomID, participantID string) (model.WaitingParticipant, error) {
	return s.HandleEntry(ctx, roomID, participantID, true)
}

// Deny refuses a waiting participant.
func (s *ModerationService) Deny(ctx context.Context, roomID, participantID string) (model.WaitingParticipant, error) {
	return s.HandleEntry(ctx, roomID, participantID, false)
}

// HandleEntry records the decision for a waiting participant. It fails with
// lobby.ErrParticipantNotFound when the participant is not waiting, which
// includes expired and already decided records.
func (s *ModerationService) HandleEntry(ctx context.Context, roomID, participantID string, allow bool) (model.WaitingParticipant, error) {
	rec, err := s.engine.Decide(ctx, roomID, participantID, allow)
	if err != nil {
		return rec, err
	}
	log.Info().
		Str("module", "moderation").
		Str("room", roomID).
		Str("participant", participantID).
		Str("status", string(rec.Status)).
		Msg("lobby decision")
	return rec, nil
}

// ListWaiting returns the room's waiting participants, oldest first.
func (s *ModerationService) ListWaiting(ctx context.Context, roomID string) ([]model.WaitingParticipant, error) {
	return s.engine.ListWaiting(ctx, roomID)
}
