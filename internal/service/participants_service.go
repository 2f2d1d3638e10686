package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/meeting-lobby/internal/livekit"
	"github.com/iliyamo/meeting-lobby/internal/lobby"
	"github.com/iliyamo/meeting-lobby/internal/model"
)

// MediaServer is the participant management API of the media server.
// Errors wrap livekit.ErrNotFound or livekit.ErrUpstream.
type MediaServer interface {
	MutePublishedTrack(ctx context.Context, room, identity, trackSID string, muted bool) error
	RemoveParticipant(ctx context.Context, room, identity string) error
	UpdateParticipant(ctx context.Context, room, identity string, upd model.ParticipantUpdate) error
}

// ParticipantsService manages participants already connected to a room.
type ParticipantsService struct {
	engine LobbyEngine
	media  MediaServer
}

func NewParticipantsService(engine LobbyEngine, media MediaServer) *ParticipantsService {
	return &ParticipantsService{engine: engine, media: media}
}

// Mute mutes one published track.
func (s *ParticipantsService) Mute(ctx context.Context, roomID, identity, trackSID string) error {
	return managementError("mute participant", s.media.MutePublishedTrack(ctx, roomID, identity, trackSID, true))
}

// Remove clears the participant's lobby record and disconnects them. The
// lobby cleanup is best effort: its failures are logged and never stop the
// disconnect, so a removed participant cannot reuse an accepted record to
// rejoin while the media call goes through regardless.
func (s *ParticipantsService) Remove(ctx context.Context, roomID, identity string) error {
	if err := s.engine.ClearParticipant(ctx, roomID, identity); err != nil {
		ev := log.Error()
		if errors.Is(err, lobby.ErrInvalidRoomID) {
			ev = log.Warn()
		}
		ev.Err(err).Str("module", "participants").Str("room", roomID).Str("participant", identity).Msg("lobby cleanup failed")
	}
	return managementError("remove participant", s.media.RemoveParticipant(ctx, roomID, identity))
}

// Update changes metadata, attributes, permissions or name.
func (s *ParticipantsService) Update(ctx context.Context, roomID, identity string, upd model.ParticipantUpdate) error {
	return managementError("update participant", s.media.UpdateParticipant(ctx, roomID, identity, upd))
}

func managementError(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := ErrManagementUpstream
	if errors.Is(err, livekit.ErrNotFound) {
		kind = ErrManagementNotFound
	}
	return &ManagementError{Op: op, Kind: kind, Err: err}
}
