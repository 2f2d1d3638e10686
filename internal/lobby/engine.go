// Package lobby implements the waiting room: one record per (room,
// participant) in a shared expiring store, moving from waiting to accepted
// or denied, and disappearing when its TTL runs out.
package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/meeting-lobby/internal/clock"
	"github.com/iliyamo/meeting-lobby/internal/model"
	"github.com/iliyamo/meeting-lobby/internal/store"
)

const (
	defaultKeyPrefix   = "room_lobby"
	defaultWaitingTTL  = 3 * time.Second
	defaultAcceptedTTL = 6 * time.Hour
	defaultDeniedTTL   = 5 * time.Second
)

// Engine owns every write to lobby records. It holds no state of its own:
// all instances of the service share records through the store, and the
// only atomicity relied upon is the store's single-key atomicity.
type Engine struct {
	store       store.Store
	clock       clock.Clock
	prefix      string
	waitingTTL  time.Duration
	acceptedTTL time.Duration
	deniedTTL   time.Duration
}

// Option customizes an Engine.
type Option func(*Engine)

// WithKeyPrefix namespaces the engine's cache keys.
func WithKeyPrefix(p string) Option {
	return func(e *Engine) {
		if p != "" {
			e.prefix = p
		}
	}
}

// WithTTLs overrides the lifetime of records in each status. Non-positive
// values keep the default.
func WithTTLs(waiting, accepted, denied time.Duration) Option {
	return func(e *Engine) {
		if waiting > 0 {
			e.waitingTTL = waiting
		}
		if accepted > 0 {
			e.acceptedTTL = accepted
		}
		if denied > 0 {
			e.deniedTTL = denied
		}
	}
}

// NewEngine builds an Engine persisting through st.
func NewEngine(st store.Store, clk clock.Clock, opts ...Option) *Engine {
	e := &Engine{
		store:       st,
		clock:       clk,
		prefix:      defaultKeyPrefix,
		waitingTTL:  defaultWaitingTTL,
		acceptedTTL: defaultAcceptedTTL,
		deniedTTL:   defaultDeniedTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ttlFor returns the storage TTL matching a status.
func (e *Engine) ttlFor(s model.WaitingStatus) time.Duration {
	switch s {
	case model.StatusAccepted:
		return e.acceptedTTL
	case model.StatusDenied:
		return e.deniedTTL
	default:
		return e.waitingTTL
	}
}

// GetOrCreateWaiting returns the participant's record, creating a waiting
// one when none exists. created is true only for the call that wrote the
// record, which makes it safe to drive one-shot side effects such as
// notifying moderators.
func (e *Engine) GetOrCreateWaiting(ctx context.Context, roomID, participantID, displayName string) (model.WaitingParticipant, bool, error) {
	rec, err := e.Get(ctx, roomID, participantID)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, ErrParticipantNotFound) {
		return model.WaitingParticipant{}, false, err
	}

	// The record that beat our add can expire before we read it back; the
	// second add then goes through.
	for attempt := 0; attempt < 2; attempt++ {
		rec, added, err := e.create(ctx, roomID, participantID, displayName)
		if err != nil {
			return model.WaitingParticipant{}, false, err
		}
		if added {
			return rec, true, nil
		}
		// Another poll from the same participant created it first.
		existing, err := e.Get(ctx, roomID, participantID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrParticipantNotFound) {
			return model.WaitingParticipant{}, false, err
		}
	}
	return model.WaitingParticipant{}, false, fmt.Errorf("create lobby record: lost the race twice for %s", participantID)
}

func (e *Engine) create(ctx context.Context, roomID, participantID, displayName string) (model.WaitingParticipant, bool, error) {
	rec := model.WaitingParticipant{
		RoomID:        roomID,
		ParticipantID: participantID,
		DisplayName:   displayName,
		Status:        model.StatusWaiting,
		CreatedAt:     e.clock.Now(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return model.WaitingParticipant{}, false, fmt.Errorf("encode lobby record: %w", err)
	}
	key := participantKey(e.prefix, roomID, participantID)
	added, err := e.store.Add(ctx, key, payload, e.waitingTTL)
	if err != nil {
		return model.WaitingParticipant{}, false, fmt.Errorf("create lobby record: %w", err)
	}
	return rec, added, nil
}

// Get returns the participant's record or ErrParticipantNotFound.
func (e *Engine) Get(ctx context.Context, roomID, participantID string) (model.WaitingParticipant, error) {
	bs, err := e.store.Get(ctx, participantKey(e.prefix, roomID, participantID))
	if errors.Is(err, store.ErrNotFound) {
		return model.WaitingParticipant{}, ErrParticipantNotFound
	}
	if err != nil {
		return model.WaitingParticipant{}, fmt.Errorf("load lobby record: %w", err)
	}
	var rec model.WaitingParticipant
	if err := json.Unmarshal(bs, &rec); err != nil {
		return model.WaitingParticipant{}, fmt.Errorf("decode lobby record: %w", err)
	}
	return rec, nil
}

// RefreshWaiting re-arms the waiting TTL of a record that is still waiting,
// so a participant who keeps polling stays in the lobby and one who leaves
// drops out on their own. Only the expiry is touched, and only while the
// stored record is still waiting: a decision written after rec was read is
// never overwritten.
func (e *Engine) RefreshWaiting(ctx context.Context, rec model.WaitingParticipant) error {
	if rec.Status != model.StatusWaiting {
		return nil
	}
	key := participantKey(e.prefix, rec.RoomID, rec.ParticipantID)
	if _, err := e.store.TouchIf(ctx, key, "status", string(model.StatusWaiting), e.waitingTTL); err != nil {
		return fmt.Errorf("refresh lobby record: %w", err)
	}
	return nil
}

// Decide moves a waiting participant to accepted or denied and re-arms the
// TTL for the new status.
//
// The read and the write are separate store calls. Two moderators deciding
// on the same participant at the same time both succeed and the last write
// wins; neither sees an error.
// TODO: guard the write with a WATCH on the record key once the store
// exposes a conditional set.
func (e *Engine) Decide(ctx context.Context, roomID, participantID string, accept bool) (model.WaitingParticipant, error) {
	rec, err := e.Get(ctx, roomID, participantID)
	if err != nil {
		return model.WaitingParticipant{}, err
	}
	if rec.Status != model.StatusWaiting {
		return model.WaitingParticipant{}, ErrParticipantNotFound
	}

	now := e.clock.Now()
	rec.Status = model.StatusDenied
	if accept {
		rec.Status = model.StatusAccepted
	}
	rec.DecidedAt = &now

	if err := e.put(ctx, rec); err != nil {
		return model.WaitingParticipant{}, err
	}
	return rec, nil
}

// ListWaiting returns the room's waiting participants, oldest request first.
// Every call rescans the store; records that expire between the scan and the
// read are skipped.
func (e *Engine) ListWaiting(ctx context.Context, roomID string) ([]model.WaitingParticipant, error) {
	keys, err := e.store.Scan(ctx, roomPrefix(e.prefix, roomID))
	if err != nil {
		return nil, fmt.Errorf("scan lobby records: %w", err)
	}

	out := make([]model.WaitingParticipant, 0, len(keys))
	for _, key := range keys {
		bs, err := e.store.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load lobby record: %w", err)
		}
		var rec model.WaitingParticipant
		if err := json.Unmarshal(bs, &rec); err != nil {
			log.Warn().Err(err).Str("module", "lobby").Str("key", key).Msg("skipping undecodable lobby record")
			continue
		}
		if rec.Status != model.StatusWaiting || rec.RoomID != roomID {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ParticipantID < out[j].ParticipantID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Remove deletes the participant's record. Removing an absent record is not
// an error.
func (e *Engine) Remove(ctx context.Context, roomID, participantID string) error {
	if err := e.store.Delete(ctx, participantKey(e.prefix, roomID, participantID)); err != nil {
		return fmt.Errorf("delete lobby record: %w", err)
	}
	return nil
}

// ClearParticipant removes a record addressed by an unvalidated room id,
// such as a media-server room name. It returns ErrInvalidRoomID without
// touching the store when the id is not a UUID.
func (e *Engine) ClearParticipant(ctx context.Context, rawRoomID, participantID string) error {
	roomID, err := ParseRoomID(rawRoomID)
	if err != nil {
		return err
	}
	return e.Remove(ctx, roomID, participantID)
}

func (e *Engine) put(ctx context.Context, rec model.WaitingParticipant) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode lobby record: %w", err)
	}
	key := participantKey(e.prefix, rec.RoomID, rec.ParticipantID)
	if err := e.store.Set(ctx, key, payload, e.ttlFor(rec.Status)); err != nil {
		return fmt.Errorf("save lobby record: %w", err)
	}
	return nil
}
