package livekit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	lkpb "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog/log"
	"github.com/twitchtv/twirp"

	"github.com/iliyamo/meeting-lobby/internal/config"
	"github.com/iliyamo/meeting-lobby/internal/model"
)

var (
	// ErrNotFound means the media server does not know the room or
	// participant any more.
	ErrNotFound = errors.New("livekit: not found")
	// ErrUpstream covers every other failed room service call.
	ErrUpstream = errors.New("livekit: request failed")
)

// Client calls the LiveKit room service.
type Client struct {
	rooms   *lksdk.RoomServiceClient
	timeout time.Duration
}

// NewClient builds a client for the server at cfg.URL. ws:// and wss://
// URLs are accepted and mapped to their HTTP equivalents.
func NewClient(cfg config.LiveKitConfig) *Client {
	return &Client{
		rooms:   lksdk.NewRoomServiceClient(httpBaseURL(cfg.URL), cfg.APIKey, cfg.APISecret),
		timeout: cfg.RequestTimeout,
	}
}

func httpBaseURL(u string) string {
	u = strings.TrimRight(u, "/")
	switch {
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	}
	return u
}

// MutePublishedTrack mutes or unmutes one track of a participant.
func (c *Client) MutePublishedTrack(ctx context.Context, room, identity, trackSID string, muted bool) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.rooms.MutePublishedTrack(ctx, &lkpb.MuteRoomTrackRequest{
		Room:     room,
		Identity: identity,
		TrackSid: trackSID,
		Muted:    muted,
	})
	return classify("MutePublishedTrack", room, err)
}

// RemoveParticipant disconnects a participant from the room.
func (c *Client) RemoveParticipant(ctx context.Context, room, identity string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.rooms.RemoveParticipant(ctx, &lkpb.RoomParticipantIdentity{
		Room:     room,
		Identity: identity,
	})
	return classify("RemoveParticipant", room, err)
}

// UpdateParticipant changes a connected participant's metadata, attributes,
// permissions or name. Zero fields are left out of the request.
func (c *Client) UpdateParticipant(ctx context.Context, room, identity string, upd model.ParticipantUpdate) error {
	req := &lkpb.UpdateParticipantRequest{
		Room:       room,
		Identity:   identity,
		Name:       upd.Name,
		Attributes: upd.Attributes,
	}
	if upd.Metadata != nil {
		meta, err := json.Marshal(upd.Metadata)
		if err != nil {
			return fmt.Errorf("encode participant metadata: %w", err)
		}
		req.Metadata = string(meta)
	}
	if upd.Permission != nil {
		req.Permission = permission(upd.Permission)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.rooms.UpdateParticipant(ctx, req)
	return classify("UpdateParticipant", room, err)
}

// permission converts p into the room service's full permission block.
// The server replaces every permission at once, so unset fields take the
// values a participant is issued when joining.
func permission(p *model.ParticipantPermission) *lkpb.ParticipantPermission {
	or := func(b *bool, def bool) bool {
		if b == nil {
			return def
		}
		return *b
	}
	out := &lkpb.ParticipantPermission{
		CanSubscribe:      or(p.CanSubscribe, true),
		CanPublish:        or(p.CanPublish, true),
		CanPublishData:    or(p.CanPublishData, true),
		Hidden:            or(p.Hidden, false),
		CanUpdateMetadata: or(p.CanUpdateMetadata, true),
	}
	for _, src := range p.CanPublishSources {
		v, ok := lkpb.TrackSource_value[strings.ToUpper(src)]
		if !ok {
			log.Warn().Str("module", "livekit").Str("source", src).Msg("ignoring unknown track source")
			continue
		}
		out.CanPublishSources = append(out.CanPublishSources, lkpb.TrackSource(v))
	}
	return out
}

// SendData broadcasts a reliable data packet to everyone in the room.
func (c *Client) SendData(ctx context.Context, room string, data []byte) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.rooms.SendData(ctx, &lkpb.SendDataRequest{
		Room: room,
		Data: data,
		Kind: lkpb.DataPacket_RELIABLE,
	})
	return classify("SendData", room, err)
}

// Publish delivers a lobby notification straight to the room as a data
// packet, for deployments without a message broker.
func (c *Client) Publish(ctx context.Context, roomID string, n model.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return c.SendData(ctx, roomID, payload)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// classify wraps a room service error in ErrNotFound or ErrUpstream.
func classify(method, room string, err error) error {
	if err == nil {
		return nil
	}
	kind := ErrUpstream
	code := "unknown"
	var terr twirp.Error
	if errors.As(err, &terr) {
		code = string(terr.Code())
		if terr.Code() == twirp.NotFound {
			kind = ErrNotFound
		}
	}
	log.Debug().
		Str("module", "livekit").
		Str("method", method).
		Str("room", room).
		Str("code", code).
		Err(err).
		Msg("room service call failed")
	return fmt.Errorf("livekit %s: %w: %w", method, kind, err)
}
