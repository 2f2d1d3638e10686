// Package livekit talks to the LiveKit media server: it signs the access
// tokens participants join with and calls the room service API on behalf of
// moderators.
package livekit

import (
	"context"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/iliyamo/meeting-lobby/internal/config"
	"github.com/iliyamo/meeting-lobby/internal/model"
)

func boolPtr(b bool) *bool { return &b }

// CredentialIssuer hands out join credentials for a room.
type CredentialIssuer struct {
	url       string
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

// NewCredentialIssuer returns an issuer signing with cfg's key pair.
func NewCredentialIssuer(cfg config.LiveKitConfig) *CredentialIssuer {
	return &CredentialIssuer{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		ttl:       cfg.TokenTTL,
	}
}

// Issue returns the connection details for participantID joining roomID
// under displayName. The participant id doubles as the media-server
// identity, so moderator actions on that identity can find the lobby record.
func (c *CredentialIssuer) Issue(_ context.Context, roomID, participantID, displayName string) (model.Credential, error) {
	at := auth.NewAccessToken(c.apiKey, c.apiSecret).
		SetVideoGrant(&auth.VideoGrant{
			RoomJoin:             true,
			Room:                 roomID,
			CanPublish:           boolPtr(true),
			CanSubscribe:         boolPtr(true),
			CanPublishData:       boolPtr(true),
			CanUpdateOwnMetadata: boolPtr(true),
		}).
		SetIdentity(participantID).
		SetName(displayName).
		SetValidFor(c.ttl)

	token, err := at.ToJWT()
	if err != nil {
		return model.Credential{}, fmt.Errorf("sign livekit token: %w", err)
	}
	return model.Credential{URL: c.url, Room: roomID, Token: token}, nil
}
