package config

import (
	"fmt"
	"time"
)

// LobbyConfig controls the waiting room.  Timeouts are whole seconds and
// apply to the record's current status: a waiting record lives
// WaitingTimeout past the participant's last poll, a decided one lives
// AcceptedTimeout or DeniedTimeout past the decision.
type LobbyConfig struct {
	KeyPrefix        string `env:"LOBBY_KEY_PREFIX" envDefault:"room_lobby"`
	CookieName       string `env:"LOBBY_COOKIE_NAME" envDefault:"lobbyParticipantId"`
	NotificationType string `env:"LOBBY_NOTIFICATION_TYPE" envDefault:"participantWaiting"`
	WaitingTimeout   int    `env:"LOBBY_WAITING_TIMEOUT" envDefault:"3"`
	AcceptedTimeout  int    `env:"LOBBY_ACCEPTED_TIMEOUT" envDefault:"21600"`
	DeniedTimeout    int    `env:"LOBBY_DENIED_TIMEOUT" envDefault:"5"`
}

// Validate rejects empty names and non-positive timeouts.
func (c LobbyConfig) Validate() error {
	if c.KeyPrefix == "" {
		return fmt.Errorf("LOBBY_KEY_PREFIX must not be empty")
	}
	if c.CookieName == "" {
		return fmt.Errorf("LOBBY_COOKIE_NAME must not be empty")
	}
	if c.NotificationType == "" {
		return fmt.Errorf("LOBBY_NOTIFICATION_TYPE must not be empty")
	}
	for name, v := range map[string]int{
		"LOBBY_WAITING_TIMEOUT":  c.WaitingTimeout,
		"LOBBY_ACCEPTED_TIMEOUT": c.AcceptedTimeout,
		"LOBBY_DENIED_TIMEOUT":   c.DeniedTimeout,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds, got %d", name, v)
		}
	}
	return nil
}

func (c LobbyConfig) WaitingTTL() time.Duration  { return time.Duration(c.WaitingTimeout) * time.Second }
func (c LobbyConfig) AcceptedTTL() time.Duration { return time.Duration(c.AcceptedTimeout) * time.Second }
func (c LobbyConfig) DeniedTTL() time.Duration   { return time.Duration(c.DeniedTimeout) * time.Second }
