package config

import (
	"fmt"
	"time"
)

// LiveKitConfig locates the media server and holds the API key pair used
// both to sign participant tokens and to call its room service.
type LiveKitConfig struct {
	URL       string        `env:"LIVEKIT_API_URL,required,notEmpty"`
	APIKey    string        `env:"LIVEKIT_API_KEY,required,notEmpty"`
	APISecret string        `env:"LIVEKIT_API_SECRET,required,notEmpty"`
	TokenTTL  time.Duration `env:"LIVEKIT_TOKEN_TTL" envDefault:"6h"`
	// RequestTimeout bounds every room service call.
	RequestTimeout time.Duration `env:"LIVEKIT_REQUEST_TIMEOUT" envDefault:"10s"`
}

func (c LiveKitConfig) Validate() error {
	if c.TokenTTL <= 0 {
		return fmt.Errorf("LIVEKIT_TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("LIVEKIT_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
