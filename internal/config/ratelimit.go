package config

import "time"

// RateLimitConfig tunes the token bucket in front of the request-entry
// endpoint.  Participants poll that endpoint continuously while waiting, so
// the defaults allow a steady one-per-second poll with some burst.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"20"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" envDefault:"2"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"1s"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL" envDefault:"10m"`
	// KeyStrategy is one of ip, participant, ip_participant.
	KeyStrategy string `env:"RATE_LIMIT_KEY_STRATEGY" envDefault:"ip_participant"`
	Prefix      string `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
	Debug       bool   `env:"RATE_LIMIT_DEBUG" envDefault:"false"`
}

// Normalize clamps values the limiter script cannot work with.
func (c RateLimitConfig) Normalize() RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
