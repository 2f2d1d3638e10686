package lobby

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// participantIDBytes is the entropy of a participant id (128 bits).
const participantIDBytes = 16

// Issuer mints the opaque participant ids handed to clients as a cookie.
// Ids are never checked against storage; collisions are left to the size of
// the id space.
type Issuer struct {
	rand io.Reader
}

// NewIssuer returns an Issuer backed by crypto/rand.
func NewIssuer() *Issuer {
	return &Issuer{rand: rand.Reader}
}

// Issue returns a fresh participant id: 16 random bytes, lowercase hex.
func (i *Issuer) Issue() (string, error) {
	buf := make([]byte, participantIDBytes)
	if _, err := io.ReadFull(i.rand, buf); err != nil {
		return "", fmt.Errorf("generate participant id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Resolve returns the id a client presented when it is well formed, and a
// freshly minted one otherwise. minted tells the caller which case applied.
// Malformed tokens are replaced rather than trusted since they end up in
// cache keys.
func (i *Issuer) Resolve(presented string) (id string, minted bool, err error) {
	if ValidParticipantID(presented) {
		return presented, false, nil
	}
	id, err = i.Issue()
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// ValidParticipantID reports whether s has the shape Issue produces.
func ValidParticipantID(s string) bool {
	if len(s) != participantIDBytes*2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
