package lobby

import (
	"fmt"

	"github.com/google/uuid"
)

// participantKey returns the cache key of one participant's record.
func participantKey(prefix, roomID, participantID string) string {
	return fmt.Sprintf("%s_%s_%s", prefix, roomID, participantID)
}

// roomPrefix returns the prefix shared by every record of a room.
func roomPrefix(prefix, roomID string) string {
	return fmt.Sprintf("%s_%s_", prefix, roomID)
}

// ParseRoomID validates a room identifier coming from outside the lobby
// (for example a media-server room name) and returns its canonical form.
func ParseRoomID(raw string) (string, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRoomID, raw)
	}
	return id.String(), nil
}
