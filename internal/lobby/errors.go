package lobby

import "errors"

// ErrParticipantNotFound is returned when no live record matches the
// participant, or when a decision targets a record that is no longer waiting.
// Handlers translate it into a 404.
var ErrParticipantNotFound = errors.New("lobby participant not found")

// ErrInvalidRoomID is returned when a room identifier is not a UUID. Callers
// doing best-effort cleanup treat it as recoverable.
var ErrInvalidRoomID = errors.New("invalid room id")
