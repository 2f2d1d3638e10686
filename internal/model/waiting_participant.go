package model

import "time"

// WaitingStatus is the lobby state of a participant.
type WaitingStatus string

const (
	StatusWaiting  WaitingStatus = "waiting"
	StatusAccepted WaitingStatus = "accepted"
	StatusDenied   WaitingStatus = "denied"
)

// IsTerminal reports whether no further moderator decision can apply.
func (s WaitingStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusDenied
}

// WaitingParticipant is the lobby record kept in the shared cache for one
// participant of one room. It is serialized as JSON; its lifetime is the
// cache TTL armed for its current status.
type WaitingParticipant struct {
	RoomID        string        `json:"room_id"`
	ParticipantID string        `json:"id"`
	DisplayName   string        `json:"username"`
	Status        WaitingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	DecidedAt     *time.Time    `json:"decided_at,omitempty"`
}

// Credential is what a participant needs to connect to the media server.
type Credential struct {
	URL   string `json:"url"`
	Room  string `json:"room"`
	Token string `json:"token"`
}

// Notification is the payload published to a room's moderators.
type Notification struct {
	Type string `json:"type"`
}

// ParticipantPermission mirrors the media server's participant permission
// block. The block is replaced as a whole; nil pointers take the value a
// joining participant is issued.
type ParticipantPermission struct {
	CanSubscribe      *bool    `json:"can_subscribe,omitempty"`
	CanPublish        *bool    `json:"can_publish,omitempty"`
	CanPublishData    *bool    `json:"can_publish_data,omitempty"`
	CanPublishSources []string `json:"can_publish_sources,omitempty"`
	Hidden            *bool    `json:"hidden,omitempty"`
	CanUpdateMetadata *bool    `json:"can_update_metadata,omitempty"`
}

// ParticipantUpdate carries the fields a moderator may change on a connected
// participant.
type ParticipantUpdate struct {
	Metadata   map[string]any
	Attributes map[string]string
	Permission *ParticipantPermission
	Name       string
}
