// Package queue carries lobby notifications over RabbitMQ: the publisher
// used by the request-entry flow and the background consumer that forwards
// them to the room.
package queue

import "github.com/iliyamo/meeting-lobby/internal/model"

// NotificationQueue is the durable queue lobby notifications go through.
const NotificationQueue = "lobby.notifications"

// LobbyNotification is the message body published when a participant starts
// waiting in a room. Payload is delivered to the room's moderators verbatim.
type LobbyNotification struct {
	RoomID      string             `json:"room_id"`
	Payload     model.Notification `json:"payload"`
	PublishedAt string             `json:"published_at"`
}
