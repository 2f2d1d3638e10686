// Package repository reads the room records owned by the meeting service.
// Rooms and room accesses are written elsewhere; the lobby only needs a
// room's admission policy and whether a user may moderate it.
package repository

import "errors"

// ErrRoomNotFound is returned when no room matches the given id. Handlers
// translate it into an HTTP 404 response.
var ErrRoomNotFound = errors.New("room not found")

// ErrNoAccess is returned when a user holds no access row for a room.
// Handlers should translate this into an HTTP 403 response.
var ErrNoAccess = errors.New("no access to room")
