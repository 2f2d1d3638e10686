package model

// AccessLevel is the admission policy of a room as stored in the
// `rooms.access_level` column.
//
//	public     – anyone with the link joins directly.
//	trusted    – authenticated users join directly, guests go through the lobby.
//	restricted – everyone goes through the lobby.
type AccessLevel string

const (
	AccessPublic     AccessLevel = "public"
	AccessTrusted    AccessLevel = "trusted"
	AccessRestricted AccessLevel = "restricted"
)

// Room is the subset of the `rooms` table the lobby needs. Room records are
// owned by another service; this one only reads them.
type Room struct {
	ID          string      // rooms.id (canonical UUID string)
	Name        string      // rooms.name
	AccessLevel AccessLevel // rooms.access_level
}

// BypassesLobby reports whether a caller may join without moderator approval.
func (r Room) BypassesLobby(authenticated bool) bool {
	switch r.AccessLevel {
	case AccessPublic:
		return true
	case AccessTrusted:
		return authenticated
	default:
		return false
	}
}

// RoomRole is a user's role on a room, from `room_accesses.role`.
type RoomRole string

const (
	RoleOwner         RoomRole = "owner"
	RoleAdministrator RoomRole = "administrator"
	RoleMember        RoomRole = "member"
)

// IsModerator reports whether the role may act on the room's lobby and
// participants.
func (r RoomRole) IsModerator() bool {
	return r == RoleOwner || r == RoleAdministrator
}
