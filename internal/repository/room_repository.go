package repository

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"

	"github.com/iliyamo/meeting-lobby/internal/model"
)

// RoomRepo loads rooms and their admission policy.
type RoomRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewRoomRepo constructs a RoomRepo with the given DB handle.
func NewRoomRepo(db *sql.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// GetByID retrieves a room by its id.  It returns ErrRoomNotFound when no
// row matches.  An unknown access level is treated as restricted so a bad
// row never lets anyone skip the lobby.
func (r *RoomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	const q = `SELECT id, name, access_level FROM rooms WHERE id = ?`
	var (
		room  model.Room
		level string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(&room.ID, &room.Name, &level)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	switch lvl := model.AccessLevel(level); lvl {
	case model.AccessPublic, model.AccessTrusted, model.AccessRestricted:
		room.AccessLevel = lvl
	default:
		room.AccessLevel = model.AccessRestricted
	}
	return &room, nil
}
