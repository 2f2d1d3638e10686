package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/meeting-lobby/internal/model"
)

// RoomAccessRepo reads user roles on rooms from `room_accesses`.
type RoomAccessRepo struct {
	db *sql.DB
}

func NewRoomAccessRepo(db *sql.DB) *RoomAccessRepo {
	return &RoomAccessRepo{db: db}
}

// GetRole returns the role userID holds on roomID, or ErrNoAccess.
func (r *RoomAccessRepo) GetRole(ctx context.Context, roomID, userID string) (model.RoomRole, error) {
	const q = `SELECT role FROM room_accesses WHERE room_id = ? AND user_id = ? LIMIT 1`
	var role string
	if err := r.db.QueryRowContext(ctx, q, roomID, userID).Scan(&role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoAccess
		}
		return "", err
	}
	return model.RoomRole(role), nil
}
