package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/meeting-lobby/internal/model"
)

// openTestDB connects to the MySQL instance named by LOBBY_TEST_MYSQL_DSN
// and creates throwaway tables. Tests skip when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("LOBBY_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("LOBBY_TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rooms (id CHAR(36) PRIMARY KEY, name VARCHAR(255) NOT NULL, access_level VARCHAR(20) NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS room_accesses (room_id CHAR(36) NOT NULL, user_id VARCHAR(64) NOT NULL, role VARCHAR(20) NOT NULL, PRIMARY KEY (room_id, user_id))`,
		`DELETE FROM room_accesses`,
		`DELETE FROM rooms`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}
	return db
}

func TestRoomRepo_GetByID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRoomRepo(db)

	_, err := db.Exec(`INSERT INTO rooms (id, name, access_level) VALUES (?, ?, ?), (?, ?, ?)`,
		"11111111-1111-4111-8111-111111111111", "standup", "restricted",
		"22222222-2222-4222-8222-222222222222", "legacy", "bogus")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	room, err := repo.GetByID(ctx, "11111111-1111-4111-8111-111111111111")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if room.Name != "standup" || room.AccessLevel != model.AccessRestricted {
		t.Fatalf("unexpected room %+v", room)
	}

	room, err = repo.GetByID(ctx, "22222222-2222-4222-8222-222222222222")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if room.AccessLevel != model.AccessRestricted {
		t.Fatalf("unknown level should fall back to restricted, got %q", room.AccessLevel)
	}

	if _, err := repo.GetByID(ctx, "33333333-3333-4333-8333-333333333333"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomAccessRepo_GetRole(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewRoomAccessRepo(db)

	const room = "11111111-1111-4111-8111-111111111111"
	if _, err := db.Exec(`INSERT INTO room_accesses (room_id, user_id, role) VALUES (?, ?, ?)`, room, "u1", "administrator"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	role, err := repo.GetRole(ctx, room, "u1")
	if err != nil || !role.IsModerator() {
		t.Fatalf("expected moderator role, got %q (err %v)", role, err)
	}
	if _, err := repo.GetRole(ctx, room, "u2"); !errors.Is(err, ErrNoAccess) {
		t.Fatalf("expected ErrNoAccess, got %v", err)
	}
}
