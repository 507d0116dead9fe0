// Package sqlite implements store.Store on top of SQLite: a single-
// connection pool in WAL journal mode, with the five-table schema defined
// in internal/store/schema.go.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ashbrook/roomengine/internal/store"
)

func newRoomID() string {
	return uuid.NewString()
}

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens dbPath, applies the schema, and returns a ready store.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; WAL mode still allows
	// concurrent readers against the one writer this pool serializes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(store.Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRoom inserts a room row plus its initial admin rows in one
// transaction.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, adminUserIDs []string) (*store.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := newRoomID()
	now := time.Now()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, now,
	); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	for _, adminID := range adminUserIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_admins (room_id, user_id) VALUES (?, ?)`,
			id, adminID,
		); err != nil {
			return nil, fmt.Errorf("insert room admin: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &store.Room{ID: id, Name: name, CreatedAt: now}, nil
}

// GetRoom retrieves a room by id.
func (s *SQLiteStore) GetRoom(ctx context.Context, roomID string) (*store.Room, error) {
	var r store.Room
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM rooms WHERE id = ?`, roomID,
	).Scan(&r.ID, &r.Name, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRoomNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &r, nil
}

// ListRooms lists every persisted room, newest first.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM rooms ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var out []*store.Room
	for rows.Next() {
		var r store.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// LoadAdmins returns the admin set for a room.
func (s *SQLiteStore) LoadAdmins(ctx context.Context, roomID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM room_admins WHERE room_id = ?`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("query admins: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		out[userID] = struct{}{}
	}
	return out, rows.Err()
}

// LoadBans returns the ban set for a room.
func (s *SQLiteStore) LoadBans(ctx context.Context, roomID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM room_bans WHERE room_id = ?`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("query bans: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan ban: %w", err)
		}
		out[userID] = struct{}{}
	}
	return out, rows.Err()
}

// ReplaceAdmins overwrites the persisted admin set for a room.
func (s *SQLiteStore) ReplaceAdmins(ctx context.Context, roomID string, adminUserIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM room_admins WHERE room_id = ?`, roomID); err != nil {
		return fmt.Errorf("clear admins: %w", err)
	}
	for _, adminID := range adminUserIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO room_admins (room_id, user_id) VALUES (?, ?)`,
			roomID, adminID,
		); err != nil {
			return fmt.Errorf("insert admin: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteBan removes one persisted ban row, idempotently.
func (s *SQLiteStore) DeleteBan(ctx context.Context, roomID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM room_bans WHERE room_id = ? AND user_id = ?`, roomID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete ban: %w", err)
	}
	return nil
}

// ApplyBatch commits a batch of write commands in one transaction, matching
// the write sink's batch-by-count-or-time discipline.
func (s *SQLiteStore) ApplyBatch(ctx context.Context, commands []store.WriteCommand) error {
	if len(commands) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, cmd := range commands {
		if err := applyOne(ctx, tx, cmd); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func applyOne(ctx context.Context, tx *sql.Tx, cmd store.WriteCommand) error {
	switch cmd.Kind {
	case store.WriteUserJoined:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO room_sessions (room_id, user_id, join_time) VALUES (?, ?, ?)`,
			cmd.RoomID, cmd.UserID, cmd.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

	case store.WriteUserLeft:
		duration := int64(cmd.Timestamp.Sub(cmd.JoinedAt).Seconds())
		_, err := tx.ExecContext(ctx,
			`UPDATE room_sessions SET leave_time = ?, duration_seconds = ?
			 WHERE room_id = ? AND user_id = ? AND join_time = ? AND leave_time IS NULL`,
			cmd.Timestamp, duration, cmd.RoomID, cmd.UserID, cmd.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("close session: %w", err)
		}

	case store.WriteChatMessage:
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_history (room_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
			cmd.RoomID, cmd.UserID, cmd.Content, cmd.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}

	case store.WriteBanUser:
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO room_bans (room_id, user_id, banned_at) VALUES (?, ?, ?)`,
			cmd.RoomID, cmd.UserID, cmd.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert ban: %w", err)
		}

	case store.WriteUnbanUser:
		_, err := tx.ExecContext(ctx,
			`DELETE FROM room_bans WHERE room_id = ? AND user_id = ?`,
			cmd.RoomID, cmd.UserID,
		)
		if err != nil {
			return fmt.Errorf("delete ban: %w", err)
		}
	}
	return nil
}

// ListChatHistory returns chat history for a room, newest first, optionally
// paginated before a given message id.
func (s *SQLiteStore) ListChatHistory(ctx context.Context, roomID string, limit int, beforeID *int64) ([]store.ChatHistoryEntry, error) {
	var rows *sql.Rows
	var err error
	if beforeID != nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, user_id, content, created_at FROM chat_history
			 WHERE room_id = ? AND id < ? ORDER BY id DESC LIMIT ?`,
			roomID, *beforeID, limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, user_id, content, created_at FROM chat_history
			 WHERE room_id = ? ORDER BY id DESC LIMIT ?`,
			roomID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}
	defer rows.Close()

	var out []store.ChatHistoryEntry
	for rows.Next() {
		var e store.ChatHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListSessions returns sessions for a room, newest first, including open
// ones (nil LeaveTime), optionally paginated before a given session id.
func (s *SQLiteStore) ListSessions(ctx context.Context, roomID string, limit int, beforeID *int64) ([]store.SessionHistoryEntry, error) {
	var rows *sql.Rows
	var err error
	if beforeID != nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, user_id, join_time, leave_time, duration_seconds FROM room_sessions
			 WHERE room_id = ? AND id < ? ORDER BY id DESC LIMIT ?`,
			roomID, *beforeID, limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, user_id, join_time, leave_time, duration_seconds FROM room_sessions
			 WHERE room_id = ? ORDER BY id DESC LIMIT ?`,
			roomID, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []store.SessionHistoryEntry
	for rows.Next() {
		var e store.SessionHistoryEntry
		var leaveTime sql.NullTime
		var duration sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &e.JoinTime, &leaveTime, &duration); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if leaveTime.Valid {
			e.LeaveTime = &leaveTime.Time
		}
		if duration.Valid {
			e.DurationSeconds = &duration.Int64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ensure SQLiteStore implements store.Store.
var _ store.Store = (*SQLiteStore)(nil)
