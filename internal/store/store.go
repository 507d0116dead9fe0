// Package store defines the persistence contract consumed by the room
// engine core: two load operations at actor start (admins, bans) and an
// append-only batch-write path fed by the durable-write sink. The engine
// treats the store as best-effort for audit/history; it is never read on
// the actor's hot path.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrRoomNotFound is returned by GetRoom for an unknown room id.
var ErrRoomNotFound = errors.New("room not found")

// Room is a persisted room row.
type Room struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ChatHistoryEntry is one row of chat_history.
type ChatHistoryEntry struct {
	ID        int64
	UserID    string
	Content   string
	CreatedAt time.Time
}

// SessionHistoryEntry is one row of room_sessions.
type SessionHistoryEntry struct {
	ID              int64
	UserID          string
	JoinTime        time.Time
	LeaveTime       *time.Time
	DurationSeconds *int64
}

// WriteCommandKind tags a single durable mutation produced by a room actor.
type WriteCommandKind int

const (
	WriteUserJoined WriteCommandKind = iota
	WriteUserLeft
	WriteChatMessage
	WriteBanUser
	WriteUnbanUser
)

// WriteCommand is the unit the write sink batches into one transaction.
// Ordered per-room (single producer per room); the sink itself interleaves
// commands from many rooms into one batch.
type WriteCommand struct {
	Kind      WriteCommandKind
	RoomID    string
	UserID    string
	Content   string    // WriteChatMessage only
	JoinedAt  time.Time // WriteUserLeft only: carries the original join instant
	Timestamp time.Time
}

// Store aggregates everything the engine and its management HTTP surface
// need from persistence.
type Store interface {
	// CreateRoom inserts a room row plus its initial admin rows,
	// atomically. Returns the persisted room.
	CreateRoom(ctx context.Context, name string, adminUserIDs []string) (*Room, error)

	// GetRoom retrieves a room by id.
	GetRoom(ctx context.Context, roomID string) (*Room, error)

	// ListRooms lists every persisted room.
	ListRooms(ctx context.Context) ([]*Room, error)

	// LoadAdmins returns the admin set for a room, read once at actor
	// start-up.
	LoadAdmins(ctx context.Context, roomID string) (map[string]struct{}, error)

	// LoadBans returns the ban set for a room, read once at actor start-up.
	LoadBans(ctx context.Context, roomID string) (map[string]struct{}, error)

	// ReplaceAdmins overwrites the persisted admin set for a room.
	ReplaceAdmins(ctx context.Context, roomID string, adminUserIDs []string) error

	// DeleteBan removes one persisted ban row, idempotently.
	DeleteBan(ctx context.Context, roomID, userID string) error

	// ApplyBatch commits a batch of write commands in one transaction.
	ApplyBatch(ctx context.Context, commands []WriteCommand) error

	// ListChatHistory returns chat history for a room, newest first,
	// optionally before a given message id.
	ListChatHistory(ctx context.Context, roomID string, limit int, beforeID *int64) ([]ChatHistoryEntry, error)

	// ListSessions returns sessions for a room, newest first, including
	// open ones (nil LeaveTime).
	ListSessions(ctx context.Context, roomID string, limit int, beforeID *int64) ([]SessionHistoryEntry, error)

	// Close releases underlying resources.
	Close() error
}
