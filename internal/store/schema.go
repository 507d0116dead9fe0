package store

// Schema is the full set of DDL statements applied at start-up. Every
// statement is idempotent (CREATE ... IF NOT EXISTS) so it is safe to
// re-run on every process start and before any read that depends on the
// tables existing.
const Schema = `
CREATE TABLE IF NOT EXISTS rooms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS room_admins (
	room_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	PRIMARY KEY (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS room_bans (
	room_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	banned_at DATETIME NOT NULL,
	PRIMARY KEY (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS chat_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_room ON chat_history (room_id, id DESC);

CREATE TABLE IF NOT EXISTS room_sessions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id          TEXT NOT NULL,
	user_id          TEXT NOT NULL,
	join_time        DATETIME NOT NULL,
	leave_time       DATETIME,
	duration_seconds INTEGER
);
CREATE INDEX IF NOT EXISTS idx_room_sessions_room ON room_sessions (room_id, id DESC);
`
