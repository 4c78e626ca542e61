package store

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                    TEXT PRIMARY KEY,
	agent_id              TEXT NOT NULL,
	project               TEXT NOT NULL DEFAULT '',
	model                 TEXT NOT NULL DEFAULT 'unknown',
	total_cost            REAL NOT NULL DEFAULT 0.0,
	total_tokens          INTEGER NOT NULL DEFAULT 0,
	input_tokens          INTEGER NOT NULL DEFAULT 0,
	output_tokens         INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens     INTEGER NOT NULL DEFAULT 0,
	cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
	duration_ms           INTEGER NOT NULL DEFAULT 0,
	status                TEXT NOT NULL DEFAULT 'running',
	tool_calls            INTEGER NOT NULL DEFAULT 0,
	started_at            TEXT NOT NULL,
	ended_at              TEXT
);

CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_sessions_model ON sessions(model);

CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	input_tokens INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cache_read_tokens INTEGER NOT NULL DEFAULT 0,
	cache_creation_tokens INTEGER NOT NULL DEFAULT 0,
	cost         REAL NOT NULL DEFAULT 0.0,
	preview      TEXT,
	tool_name    TEXT,
	timestamp    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
`
