// Package store persists session and message records to a local SQLite
// database and answers the aggregate queries the stats surface needs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite connection pool. SQLite serializes writers itself;
// WAL mode lets readers proceed concurrently with a writer.
type Store struct {
	db *sql.DB
}

// DefaultPath returns ~/.open-sonar/sessions.db, the well-known location
// the original tool used.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".open-sonar", "sessions.db"), nil
}

// Open creates the parent directory if needed, opens path in WAL mode, and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertSession inserts r, or on a primary-key conflict updates every
// column except id, agent_id, project, and started_at.
func (s *Store) UpsertSession(r SessionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (
			id, agent_id, project, model, total_cost, total_tokens,
			input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
			duration_ms, status, tool_calls, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			total_cost = excluded.total_cost,
			total_tokens = excluded.total_tokens,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			cache_read_tokens = excluded.cache_read_tokens,
			cache_creation_tokens = excluded.cache_creation_tokens,
			duration_ms = excluded.duration_ms,
			status = excluded.status,
			tool_calls = excluded.tool_calls,
			ended_at = excluded.ended_at
	`,
		r.ID, r.AgentID, r.Project, r.Model, r.TotalCost, r.TotalTokens,
		r.InputTokens, r.OutputTokens, r.CacheReadTokens, r.CacheCreationTokens,
		r.DurationMs, r.Status, r.ToolCalls, r.StartedAt, r.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upsert session %s: %w", r.ID, err)
	}
	return nil
}

// InsertMessage appends m as a new row, with an id assigned by the store.
func (s *Store) InsertMessage(m MessageRecord) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO messages (
			session_id, input_tokens, output_tokens, cache_read_tokens,
			cache_creation_tokens, cost, preview, tool_name, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.SessionID, m.InputTokens, m.OutputTokens, m.CacheReadTokens,
		m.CacheCreationTokens, m.Cost, m.Preview, m.ToolName, m.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("store: insert message for session %s: %w", m.SessionID, err)
	}
	return res.LastInsertId()
}

// RecentSessions returns up to limit sessions ordered by started_at
// descending.
func (s *Store) RecentSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, agent_id, project, model, total_cost, total_tokens,
			input_tokens, output_tokens, cache_read_tokens, cache_creation_tokens,
			duration_ms, status, tool_calls, started_at, ended_at
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(
			&r.ID, &r.AgentID, &r.Project, &r.Model, &r.TotalCost, &r.TotalTokens,
			&r.InputTokens, &r.OutputTokens, &r.CacheReadTokens, &r.CacheCreationTokens,
			&r.DurationMs, &r.Status, &r.ToolCalls, &r.StartedAt, &r.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan session row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionMessages returns every message for sessionID ordered by timestamp
// ascending.
func (s *Store) SessionMessages(sessionID string) ([]MessageRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, input_tokens, output_tokens, cache_read_tokens,
			cache_creation_tokens, cost, preview, tool_name, timestamp
		FROM messages WHERE session_id = ? ORDER BY timestamp ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: session messages for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.InputTokens, &m.OutputTokens, &m.CacheReadTokens,
			&m.CacheCreationTokens, &m.Cost, &m.Preview, &m.ToolName, &m.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("store: scan message row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DailyCosts groups sessions by calendar date over the last days days,
// ascending by date.
func (s *Store) DailyCosts(days int) ([]DailyCost, error) {
	rows, err := s.db.Query(`
		SELECT date(started_at) AS d, SUM(total_cost), SUM(total_tokens), COUNT(*)
		FROM sessions
		WHERE started_at >= date('now', ?)
		GROUP BY d
		ORDER BY d ASC
	`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, fmt.Errorf("store: daily costs: %w", err)
	}
	defer rows.Close()

	var out []DailyCost
	for rows.Next() {
		var d DailyCost
		if err := rows.Scan(&d.Date, &d.TotalCost, &d.TotalTokens, &d.Count); err != nil {
			return nil, fmt.Errorf("store: scan daily cost row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ModelStats aggregates by model, excluding "unknown", ordered by total
// cost descending.
func (s *Store) ModelStats() ([]ModelStat, error) {
	rows, err := s.db.Query(`
		SELECT model, SUM(total_cost), SUM(total_tokens), COUNT(*),
			AVG(total_cost), AVG(total_tokens)
		FROM sessions
		WHERE model != 'unknown'
		GROUP BY model
		ORDER BY SUM(total_cost) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: model stats: %w", err)
	}
	defer rows.Close()

	var out []ModelStat
	for rows.Next() {
		var m ModelStat
		if err := rows.Scan(&m.Model, &m.TotalCost, &m.TotalTokens, &m.Count, &m.AvgCost, &m.AvgTokens); err != nil {
			return nil, fmt.Errorf("store: scan model stat row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// TotalCostToday sums total_cost for sessions started at or after local
// midnight today.
func (s *Store) TotalCostToday() (float64, error) {
	var cost float64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(total_cost), 0.0) FROM sessions
		WHERE started_at >= datetime('now', 'localtime', 'start of day')
	`).Scan(&cost)
	if err != nil {
		return 0, fmt.Errorf("store: total cost today: %w", err)
	}
	return cost, nil
}

// SessionExists reports whether id is already present in sessions.
func (s *Store) SessionExists(id string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("store: session exists %s: %w", id, err)
	}
	return count > 0, nil
}
