package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a SQLite-backed Store implementation.
//
// Every mutation is committed before the call returns, so a process
// restart resumes all conversations. WAL mode is enabled so reads do not
// block behind writes; a single connection serializes writers.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a SQLite store at the given
// file path. The parent directory is created with owner-only permissions.
func OpenSQLite(path string) (*SQLiteStore, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing database path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return fmt.Errorf("pragma journal_mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=3000;`); err != nil {
		return fmt.Errorf("pragma busy_timeout: %w", err)
	}

	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sessions (
  session_id TEXT PRIMARY KEY,
  nickname TEXT NOT NULL DEFAULT '',
  created_at_unix_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  message_id TEXT NOT NULL,
  role TEXT NOT NULL,
  content TEXT NOT NULL,
  attachments_json TEXT NOT NULL DEFAULT '',
  created_at_unix_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// CreateSession registers a new session with a fresh id.
func (s *SQLiteStore) CreateSession(ctx context.Context) (Session, error) {
	now := time.Now().UnixMilli()

	// The primary key constraint guards against the (negligible) chance
	// of a UUID collision, so an id is never reused.
	for {
		id := NewID()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO sessions (session_id, nickname, created_at_unix_ms) VALUES (?, '', ?)`,
			id, now)
		if err == nil {
			return Session{ID: id}, nil
		}
		if !isUniqueViolation(err) {
			return Session{}, fmt.Errorf("failed to create session: %w", err)
		}
	}
}

// GetSession returns the session with the given id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, nickname FROM sessions WHERE session_id = ?`, id).
		Scan(&sess.ID, &sess.Nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all registered sessions in creation order.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, nickname FROM sessions ORDER BY created_at_unix_ms, session_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]Session, 0)
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Nickname); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SetNickname associates a display name with a session.
func (s *SQLiteStore) SetNickname(ctx context.Context, id, nickname string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET nickname = ? WHERE session_id = ?`, nickname, id)
	if err != nil {
		return fmt.Errorf("failed to set nickname: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Messages returns the ordered message list for a session.
func (s *SQLiteStore) Messages(ctx context.Context, id string) ([]Message, error) {
	if err := s.requireSession(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, role, content, attachments_json
FROM messages
WHERE session_id = ?
ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		var msg Message
		var attachments string
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &attachments); err != nil {
			return nil, err
		}
		if attachments != "" {
			if err := json.Unmarshal([]byte(attachments), &msg.Attachments); err != nil {
				return nil, fmt.Errorf("corrupt attachment data for message %s: %w", msg.ID, err)
			}
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// AppendMessage adds a message to the tail of the session's history.
func (s *SQLiteStore) AppendMessage(ctx context.Context, id string, msg Message) error {
	if err := s.requireSession(ctx, id); err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = NewID()
	}

	attachments := ""
	if len(msg.Attachments) > 0 {
		data, err := json.Marshal(msg.Attachments)
		if err != nil {
			return fmt.Errorf("failed to encode attachments: %w", err)
		}
		attachments = string(data)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, message_id, role, content, attachments_json, created_at_unix_ms)
VALUES (?, ?, ?, ?, ?, ?)`,
		id, msg.ID, msg.Role, msg.Content, attachments, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ClearHistory truncates the session's message list to empty.
// The session row (id, nickname) is untouched.
func (s *SQLiteStore) ClearHistory(ctx context.Context, id string) error {
	if err := s.requireSession(ctx, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// requireSession returns ErrNotFound if the session is not registered.
func (s *SQLiteStore) requireSession(ctx context.Context, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sessions WHERE session_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
