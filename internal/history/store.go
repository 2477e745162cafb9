// Package history persists completed requests and chat transcripts in
// a local SQLite database under the settings directory.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"gemai/internal/logging"
)

// duplicateWindow suppresses double appends of the same action+query,
// which happens when a surface re-fires a completed request.
const duplicateWindow = time.Second

// Record is one completed request.
type Record struct {
	Timestamp   int64 // unix milliseconds
	ActionID    string
	ModelID     string // registry id, used to recompute cost
	ModelName   string // display name, possibly annotated
	Provider    string
	Query       string
	Answer      string
	Attachment  string // file path, empty when none rode along
	Temperature float64

	PromptTokens  int
	InputTokens   int
	ThoughtTokens int
	TotalTokens   int

	FirstRespTime float64
	TotalTime     float64
}

// ChatMessage is one turn of the chat transcript.
type ChatMessage struct {
	ID        string
	Role      string // "user" or "assistant"
	Content   string
	Timestamp int64 // unix milliseconds
}

// Store wraps the SQLite database. A single connection guarded by a
// mutex keeps writes serialized; the CLI is not a concurrent writer
// workload.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.SugaredLogger
}

// Open initializes the database at path, creating the directory and
// schema as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	log := logging.L(logging.CategoryHistory)
	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Debugw("pragma failed", "pragma", pragma, "error", err)
		}
	}

	s := &Store{db: db, log: log}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// DefaultPath returns the history database location inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "history.db")
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp      INTEGER NOT NULL,
		action_id      TEXT NOT NULL,
		model_id       TEXT NOT NULL,
		model_name     TEXT NOT NULL,
		provider       TEXT NOT NULL,
		query          TEXT NOT NULL,
		answer         TEXT NOT NULL,
		attachment     TEXT NOT NULL DEFAULT '',
		temperature    REAL NOT NULL,
		prompt_tokens  INTEGER NOT NULL DEFAULT 0,
		input_tokens   INTEGER NOT NULL DEFAULT 0,
		thought_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens   INTEGER NOT NULL DEFAULT 0,
		first_resp_sec REAL NOT NULL DEFAULT 0,
		total_sec      REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp);
	CREATE INDEX IF NOT EXISTS idx_history_action ON history(action_id);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id        TEXT PRIMARY KEY,
		role      TEXT NOT NULL,
		content   TEXT NOT NULL,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chat_timestamp ON chat_messages(timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize history schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append stores a record unless the same query text landed within the
// duplicate window, regardless of which action carried it. It reports
// whether the record was written.
func (s *Store) Append(rec Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UnixMilli()
	}

	var last int64
	err := s.db.QueryRow(
		`SELECT timestamp FROM history WHERE query = ? ORDER BY timestamp DESC LIMIT 1`,
		rec.Query,
	).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	if err == nil && rec.Timestamp-last < duplicateWindow.Milliseconds() {
		s.log.Debugw("suppressed duplicate record", "action", rec.ActionID, "age_ms", rec.Timestamp-last)
		return false, nil
	}

	_, err = s.db.Exec(
		`INSERT INTO history (timestamp, action_id, model_id, model_name, provider, query, answer, attachment, temperature,
			prompt_tokens, input_tokens, thought_tokens, total_tokens, first_resp_sec, total_sec)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.ActionID, rec.ModelID, rec.ModelName, rec.Provider, rec.Query, rec.Answer, rec.Attachment, rec.Temperature,
		rec.PromptTokens, rec.InputTokens, rec.ThoughtTokens, rec.TotalTokens, rec.FirstRespTime, rec.TotalTime,
	)
	if err != nil {
		return false, fmt.Errorf("append history record: %w", err)
	}
	return true, nil
}

// List returns records newest-first, at most limit (0 means all).
func (s *Store) List(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := `SELECT timestamp, action_id, model_id, model_name, provider, query, answer, attachment, temperature,
		prompt_tokens, input_tokens, thought_tokens, total_tokens, first_resp_sec, total_sec
		FROM history ORDER BY timestamp DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Timestamp, &r.ActionID, &r.ModelID, &r.ModelName, &r.Provider, &r.Query, &r.Answer, &r.Attachment, &r.Temperature,
			&r.PromptTokens, &r.InputTokens, &r.ThoughtTokens, &r.TotalTokens, &r.FirstRespTime, &r.TotalTime); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Since returns records with timestamp >= cutoff (unix milliseconds),
// newest-first.
func (s *Store) Since(cutoff int64) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT timestamp, action_id, model_id, model_name, provider, query, answer, attachment, temperature,
			prompt_tokens, input_tokens, thought_tokens, total_tokens, first_resp_sec, total_sec
		 FROM history WHERE timestamp >= ? ORDER BY timestamp DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query history since: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Timestamp, &r.ActionID, &r.ModelID, &r.ModelName, &r.Provider, &r.Query, &r.Answer, &r.Attachment, &r.Temperature,
			&r.PromptTokens, &r.InputTokens, &r.ThoughtTokens, &r.TotalTokens, &r.FirstRespTime, &r.TotalTime); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes the record with the given timestamp.
func (s *Store) Delete(timestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM history WHERE timestamp = ?`, timestamp)
	if err != nil {
		return fmt.Errorf("delete history record: %w", err)
	}
	return nil
}

// Clear removes all history records. Chat transcripts are untouched.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM history`)
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// AppendMessage stores one chat turn.
func (s *Store) AppendMessage(msg ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO chat_messages (id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		msg.ID, msg.Role, msg.Content, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// Messages returns the full transcript in chronological order.
func (s *Store) Messages() ([]ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT id, role, content, timestamp FROM chat_messages ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LastMessages returns the trailing n messages in chronological order.
func (s *Store) LastMessages(n int) ([]ChatMessage, error) {
	msgs, err := s.Messages()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs, nil
}

// ClearMessages deletes the chat transcript.
func (s *Store) ClearMessages() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM chat_messages`)
	if err != nil {
		return fmt.Errorf("clear chat messages: %w", err)
	}
	return nil
}
