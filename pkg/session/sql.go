package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/droverhq/drover/pkg/config"
	"github.com/droverhq/drover/pkg/model"
)

// SQLStore persists conversation history to a SQL database, scoped by
// agent id so multiple agents can share one database.
//
// The error-returning methods are the primary API. The Messages/Append
// pair satisfies the agent's history interface by treating persistence
// as best effort: failures are logged, not returned.
type SQLStore struct {
	db      *sql.DB
	dialect string
	agentID string
	window  int

	mu sync.Mutex // serializes session row creation
}

// NewSQLStore creates a store over an existing connection pool and
// initializes the schema. window bounds how many recent messages a load
// returns; 0 means the default window.
func NewSQLStore(db *sql.DB, dialect, agentID string, window int) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required")
	}
	switch dialect {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, mysql, sqlite)", dialect)
	}
	if window <= 0 {
		window = config.DefaultSessionWindow
	}

	s := &SQLStore{
		db:      db,
		dialect: dialect,
		agentID: agentID,
		window:  window,
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// NewSQLStoreFromConfig opens the configured database through the shared
// pool and creates a store for agentID.
func NewSQLStoreFromConfig(cfg *config.SessionConfig, pool *config.DBPool, agentID string) (*SQLStore, error) {
	if cfg == nil || cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	db, err := pool.Get(cfg.Database)
	if err != nil {
		return nil, err
	}
	return NewSQLStore(db, cfg.Database.Dialect(), agentID, cfg.WindowSize)
}

func (s *SQLStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schemaStatements(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// schemaStatements returns the DDL per dialect, one statement each since
// not every driver accepts multi-statement Exec.
func schemaStatements(dialect string) []string {
	sessionsSQL := `
CREATE TABLE IF NOT EXISTS sessions (
    id VARCHAR(255) NOT NULL,
    agent_id VARCHAR(255) NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, agent_id)
)`

	var messagesSQL string
	switch dialect {
	case "postgres":
		messagesSQL = `
CREATE TABLE IF NOT EXISTS session_messages (
    id SERIAL PRIMARY KEY,
    session_id VARCHAR(255) NOT NULL,
    agent_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    message_json TEXT NOT NULL,
    sequence_num BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`
	case "mysql":
		// MySQL has no CREATE INDEX IF NOT EXISTS, so indexes are inlined.
		messagesSQL = `
CREATE TABLE IF NOT EXISTS session_messages (
    id BIGINT PRIMARY KEY AUTO_INCREMENT,
    session_id VARCHAR(255) NOT NULL,
    agent_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    message_json TEXT NOT NULL,
    sequence_num BIGINT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    KEY idx_messages_session (session_id, agent_id),
    KEY idx_messages_sequence (session_id, agent_id, sequence_num)
)`
		return []string{sessionsSQL, messagesSQL}
	default:
		messagesSQL = `
CREATE TABLE IF NOT EXISTS session_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id VARCHAR(255) NOT NULL,
    agent_id VARCHAR(255) NOT NULL,
    role VARCHAR(50) NOT NULL,
    message_json TEXT NOT NULL,
    sequence_num INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
)`
	}

	return []string{
		sessionsSQL,
		messagesSQL,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON session_messages(session_id, agent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sequence ON session_messages(session_id, agent_id, sequence_num)`,
	}
}

// AppendMessages stores messages at the tail of a session in one
// transaction.
func (s *SQLStore) AppendMessages(ctx context.Context, sessionID string, msgs ...model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	sessionID = sessionKey(sessionID)

	if err := s.ensureSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to ensure session exists: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var startSeq int64
	seqQuery := s.rebind(`SELECT COALESCE(MAX(sequence_num), 0) FROM session_messages WHERE session_id = ? AND agent_id = ?`)
	if err = tx.QueryRowContext(ctx, seqQuery, sessionID, s.agentID).Scan(&startSeq); err != nil {
		return fmt.Errorf("failed to get sequence number: %w", err)
	}

	insertQuery := s.rebind(`
INSERT INTO session_messages (session_id, agent_id, role, message_json, sequence_num, created_at)
VALUES (?, ?, ?, ?, ?, ?)`)

	now := time.Now()
	for i, msg := range msgs {
		messageJSON, marshalErr := json.Marshal(msg)
		if marshalErr != nil {
			err = fmt.Errorf("failed to marshal message at index %d: %w", i, marshalErr)
			return err
		}

		_, execErr := tx.ExecContext(ctx, insertQuery,
			sessionID, s.agentID, string(msg.Role), string(messageJSON), startSeq+int64(i)+1, now,
		)
		if execErr != nil {
			err = fmt.Errorf("failed to insert message at index %d: %w", i, execErr)
			return err
		}
	}

	updateQuery := s.rebind(`UPDATE sessions SET updated_at = ? WHERE id = ? AND agent_id = ?`)
	if _, err = tx.ExecContext(ctx, updateQuery, now, sessionID, s.agentID); err != nil {
		return fmt.Errorf("failed to update session timestamp: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadMessages returns the most recent window of a session's messages,
// oldest first.
func (s *SQLStore) LoadMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	sessionID = sessionKey(sessionID)

	query := s.rebind(`
SELECT message_json FROM (
    SELECT message_json, sequence_num
    FROM session_messages
    WHERE session_id = ? AND agent_id = ?
    ORDER BY sequence_num DESC
    LIMIT ?
) sub ORDER BY sequence_num ASC`)

	rows, err := s.db.QueryContext(ctx, query, sessionID, s.agentID, s.window)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var messageJSON string
		if err := rows.Scan(&messageJSON); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		var msg model.Message
		if err := json.Unmarshal([]byte(messageJSON), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// MessageCount returns the total stored messages for a session.
func (s *SQLStore) MessageCount(ctx context.Context, sessionID string) (int, error) {
	query := s.rebind(`SELECT COUNT(*) FROM session_messages WHERE session_id = ? AND agent_id = ?`)

	var count int
	if err := s.db.QueryRowContext(ctx, query, sessionKey(sessionID), s.agentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// DeleteSession removes a session and its messages.
func (s *SQLStore) DeleteSession(ctx context.Context, sessionID string) error {
	sessionID = sessionKey(sessionID)

	deleteMessages := s.rebind(`DELETE FROM session_messages WHERE session_id = ? AND agent_id = ?`)
	if _, err := s.db.ExecContext(ctx, deleteMessages, sessionID, s.agentID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	deleteSession := s.rebind(`DELETE FROM sessions WHERE id = ? AND agent_id = ?`)
	if _, err := s.db.ExecContext(ctx, deleteSession, sessionID, s.agentID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SessionCount returns the number of sessions stored for this agent.
func (s *SQLStore) SessionCount(ctx context.Context) (int, error) {
	query := s.rebind(`SELECT COUNT(*) FROM sessions WHERE agent_id = ?`)

	var count int
	if err := s.db.QueryRowContext(ctx, query, s.agentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

func (s *SQLStore) ensureSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := s.rebind(`SELECT id FROM sessions WHERE id = ? AND agent_id = ?`)

	var id string
	err := s.db.QueryRowContext(ctx, query, sessionID, s.agentID).Scan(&id)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to query session: %w", err)
	}

	now := time.Now()
	insertQuery := s.rebind(`INSERT INTO sessions (id, agent_id, created_at, updated_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, insertQuery, sessionID, s.agentID, now, now); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// rebind converts ? placeholders to $N for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}

	var out []byte
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// Messages implements the agent history interface. Load failures are
// logged and return an empty history.
func (s *SQLStore) Messages(sessionID string) []model.Message {
	msgs, err := s.LoadMessages(context.Background(), sessionID)
	if err != nil {
		slog.Error("Failed to load session history", "session_id", sessionKey(sessionID), "error", err)
		return nil
	}
	return msgs
}

// Append implements the agent history interface. Store failures are
// logged and the conversation continues unpersisted.
func (s *SQLStore) Append(sessionID string, msgs ...model.Message) {
	if err := s.AppendMessages(context.Background(), sessionID, msgs...); err != nil {
		slog.Error("Failed to persist session history", "session_id", sessionKey(sessionID), "error", err)
	}
}
