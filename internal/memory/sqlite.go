package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/crewhub/workspace/internal/gerrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	agent TEXT NOT NULL,
	user_input TEXT NOT NULL,
	response TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_agent ON conversations (agent, timestamp);
CREATE TABLE IF NOT EXISTS agent_states (
	agent TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS session (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

type sqliteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a session database at path. Unlike the
// in-memory store, sessions survive a server restart.
func NewSQLite(ctx context.Context, path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, gerrors.Wrap(err)
	}
	// modernc.org/sqlite serializes access itself, but a single connection
	// avoids SQLITE_BUSY on concurrent writers
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, gerrors.Wrap(err)
	}
	s := &sqliteStore{db: db}
	if err := s.ensureCreatedAt(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) ensureCreatedAt(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO session (key, value) VALUES ('created_at', ?)`,
		time.Now().Format(time.RFC3339Nano))
	return gerrors.Wrap(err)
}

func (s *sqliteStore) AddConversation(ctx context.Context, conv Conversation) (Conversation, error) {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.Timestamp.IsZero() {
		conv.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, agent, user_input, response, timestamp) VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.Agent, conv.UserInput, conv.Response, conv.Timestamp.UnixNano())
	if err != nil {
		return Conversation{}, gerrors.Wrap(err)
	}
	return conv, nil
}

func (s *sqliteStore) History(ctx context.Context, agent string, limit int) ([]Conversation, error) {
	query := `SELECT id, agent, user_input, response, timestamp FROM conversations`
	args := make([]interface{}, 0, 2)
	if agent != "" {
		query += ` WHERE agent = ?`
		args = append(args, agent)
	}
	query += ` ORDER BY timestamp DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gerrors.Wrap(err)
	}
	defer func() { _ = rows.Close() }()

	conversations := make([]Conversation, 0)
	for rows.Next() {
		var conv Conversation
		var nanos int64
		if err := rows.Scan(&conv.ID, &conv.Agent, &conv.UserInput, &conv.Response, &nanos); err != nil {
			return nil, gerrors.Wrap(err)
		}
		conv.Timestamp = time.Unix(0, nanos)
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err)
	}
	// rows came newest first; callers expect chronological order
	for i, j := 0, len(conversations)-1; i < j; i, j = i+1, j-1 {
		conversations[i], conversations[j] = conversations[j], conversations[i]
	}
	return conversations, nil
}

func (s *sqliteStore) UpdateAgentState(ctx context.Context, agent string, state json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agent_states (agent, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (agent) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		agent, string(state), time.Now().UnixNano())
	return gerrors.Wrap(err)
}

func (s *sqliteStore) Clear(ctx context.Context, agent string) error {
	if agent != "" {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE agent = ?`, agent); err != nil {
			return gerrors.Wrap(err)
		}
		_, err := s.db.ExecContext(ctx, `DELETE FROM agent_states WHERE agent = ?`, agent)
		return gerrors.Wrap(err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return gerrors.Wrap(err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM agent_states`); err != nil {
		return gerrors.Wrap(err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (key, value) VALUES ('created_at', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		time.Now().Format(time.RFC3339Nano))
	return gerrors.Wrap(err)
}

func (s *sqliteStore) Export(ctx context.Context) (Export, error) {
	export := Export{AgentStates: make(map[string]json.RawMessage)}

	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session WHERE key = 'created_at'`).Scan(&createdAt)
	if err != nil {
		return Export{}, gerrors.Wrap(err)
	}
	export.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Export{}, gerrors.Wrap(err)
	}

	export.Conversations, err = s.History(ctx, "", 0)
	if err != nil {
		return Export{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT agent, state FROM agent_states`)
	if err != nil {
		return Export{}, gerrors.Wrap(err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var agent, state string
		if err := rows.Scan(&agent, &state); err != nil {
			return Export{}, gerrors.Wrap(err)
		}
		export.AgentStates[agent] = json.RawMessage(state)
	}
	return export, gerrors.Wrap(rows.Err())
}

func (s *sqliteStore) Close() error {
	return gerrors.Wrap(s.db.Close())
}
