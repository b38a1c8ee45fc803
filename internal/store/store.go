package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	// SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/parleylab/parley/internal/flow"
	"github.com/parleylab/parley/internal/model/convo"
)

// ErrNotFound is returned when a conversation or user row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps the sqlite database holding conversations and user progress.
type DB struct {
	db *sql.DB
}

// Open connects to the sqlite database at dsn. WAL journal mode and a single
// connection are the recommended settings for the modernc driver.
func Open(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("sqlite", dsn+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", dsn, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &DB{db: db}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS conversation (
	id TEXT PRIMARY KEY,
	user_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	level INTEGER NOT NULL,
	agent TEXT NOT NULL,
	info TEXT NOT NULL,
	state TEXT,
	elements TEXT NOT NULL,
	created_ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_user ON conversation (user_name, kind, level, created_ts);
CREATE TABLE IF NOT EXISTS app_user (
	name TEXT PRIMARY KEY,
	message_counts TEXT NOT NULL DEFAULT '{}',
	max_unlocked_stage TEXT NOT NULL DEFAULT 'level-0'
);
`

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// CreateConversation inserts a new conversation row.
func (d *DB) CreateConversation(ctx context.Context, c *convo.Conversation) error {
	info, state, elements, err := encodeConversation(c)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx,
		`INSERT INTO conversation (id, user_name, kind, level, agent, info, state, elements, created_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserName, string(c.Info.Kind), c.Info.Level, c.Agent, info, state, elements, c.CreatedTs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation %s: %w", c.ID, err)
	}
	return nil
}

// GetConversation loads one conversation owned by userName.
func (d *DB) GetConversation(ctx context.Context, id, userName string) (*convo.Conversation, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, user_name, kind, level, agent, info, state, elements, created_ts
		 FROM conversation WHERE id = ? AND user_name = ?`,
		id, userName,
	)
	return scanConversation(row)
}

// UpdateConversation persists the mutable parts of a conversation.
func (d *DB) UpdateConversation(ctx context.Context, c *convo.Conversation) error {
	info, state, elements, err := encodeConversation(c)
	if err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx,
		`UPDATE conversation SET agent = ?, info = ?, state = ?, elements = ? WHERE id = ?`,
		c.Agent, info, state, elements, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation %s: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListConversations returns summaries for one user and stage filter, oldest
// first.
func (d *DB) ListConversations(ctx context.Context, userName string, kind convo.Kind, level int) ([]convo.Summary, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_name, kind, level, agent, info, state, elements, created_ts
		 FROM conversation WHERE user_name = ? AND kind = ? AND level = ?
		 ORDER BY created_ts ASC, id ASC`,
		userName, string(kind), level,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	summaries := make([]convo.Summary, 0, 8)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, c.Summarize())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read conversation rows: %w", err)
	}
	return summaries, nil
}

// User is the persisted per-user progress row.
type User struct {
	Name             string
	MessageCounts    map[string]int
	MaxUnlockedStage string
}

// EnsureUser loads the user row, creating it with defaults on first use.
func (d *DB) EnsureUser(ctx context.Context, name string) (User, error) {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO app_user (name, max_unlocked_stage) VALUES (?, ?)
		 ON CONFLICT (name) DO NOTHING`,
		name, flow.StageLevel0,
	)
	if err != nil {
		return User{}, fmt.Errorf("failed to ensure user %s: %w", name, err)
	}
	return d.getUser(ctx, name)
}

// IncrementMessageCount bumps the user's sent-message count for a stage and
// returns the new value.
func (d *DB) IncrementMessageCount(ctx context.Context, name, stage string) (int, error) {
	user, err := d.getUser(ctx, name)
	if err != nil {
		return 0, err
	}

	user.MessageCounts[stage]++
	counts, err := json.Marshal(user.MessageCounts)
	if err != nil {
		return 0, fmt.Errorf("failed to encode message counts: %w", err)
	}

	if _, err := d.db.ExecContext(ctx,
		`UPDATE app_user SET message_counts = ? WHERE name = ?`, string(counts), name,
	); err != nil {
		return 0, fmt.Errorf("failed to update message counts for %s: %w", name, err)
	}
	return user.MessageCounts[stage], nil
}

// UnlockStage raises the user's highest unlocked stage.
func (d *DB) UnlockStage(ctx context.Context, name, stage string) error {
	if _, err := d.db.ExecContext(ctx,
		`UPDATE app_user SET max_unlocked_stage = ? WHERE name = ?`, stage, name,
	); err != nil {
		return fmt.Errorf("failed to unlock stage %s for %s: %w", stage, name, err)
	}
	return nil
}

func (d *DB) getUser(ctx context.Context, name string) (User, error) {
	var user User
	var counts string
	err := d.db.QueryRowContext(ctx,
		`SELECT name, message_counts, max_unlocked_stage FROM app_user WHERE name = ?`, name,
	).Scan(&user.Name, &counts, &user.MaxUnlockedStage)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("failed to load user %s: %w", name, err)
	}

	user.MessageCounts = make(map[string]int)
	if err := json.Unmarshal([]byte(counts), &user.MessageCounts); err != nil {
		return User{}, fmt.Errorf("corrupt message counts for %s: %w", name, err)
	}
	return user, nil
}

func encodeConversation(c *convo.Conversation) (info, state, elements string, err error) {
	infoBytes, err := json.Marshal(c.Info)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode info: %w", err)
	}
	elementBytes, err := json.Marshal(c.Elements)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to encode elements: %w", err)
	}
	state = ""
	if c.State != nil {
		stateBytes, err := json.Marshal(c.State)
		if err != nil {
			return "", "", "", fmt.Errorf("failed to encode state: %w", err)
		}
		state = string(stateBytes)
	}
	return string(infoBytes), state, string(elementBytes), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*convo.Conversation, error) {
	var c convo.Conversation
	var kind string
	var info, elements string
	var state sql.NullString

	err := row.Scan(&c.ID, &c.UserName, &kind, &c.Info.Level, &c.Agent, &info, &state, &elements, &c.CreatedTs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(info), &c.Info); err != nil {
		return nil, fmt.Errorf("corrupt info for conversation %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(elements), &c.Elements); err != nil {
		return nil, fmt.Errorf("corrupt elements for conversation %s: %w", c.ID, err)
	}
	if state.Valid && state.String != "" {
		c.State = &convo.State{}
		if err := json.Unmarshal([]byte(state.String), c.State); err != nil {
			return nil, fmt.Errorf("corrupt state for conversation %s: %w", c.ID, err)
		}
	}
	_ = kind // kind is duplicated inside info; the column exists for filtering
	return &c, nil
}
