// Package store is the SQLite persistence layer: imported conversations and
// the action items extracted from them. The write path runs in WAL mode so
// readers stay live during imports; the query path opens a separate
// connection in enforced read-only mode.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/carmandale/slack-insights/insights"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id TEXT NOT NULL,
	channel_name TEXT,
	user_id TEXT NOT NULL,
	username TEXT,
	display_name TEXT,
	timestamp REAL NOT NULL,
	message_text TEXT NOT NULL,
	thread_ts REAL,
	message_type TEXT,
	raw_json TEXT,
	imported_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(channel_id, timestamp)
);

CREATE TABLE IF NOT EXISTS action_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL REFERENCES conversations(id),
	task_description TEXT NOT NULL,
	assignee_user_id TEXT,
	assignee_username TEXT,
	assigner_user_id TEXT,
	assigner_username TEXT,
	mentioned_date TEXT,
	status TEXT DEFAULT 'open',
	urgency TEXT DEFAULT 'normal',
	context_quote TEXT,
	extracted_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schema_versions (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_conversations_channel_id ON conversations(channel_id);
CREATE INDEX IF NOT EXISTS idx_conversations_thread_ts ON conversations(thread_ts);
CREATE INDEX IF NOT EXISTS idx_conversations_timestamp ON conversations(timestamp);
CREATE INDEX IF NOT EXISTS idx_action_items_assigner ON action_items(assigner_username);
CREATE INDEX IF NOT EXISTS idx_action_items_status ON action_items(status);
`

// ActionItem is one extracted commitment bound to its source conversation
// row.
type ActionItem struct {
	ConversationID int64
	Task           string
	AssigneeUserID string
	Assignee       string
	AssignerUserID string
	Assigner       string
	MentionedDate  string
	Status         string
	Urgency        string
	ContextQuote   string
}

// Store wraps a single SQLite connection.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Open opens (creating if needed) the database at path with WAL and foreign
// keys enabled, and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store.Open: path is empty")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", url.PathEscape(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store.Open: apply schema: %w", err)
	}
	if _, err := db.Exec("INSERT OR IGNORE INTO schema_versions(version) VALUES (?)", schemaVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store.Open: record schema version: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens the database at path in enforced read-only mode. Any
// write through this handle fails at the database layer regardless of what
// the statement text claims to be.
func OpenReadOnly(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store.OpenReadOnly: path is empty")
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", url.PathEscape(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store.OpenReadOnly: %w", err)
	}
	return &Store{db: db, readOnly: true}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertConversation inserts a message, idempotently on (channel_id,
// timestamp): re-importing an overlapping export returns the existing row id
// instead of duplicating it.
func (s *Store) InsertConversation(msg insights.Message) (int64, error) {
	if s.readOnly {
		return 0, errors.New("InsertConversation: store is read-only")
	}
	res, err := s.db.Exec(`
		INSERT OR IGNORE INTO conversations
			(channel_id, channel_name, user_id, username, display_name, timestamp, message_text, thread_ts, message_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ChannelID, nullable(msg.ChannelName), msg.UserID, nullable(msg.Username),
		nullable(msg.DisplayName), msg.Timestamp, msg.Text, msg.ThreadTS, nullable(msg.Kind),
	)
	if err != nil {
		return 0, fmt.Errorf("InsertConversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("InsertConversation: last insert id: %w", err)
		}
		return id, nil
	}

	var id int64
	err = s.db.QueryRow(
		"SELECT id FROM conversations WHERE channel_id = ? AND timestamp = ?",
		msg.ChannelID, msg.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("InsertConversation: lookup existing: %w", err)
	}
	return id, nil
}

// InsertActionItem stores one extracted item.
func (s *Store) InsertActionItem(item ActionItem) (int64, error) {
	if s.readOnly {
		return 0, errors.New("InsertActionItem: store is read-only")
	}
	if item.ConversationID == 0 {
		return 0, errors.New("InsertActionItem: conversation id is zero")
	}
	if strings.TrimSpace(item.Task) == "" {
		return 0, errors.New("InsertActionItem: task description is empty")
	}
	status := item.Status
	if status == "" {
		status = "open"
	}
	urgency := item.Urgency
	if urgency == "" {
		urgency = "normal"
	}
	res, err := s.db.Exec(`
		INSERT INTO action_items
			(conversation_id, task_description, assignee_user_id, assignee_username,
			 assigner_user_id, assigner_username, mentioned_date, status, urgency, context_quote)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ConversationID, item.Task, nullable(item.AssigneeUserID), nullable(item.Assignee),
		nullable(item.AssignerUserID), nullable(item.Assigner), nullable(item.MentionedDate),
		status, urgency, nullable(item.ContextQuote),
	)
	if err != nil {
		return 0, fmt.Errorf("InsertActionItem: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("InsertActionItem: last insert id: %w", err)
	}
	return id, nil
}

// Conversations returns every stored message ordered by timestamp.
func (s *Store) Conversations(newestFirst bool) ([]insights.Message, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	rows, err := s.db.Query(`
		SELECT id, channel_id, COALESCE(channel_name, ''), user_id, COALESCE(username, ''),
			COALESCE(display_name, ''), timestamp, message_text, thread_ts, COALESCE(message_type, '')
		FROM conversations ORDER BY timestamp ` + order)
	if err != nil {
		return nil, fmt.Errorf("Conversations: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ThreadParents returns up to limit messages in the thread anchored at
// threadTS with timestamps strictly before the given one, oldest first.
// Satisfies insights.ThreadStore.
func (s *Store) ThreadParents(threadTS, before float64, limit int) ([]insights.Message, error) {
	rows, err := s.db.Query(`
		SELECT id, channel_id, COALESCE(channel_name, ''), user_id, COALESCE(username, ''),
			COALESCE(display_name, ''), timestamp, message_text, thread_ts, COALESCE(message_type, '')
		FROM conversations
		WHERE thread_ts = ? AND timestamp < ?
		ORDER BY timestamp ASC
		LIMIT ?`, threadTS, before, limit)
	if err != nil {
		return nil, fmt.Errorf("ThreadParents: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]insights.Message, error) {
	var out []insights.Message
	for rows.Next() {
		var m insights.Message
		var threadTS sql.NullFloat64
		if err := rows.Scan(&m.ID, &m.ChannelID, &m.ChannelName, &m.UserID, &m.Username,
			&m.DisplayName, &m.Timestamp, &m.Text, &threadTS, &m.Kind); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if threadTS.Valid {
			v := threadTS.Float64
			m.ThreadTS = &v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ItemsByAssigner returns action items whose assigner or source display name
// fuzzily matches name, optionally filtered by status and a recent-days
// window, newest first.
func (s *Store) ItemsByAssigner(name, status string, recentDays int) ([]insights.TaskInstance, error) {
	query := `
		SELECT ai.task_description, COALESCE(ai.assigner_username, ''), COALESCE(ai.assignee_username, ''),
			ai.status, ai.urgency, COALESCE(ai.mentioned_date, ''), COALESCE(ai.context_quote, c.message_text),
			c.timestamp
		FROM action_items ai
		JOIN conversations c ON ai.conversation_id = c.id
		WHERE (ai.assigner_username LIKE ? OR c.display_name LIKE ?)`
	pattern := "%" + name + "%"
	args := []any{pattern, pattern}

	if status != "" {
		query += " AND ai.status = ?"
		args = append(args, status)
	}
	if recentDays > 0 {
		query += " AND date(c.timestamp, 'unixepoch') >= date('now', ? || ' days')"
		args = append(args, fmt.Sprintf("-%d", recentDays))
	}
	query += " ORDER BY c.timestamp DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ItemsByAssigner: %w", err)
	}
	defer rows.Close()
	return scanInstances(rows)
}

// Items returns action items with optional status and recent-days filters,
// newest first.
func (s *Store) Items(status string, recentDays int) ([]insights.TaskInstance, error) {
	query := `
		SELECT ai.task_description, COALESCE(ai.assigner_username, ''), COALESCE(ai.assignee_username, ''),
			ai.status, ai.urgency, COALESCE(ai.mentioned_date, ''), COALESCE(ai.context_quote, c.message_text),
			c.timestamp
		FROM action_items ai
		JOIN conversations c ON ai.conversation_id = c.id
		WHERE 1=1`
	var args []any

	if status != "" {
		query += " AND ai.status = ?"
		args = append(args, status)
	}
	if recentDays > 0 {
		query += " AND date(c.timestamp, 'unixepoch') >= date('now', ? || ' days')"
		args = append(args, fmt.Sprintf("-%d", recentDays))
	}
	query += " ORDER BY c.timestamp DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("Items: %w", err)
	}
	defer rows.Close()
	return scanInstances(rows)
}

func scanInstances(rows *sql.Rows) ([]insights.TaskInstance, error) {
	var out []insights.TaskInstance
	for rows.Next() {
		var inst insights.TaskInstance
		if err := rows.Scan(&inst.Task, &inst.Assigner, &inst.Assignee, &inst.Status,
			&inst.Urgency, &inst.Date, &inst.Context, &inst.Timestamp); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		if inst.Date == "" && inst.Timestamp > 0 {
			inst.Date = fmt.Sprintf("%.0f", inst.Timestamp)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// RecentTasks returns stored tasks from the last daysBack days, newest first,
// capped at limit, optionally restricted to one assigner. Satisfies
// insights.DuplicateSource.
func (s *Store) RecentTasks(assigner string, daysBack, limit int) ([]insights.StoredTask, error) {
	query := `
		SELECT ai.id, ai.task_description, COALESCE(ai.assigner_username, '')
		FROM action_items ai
		JOIN conversations c ON ai.conversation_id = c.id
		WHERE datetime(c.timestamp, 'unixepoch') >= datetime('now', ? || ' days')`
	args := []any{fmt.Sprintf("-%d", daysBack)}

	if assigner != "" {
		query += " AND ai.assigner_username = ?"
		args = append(args, assigner)
	}
	query += " ORDER BY c.timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("RecentTasks: %w", err)
	}
	defer rows.Close()

	var out []insights.StoredTask
	for rows.Next() {
		var t insights.StoredTask
		if err := rows.Scan(&t.ID, &t.Task, &t.Assigner); err != nil {
			return nil, fmt.Errorf("RecentTasks: scan: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// QueryRows executes an already-validated query text and returns the rows as
// ordered column-name → value records. No parameter substitution happens
// here: the validated query text is the trusted artifact, and nothing
// unvalidated may reach this method.
func (s *Store) QueryRows(query string) ([]map[string]any, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("QueryRows: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("QueryRows: columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("QueryRows: scan: %w", err)
		}
		rec := make(map[string]any, len(cols))
		for i, col := range cols {
			rec[col] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
