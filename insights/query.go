package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCouldNotTranslate is returned when the model produced no executable
// query for a question. Callers may fall back to structured parameter
// parsing; they must not execute anything.
var ErrCouldNotTranslate = errors.New("could not translate question into a query")

// RowSource is a read-only handle the executor runs validated query text
// against. Closed on every exit path of a query.
type RowSource interface {
	QueryRows(query string) ([]map[string]any, error)
	Close() error
}

// Translator converts a free-text question into query text plus a one-line
// explanation. An empty query means "could not translate".
type Translator interface {
	Translate(ctx context.Context, question string) (sql, explanation string, err error)
}

// QueryResult is the full answer to one natural-language question: the
// grouped items plus the translated query and its explanation for
// transparency.
type QueryResult struct {
	Groups      []Group
	SQL         string
	Explanation string
}

// QueryService runs the natural-language query flow end to end: rate limit,
// translate, validate, execute read-only, group. Rejections and failures are
// terminal; no partial result set is ever returned.
type QueryService struct {
	Translator Translator
	Limiter    *RateLimiter

	// OpenReadOnly opens a fresh read-only handle per query. The handle is
	// the second, independent defense layer behind the static gate.
	OpenReadOnly func() (RowSource, error)
}

// Execute answers one free-text question.
func (s *QueryService) Execute(ctx context.Context, question string) (*QueryResult, error) {
	if s.Translator == nil {
		return nil, errors.New("Execute: translator is nil")
	}
	if s.OpenReadOnly == nil {
		return nil, errors.New("Execute: no read-only opener configured")
	}

	if s.Limiter != nil {
		if ok, wait := s.Limiter.Allow(); !ok {
			return nil, fmt.Errorf("rate limit exceeded, wait %s before querying again", wait.Round(time.Second))
		}
	}

	sqlText, explanation, err := s.Translator.Translate(ctx, question)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(sqlText) == "" {
		return nil, ErrCouldNotTranslate
	}

	if err := ValidateQuery(sqlText); err != nil {
		return nil, err
	}

	rows, err := s.executeReadOnly(sqlText)
	if err != nil {
		return nil, err
	}

	groups := GroupSimilar(InstancesFromRows(rows), GroupingThreshold)
	return &QueryResult{Groups: groups, SQL: sqlText, Explanation: explanation}, nil
}

// executeReadOnly runs validated query text on a fresh read-only handle and
// closes it on every exit path. A write rejection from the database layer is
// reported as a SafetyViolation, not a storage error.
func (s *QueryService) executeReadOnly(sqlText string) ([]map[string]any, error) {
	src, err := s.OpenReadOnly()
	if err != nil {
		return nil, fmt.Errorf("open read-only store: %w", err)
	}
	defer src.Close()

	rows, err := src.QueryRows(sqlText)
	if err != nil {
		if v := AsReadOnlyViolation(err); v != nil {
			return nil, v
		}
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return rows, nil
}

// InstancesFromRows maps executor records onto task instances. Column names
// follow the translation prompt's contract, with fallbacks for the aliases
// the model tends to produce.
func InstancesFromRows(rows []map[string]any) []TaskInstance {
	out := make([]TaskInstance, 0, len(rows))
	for _, row := range rows {
		inst := TaskInstance{
			Task:     rowString(row, "task_description", "task"),
			Assigner: rowString(row, "assigner_username", "assigner"),
			Assignee: rowString(row, "assignee_username", "assignee"),
			Status:   rowString(row, "status"),
			Urgency:  rowString(row, "urgency"),
			Date:     rowString(row, "date", "mentioned_date", "message_date"),
			Context:  rowString(row, "context_quote", "context", "message_text"),
		}
		if ts, ok := rowFloat(row, "timestamp", "original_timestamp"); ok {
			inst.Timestamp = ts
		}
		if inst.Task == "" {
			continue
		}
		out = append(out, inst)
	}
	return out
}

func rowString(row map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := row[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case []byte:
			if len(v) > 0 {
				return string(v)
			}
		}
	}
	return ""
}

func rowFloat(row map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := row[key].(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		}
	}
	return 0, false
}
