package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/responses"
)

// QueryTranslator converts a free-text question into a constrained read-only
// SQL query plus a one-sentence explanation. The query text it produces is
// untrusted until it has passed the safety gate.
type QueryTranslator struct {
	client *openai.Client
	model  string

	// aliases maps colloquial names to stored usernames, rendered into the
	// schema hint ("Dan" = "itzaferg"). Built once by the caller, no globals.
	aliases map[string]string
}

func NewQueryTranslator(client *openai.Client, model string, aliases map[string]string) *QueryTranslator {
	return &QueryTranslator{client: client, model: model, aliases: aliases}
}

const translationSchema = `Database Schema:

Table: action_items (joined with conversations)
- task_description TEXT
- assigner_username TEXT
- assignee_username TEXT
- status TEXT (open/completed)
- urgency TEXT (low/normal/high)
- context_quote TEXT
- mentioned_date TEXT (YYYY-MM-DD)

Table: conversations
- display_name TEXT
- timestamp REAL (unix timestamp)
- message_text TEXT
- channel_name TEXT`

// Translate asks the model for a single SELECT answering the question. An
// empty returned query means "could not translate"; callers must not execute
// anything in that case.
func (t *QueryTranslator) Translate(ctx context.Context, question string) (sql, explanation string, err error) {
	if t.client == nil {
		return "", "", errors.New("Translate: client is nil")
	}
	if t.model == "" {
		return "", "", errors.New("Translate: model is empty")
	}

	prompt := t.buildTranslationPrompt(question)
	params := responses.ResponseNewParams{
		Model:           t.model,
		MaxOutputTokens: openai.Int(1024),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := t.client.Responses.New(ctx, params)
	if err != nil {
		return "", "", &ExtractionError{Kind: ClassifyModelError(err), Err: err}
	}

	sql, explanation = ParseTranslationResponse(resp.OutputText())
	return sql, explanation, nil
}

func (t *QueryTranslator) buildTranslationPrompt(question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Convert this natural language query into SQL for a Slack action items database.\n\n")
	fmt.Fprintf(&b, "User Query: %q\n\n", question)
	b.WriteString(translationSchema)
	if len(t.aliases) > 0 {
		b.WriteString("\n\nKey names in database:\n")
		for _, kv := range sortedAliasPairs(t.aliases) {
			fmt.Fprintf(&b, "- %s = %q\n", kv[0], kv[1])
		}
	}
	b.WriteString(`

Generate a SELECT query that:
1. JOINs action_items with conversations
2. Uses LIKE with % wildcards for name matching
3. Orders by timestamp DESC
4. Limits to 50 results
5. Includes: task_description, assigner_username, assignee_username, status,
   urgency, context_quote, and datetime(c.timestamp, 'unixepoch') as date

Return format:
` + "```sql\n[SQL query here]\n```" + `

Brief explanation in one sentence.`)
	return b.String()
}

// sortedAliasPairs renders the alias map in deterministic prompt order.
func sortedAliasPairs(aliases map[string]string) [][2]string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, aliases[k]})
	}
	return pairs
}

// ParseTranslationResponse extracts the fenced SQL block and the explanatory
// sentence from the model's reply. Missing fence → empty query string.
func ParseTranslationResponse(text string) (sql, explanation string) {
	if idx := strings.Index(text, "```sql"); idx != -1 {
		start := idx + len("```sql")
		if end := strings.Index(text[start:], "```"); end != -1 {
			sql = strings.TrimSpace(text[start : start+end])
		}
	} else if idx := strings.Index(text, "```"); idx != -1 {
		start := idx + len("```")
		if end := strings.Index(text[start:], "```"); end != -1 {
			sql = strings.TrimSpace(text[start : start+end])
		}
	}

	explanation = strings.TrimSpace(strings.SplitN(text, "```", 2)[0])
	if explanation == "" && sql != "" {
		parts := strings.Split(text, "```")
		explanation = strings.TrimSpace(parts[len(parts)-1])
	}
	if explanation == "" {
		explanation = "Query generated"
	}
	return sql, explanation
}

// ParseQueryParams asks the model for structured filters instead of SQL; used
// as the fallback query path when translation produces nothing executable.
func (t *QueryTranslator) ParseQueryParams(ctx context.Context, question string) (QueryParams, error) {
	if t.client == nil {
		return FallbackParseQuery(question), errors.New("ParseQueryParams: client is nil")
	}

	prompt := fmt.Sprintf(`Parse this natural language Slack query and extract search parameters.

Query: %q

Respond with ONLY a JSON object (no markdown, no explanation) with these fields:
{
  "assigner_name": "name if mentioned, else empty string",
  "status": "open, completed, or empty string",
  "recent_days": 0,
  "keywords": ["list", "of", "keywords"]
}`, question)

	params := responses.ResponseNewParams{
		Model:           t.model,
		MaxOutputTokens: openai.Int(512),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}

	resp, err := t.client.Responses.New(ctx, params)
	if err != nil {
		return FallbackParseQuery(question), nil
	}

	content := strings.TrimSpace(resp.OutputText())
	content = stripCodeFence(content)

	var qp QueryParams
	if err := json.Unmarshal([]byte(content), &qp); err != nil {
		return FallbackParseQuery(question), nil
	}
	return qp, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.IndexByte(s, '\n'); i != -1 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i != -1 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// FallbackParseQuery is the no-model heuristic: status words and common
// time-range phrases only.
func FallbackParseQuery(question string) QueryParams {
	q := strings.ToLower(question)

	var qp QueryParams
	switch {
	case strings.Contains(q, "open") || strings.Contains(q, "still") || strings.Contains(q, "pending"):
		qp.Status = "open"
	case strings.Contains(q, "completed") || strings.Contains(q, "done") || strings.Contains(q, "finished"):
		qp.Status = "completed"
	}

	switch {
	case strings.Contains(q, "last 7 days") || strings.Contains(q, "past week") || strings.Contains(q, "last week"):
		qp.RecentDays = 7
	case strings.Contains(q, "last 30 days") || strings.Contains(q, "last month"):
		qp.RecentDays = 30
	}
	return qp
}
