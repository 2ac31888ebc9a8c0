package insights

import (
	"fmt"
	"strings"
	"time"
)

// maxTranscriptChars bounds the rendered transcript so a large window cannot
// blow past the model's context budget. Lines beyond the cap are dropped with
// a truncation marker.
const maxTranscriptChars = 80_000

// FormatMessages renders a batch as a compact transcript, one line per
// message: "<date> <time> — <name>: <text>". The display name falls back to
// the raw user id. Resolved thread-context lines are inserted immediately
// before the message that references them, oldest parent first.
func FormatMessages(batch Batch) string {
	var b strings.Builder
	total := 0
	for i, msg := range batch.Messages {
		for _, ctx := range batch.ContextLines[i] {
			row := sanitizeNewlines(ctx) + "\n"
			if total+len(row) > maxTranscriptChars {
				b.WriteString("... [transcript truncated]\n")
				return b.String()
			}
			b.WriteString(row)
			total += len(row)
		}

		name := msg.DisplayName
		if name == "" {
			name = msg.UserID
		}
		if name == "" {
			name = "Unknown"
		}
		stamp := time.Unix(int64(msg.Timestamp), 0).UTC().Format("2006-01-02 15:04")
		row := fmt.Sprintf("%s — %s: %s\n", stamp, name, sanitizeNewlines(truncate(msg.Text, 2000)))
		if total+len(row) > maxTranscriptChars {
			b.WriteString("... [transcript truncated]\n")
			return b.String()
		}
		b.WriteString(row)
		total += len(row)
	}
	return b.String()
}

// BuildExtractionPrompt wraps the rendered transcript in the extraction
// instruction. The instruction wording is fixed; stability of the model's
// output format depends on it staying byte-for-byte identical between runs.
func BuildExtractionPrompt(batch Batch) string {
	var b strings.Builder
	b.WriteString(extractionInstructions)
	b.WriteString("\n\nConversation transcript:\n\n")
	b.WriteString(FormatMessages(batch))
	b.WriteString("\nReturn the JSON array now.")
	return b.String()
}

// extractionItemSchema is reflected from ExtractedItem at init so the
// contract stated in the prompt can never drift from the Go type.
var extractionItemSchema = mustSchemaJSON[ExtractedItem]()

var extractionInstructions = `You are an assistant that extracts action items from Slack conversations.

You will receive a transcript of Slack messages, one per line, formatted as
"<date> <time> — <name>: <text>". Lines starting with "↳" are earlier messages
from the same thread, included for context.

An action item is any request, commitment, or task, whether stated formally or
conversationally. Qualifying patterns include:
- Direct requests: "Can you review the PR by EOD?"
- Implicit requests: "Do you have any imagery for our AR capabilities?"
- Commitments: "I'll send you the screenshots tonight"
- Follow-ups on earlier asks: "any update on the deploy?"

Casual conversation, opinions, and status reports with no ask are NOT action
items.

For every action item, report:
- task: short imperative description
- assigner: who asked for it (name as it appears in the transcript)
- assignee: who is expected to do it
- date: the date mentioned or implied, YYYY-MM-DD, or "" if none
- status: "open", or "completed" if the transcript shows it was done
- urgency: "low", "normal", or "high"
- context: a short quote from the conversation supporting the item
- confidence: 0.0-1.0, how confident you are this is a real action item

OUTPUT:
Respond with ONLY a JSON array of objects, each matching this schema:

` + extractionItemSchema + `

If no action items qualify, respond with an empty JSON array: []
Do not include any prose, markdown fences, or explanation.`

func sanitizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
