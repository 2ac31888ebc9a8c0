package insights

import (
	"fmt"
	"time"
)

// ThreadStore is the read surface the resolver needs: chronologically ordered
// messages in a thread strictly before a given timestamp.
type ThreadStore interface {
	ThreadParents(threadTS, before float64, limit int) ([]Message, error)
}

// ThreadContextResolver fetches the ancestors of a thread reply so a batch
// boundary doesn't strand replies like "sure, will do" without their
// antecedent. Enrichment is best-effort: a message with no thread anchor, or
// a failed lookup, contributes no context lines and never fails the batch.
type ThreadContextResolver struct {
	store      ThreadStore
	maxParents int
}

// DefaultMaxThreadParents caps how many ancestors are injected per reply.
const DefaultMaxThreadParents = 3

func NewThreadContextResolver(store ThreadStore, maxParents int) *ThreadContextResolver {
	if maxParents <= 0 {
		maxParents = DefaultMaxThreadParents
	}
	return &ThreadContextResolver{store: store, maxParents: maxParents}
}

// Parents returns up to maxParents messages in msg's thread with strictly
// smaller timestamps, oldest first. Nil when msg is not a thread reply or the
// lookup fails.
func (r *ThreadContextResolver) Parents(msg Message) []Message {
	if r == nil || r.store == nil {
		return nil
	}
	if msg.ThreadTS == nil || msg.Timestamp == 0 {
		return nil
	}
	parents, err := r.store.ThreadParents(*msg.ThreadTS, msg.Timestamp, r.maxParents)
	if err != nil {
		return nil
	}
	return parents
}

// Enrich fills batch.ContextLines with formatted ancestor lines for every
// thread reply in the batch.
func (r *ThreadContextResolver) Enrich(batch *Batch) {
	if r == nil || batch == nil {
		return
	}
	for i, msg := range batch.Messages {
		parents := r.Parents(msg)
		if len(parents) == 0 {
			continue
		}
		if batch.ContextLines == nil {
			batch.ContextLines = make(map[int][]string)
		}
		batch.ContextLines[i] = FormatThreadContext(parents)
	}
}

// FormatThreadContext renders thread ancestors as indented one-liners,
// oldest first, in the order given.
func FormatThreadContext(parents []Message) []string {
	lines := make([]string, 0, len(parents))
	for _, p := range parents {
		stamp := "??:??"
		if p.Timestamp > 0 {
			stamp = time.Unix(int64(p.Timestamp), 0).UTC().Format("15:04")
		}
		name := p.DisplayName
		if name == "" {
			name = p.UserID
		}
		if name == "" {
			name = "Unknown"
		}
		lines = append(lines, fmt.Sprintf("  ↳ %s %s: %s", stamp, name, p.Text))
	}
	return lines
}
