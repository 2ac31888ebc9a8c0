package insights

// Message is one imported Slack message. Immutable once stored; ordering key
// is Timestamp, uniqueness key is (ChannelID, Timestamp).
type Message struct {
	ID          int64    `json:"id,omitempty"`
	ChannelID   string   `json:"channel_id"`
	ChannelName string   `json:"channel_name,omitempty"`
	UserID      string   `json:"user_id"`
	Username    string   `json:"username,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Timestamp   float64  `json:"timestamp"`
	Text        string   `json:"message_text"`
	ThreadTS    *float64 `json:"thread_ts,omitempty"`
	Kind        string   `json:"message_type,omitempty"`
}

// Batch is a summarizer-ready window of the message history plus any thread
// context lines resolved for its members. ContextLines is keyed by the index
// of the message within Messages; the lines render immediately before that
// message in the prompt. Batches are ephemeral: built per extraction call and
// discarded after it returns.
type Batch struct {
	Messages     []Message
	ContextLines map[int][]string
}

// ExtractedItem is one commitment the model pulled out of a batch. Field
// names and JSON tags match the extraction instruction's schema; the schema
// embedded in the prompt is reflected from this type.
type ExtractedItem struct {
	Task       string  `json:"task" jsonschema:"required,description=Short imperative description of the commitment"`
	Assigner   string  `json:"assigner" jsonschema:"description=Who asked for it"`
	Assignee   string  `json:"assignee" jsonschema:"description=Who is expected to do it"`
	Date       string  `json:"date" jsonschema:"description=Date mentioned or implied (YYYY-MM-DD)"`
	Status     string  `json:"status" jsonschema:"description=open or completed"`
	Urgency    string  `json:"urgency" jsonschema:"description=low normal or high"`
	Context    string  `json:"context" jsonschema:"description=Short quote from the conversation"`
	Confidence float64 `json:"confidence" jsonschema:"description=Extraction confidence 0.0-1.0"`
}

// TaskInstance is one stored action item row in the shape the grouping stage
// consumes, whether it arrived from a fresh extraction or a query result set.
type TaskInstance struct {
	Task      string  `json:"task_description"`
	Assigner  string  `json:"assigner_username"`
	Assignee  string  `json:"assignee_username,omitempty"`
	Status    string  `json:"status"`
	Urgency   string  `json:"urgency,omitempty"`
	Date      string  `json:"date,omitempty"`
	Context   string  `json:"context,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`
}

// Group collapses near-duplicate task instances for display. It is a view,
// recomputed per query, never persisted.
type Group struct {
	CanonicalTask string         `json:"canonical_task"`
	Count         int            `json:"count"`
	Instances     []TaskInstance `json:"instances"`
	FirstDate     string         `json:"first_date,omitempty"`
	LastDate      string         `json:"last_date,omitempty"`
	Status        string         `json:"status"`
	Assigner      string         `json:"assigner,omitempty"`
}

// QueryParams is the structured form of a free-text question: filters only,
// never raw SQL fragments.
type QueryParams struct {
	AssignerName string   `json:"assigner_name"`
	Status       string   `json:"status"`
	RecentDays   int      `json:"recent_days"`
	Keywords     []string `json:"keywords"`
}
