package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/carmandale/slack-insights/insights"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "insights.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func insertMessage(t *testing.T, s *Store, msg insights.Message) int64 {
	t.Helper()
	id, err := s.InsertConversation(msg)
	if err != nil {
		t.Fatalf("InsertConversation: %v", err)
	}
	return id
}

func TestInsertConversation_IdempotentOnChannelAndTimestamp(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	msg := insights.Message{ChannelID: "C01", UserID: "U01", Timestamp: 1700000000.0001, Text: "hello"}

	id1 := insertMessage(t, s, msg)
	id2 := insertMessage(t, s, msg)
	if id1 != id2 {
		t.Fatalf("ids=%d,%d, want identical for duplicate import", id1, id2)
	}

	msgs, err := s.Conversations(false)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("len(msgs)=%d, want 1", len(msgs))
	}
}

func TestConversations_Order(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	insertMessage(t, s, insights.Message{ChannelID: "C01", UserID: "U01", Timestamp: 2000, Text: "second"})
	insertMessage(t, s, insights.Message{ChannelID: "C01", UserID: "U01", Timestamp: 1000, Text: "first"})

	asc, err := s.Conversations(false)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if asc[0].Text != "first" || asc[1].Text != "second" {
		t.Fatalf("ascending order wrong: %q, %q", asc[0].Text, asc[1].Text)
	}

	desc, err := s.Conversations(true)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if desc[0].Text != "second" {
		t.Fatalf("descending order wrong: %q", desc[0].Text)
	}
}

func TestThreadParents_StrictlyBeforeOldestFirst(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	anchor := 1000.0
	// Slack marks the thread root with thread_ts equal to its own ts.
	for _, ts := range []float64{1000, 1100, 1200, 1250} {
		insertMessage(t, s, insights.Message{
			ChannelID: "C01", UserID: "U01", Timestamp: ts, Text: "m", ThreadTS: &anchor,
		})
	}
	insertMessage(t, s, insights.Message{ChannelID: "C01", UserID: "U01", Timestamp: 1150, Text: "other thread"})

	parents, err := s.ThreadParents(anchor, 1250, 2)
	if err != nil {
		t.Fatalf("ThreadParents: %v", err)
	}
	if len(parents) != 2 {
		t.Fatalf("len(parents)=%d, want 2", len(parents))
	}
	if parents[0].Timestamp != 1000 || parents[1].Timestamp != 1100 {
		t.Fatalf("parents=%f,%f, want 1000,1100", parents[0].Timestamp, parents[1].Timestamp)
	}

	all, err := s.ThreadParents(anchor, 1250, 10)
	if err != nil {
		t.Fatalf("ThreadParents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all)=%d, want 3 excluding the unthreaded message", len(all))
	}
}

func TestInsertActionItem_DefaultsAndValidation(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	convID := insertMessage(t, s, insights.Message{ChannelID: "C01", UserID: "U01", Timestamp: 1000, Text: "m"})

	if _, err := s.InsertActionItem(ActionItem{Task: "t"}); err == nil {
		t.Fatalf("err=nil, want error for zero conversation id")
	}
	if _, err := s.InsertActionItem(ActionItem{ConversationID: convID, Task: "  "}); err == nil {
		t.Fatalf("err=nil, want error for empty task")
	}

	id, err := s.InsertActionItem(ActionItem{ConversationID: convID, Task: "Review the PR", Assigner: "dan"})
	if err != nil {
		t.Fatalf("InsertActionItem: %v", err)
	}
	if id == 0 {
		t.Fatalf("id=0, want row id")
	}

	items, err := s.Items("open", 0)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items)=%d, want 1 with defaulted open status", len(items))
	}
	if items[0].Urgency != "normal" {
		t.Fatalf("Urgency=%q, want defaulted normal", items[0].Urgency)
	}
	if items[0].Context != "m" {
		t.Fatalf("Context=%q, want message text fallback", items[0].Context)
	}
}

func TestItemsByAssigner_FuzzyNameMatch(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	convID := insertMessage(t, s, insights.Message{
		ChannelID: "C01", UserID: "U01", DisplayName: "Dan Ferguson", Timestamp: 1000, Text: "m",
	})
	if _, err := s.InsertActionItem(ActionItem{ConversationID: convID, Task: "ship it", Assigner: "itzaferg"}); err != nil {
		t.Fatalf("InsertActionItem: %v", err)
	}

	byUsername, err := s.ItemsByAssigner("itzaferg", "", 0)
	if err != nil {
		t.Fatalf("ItemsByAssigner: %v", err)
	}
	if len(byUsername) != 1 {
		t.Fatalf("len(byUsername)=%d, want 1", len(byUsername))
	}

	byDisplay, err := s.ItemsByAssigner("Dan", "", 0)
	if err != nil {
		t.Fatalf("ItemsByAssigner: %v", err)
	}
	if len(byDisplay) != 1 {
		t.Fatalf("len(byDisplay)=%d, want 1 via display name", len(byDisplay))
	}

	none, err := s.ItemsByAssigner("nobody", "", 0)
	if err != nil {
		t.Fatalf("ItemsByAssigner: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("len(none)=%d, want 0", len(none))
	}
}

func TestRecentTasks_FiltersByAssigner(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	// Timestamp must be recent for the day-window filter.
	now := float64(1756500000) // 2025-08-29 UTC
	convID := insertMessage(t, s, insights.Message{ChannelID: "C01", UserID: "U01", Timestamp: now, Text: "m"})
	for _, item := range []ActionItem{
		{ConversationID: convID, Task: "task one", Assigner: "dan"},
		{ConversationID: convID, Task: "task two", Assigner: "sam"},
	} {
		if _, err := s.InsertActionItem(item); err != nil {
			t.Fatalf("InsertActionItem: %v", err)
		}
	}

	all, err := s.RecentTasks("", 36500, 10)
	if err != nil {
		t.Fatalf("RecentTasks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all)=%d, want 2", len(all))
	}

	dans, err := s.RecentTasks("dan", 36500, 10)
	if err != nil {
		t.Fatalf("RecentTasks: %v", err)
	}
	if len(dans) != 1 || dans[0].Task != "task one" {
		t.Fatalf("dans=%+v, want only dan's task", dans)
	}
}

func TestQueryRows_ReturnsColumnNamedRecords(t *testing.T) {
	t.Parallel()

	s, _ := openTestStore(t)
	convID := insertMessage(t, s, insights.Message{ChannelID: "C01", UserID: "U01", Timestamp: 1000, Text: "m"})
	if _, err := s.InsertActionItem(ActionItem{ConversationID: convID, Task: "t", Assigner: "dan"}); err != nil {
		t.Fatalf("InsertActionItem: %v", err)
	}

	rows, err := s.QueryRows("SELECT task_description, status FROM action_items LIMIT 5")
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows)=%d, want 1", len(rows))
	}
	task, ok := rows[0]["task_description"].(string)
	if !ok || task != "t" {
		t.Fatalf("task_description=%v, want t", rows[0]["task_description"])
	}
}

func TestOpenReadOnly_RejectsWrites(t *testing.T) {
	t.Parallel()

	_, path := openTestStore(t)

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()

	if _, err := ro.QueryRows("SELECT channel_id FROM conversations LIMIT 1"); err != nil {
		t.Fatalf("read on read-only handle: %v", err)
	}

	_, err = ro.db.Exec("INSERT INTO conversations (channel_id, user_id, timestamp, message_text) VALUES ('C', 'U', 1, 't')")
	if err == nil {
		t.Fatalf("err=nil, want write rejection on read-only connection")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "read") {
		t.Fatalf("err=%q, want read-only rejection", err)
	}
}

func TestOpenReadOnly_MissingDatabase(t *testing.T) {
	t.Parallel()

	ro, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.db"))
	if err == nil {
		// The driver defers opening until first use; the first read fails.
		defer ro.Close()
		if _, qerr := ro.QueryRows("SELECT 1"); qerr == nil {
			t.Fatalf("read on missing database succeeded, want error")
		}
	}
}
