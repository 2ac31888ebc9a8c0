package insights

import (
	"strings"
	"testing"
)

func TestFormatMessages_LineShape(t *testing.T) {
	t.Parallel()

	batch := Batch{Messages: []Message{
		{Timestamp: 1700000000, DisplayName: "Dan", Text: "Can you review the PR?"},
	}}
	got := FormatMessages(batch)
	// 1700000000 is 2023-11-14 22:13:20 UTC.
	want := "2023-11-14 22:13 — Dan: Can you review the PR?\n"
	if got != want {
		t.Fatalf("FormatMessages=%q, want %q", got, want)
	}
}

func TestFormatMessages_NameFallback(t *testing.T) {
	t.Parallel()

	batch := Batch{Messages: []Message{
		{Timestamp: 1700000000, UserID: "U42", Text: "ok"},
		{Timestamp: 1700000060, Text: "anonymous"},
	}}
	got := FormatMessages(batch)
	if !strings.Contains(got, "U42:") {
		t.Fatalf("output=%q, want user id fallback", got)
	}
	if !strings.Contains(got, "Unknown:") {
		t.Fatalf("output=%q, want Unknown fallback", got)
	}
}

func TestFormatMessages_ContextLinesPrecedeMessage(t *testing.T) {
	t.Parallel()

	batch := Batch{
		Messages: []Message{
			{Timestamp: 1700000000, DisplayName: "Dan", Text: "first"},
			{Timestamp: 1700000060, DisplayName: "Sam", Text: "sure, will do"},
		},
		ContextLines: map[int][]string{
			1: {"  ↳ 10:00 Dan: can you deploy?"},
		},
	}
	got := FormatMessages(batch)
	ctxIdx := strings.Index(got, "can you deploy?")
	msgIdx := strings.Index(got, "sure, will do")
	if ctxIdx == -1 || msgIdx == -1 || ctxIdx > msgIdx {
		t.Fatalf("context line not before its message:\n%s", got)
	}
}

func TestFormatMessages_NewlinesFlattened(t *testing.T) {
	t.Parallel()

	batch := Batch{Messages: []Message{
		{Timestamp: 1700000000, DisplayName: "Dan", Text: "line1\nline2"},
	}}
	got := FormatMessages(batch)
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("output=%q, want exactly one trailing newline", got)
	}
	if !strings.Contains(got, `line1\nline2`) {
		t.Fatalf("output=%q, want escaped newline in text", got)
	}
}

func TestFormatMessages_TruncatesLongTranscript(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 1900)
	msgs := make([]Message, 60)
	for i := range msgs {
		msgs[i] = Message{Timestamp: float64(1700000000 + i), DisplayName: "Dan", Text: long}
	}
	got := FormatMessages(Batch{Messages: msgs})
	if len(got) > maxTranscriptChars+100 {
		t.Fatalf("len(output)=%d, want bounded near %d", len(got), maxTranscriptChars)
	}
	if !strings.Contains(got, "[transcript truncated]") {
		t.Fatalf("output missing truncation marker")
	}
}

func TestBuildExtractionPrompt_Deterministic(t *testing.T) {
	t.Parallel()

	batch := Batch{Messages: []Message{
		{Timestamp: 1700000000, DisplayName: "Dan", Text: "ship it"},
	}}
	p1 := BuildExtractionPrompt(batch)
	p2 := BuildExtractionPrompt(batch)
	if p1 != p2 {
		t.Fatalf("prompt not byte-stable across calls")
	}
	if !strings.Contains(p1, "JSON array") {
		t.Fatalf("prompt missing output contract")
	}
	if !strings.Contains(p1, `"task"`) {
		t.Fatalf("prompt missing embedded item schema")
	}
	if !strings.Contains(p1, "ship it") {
		t.Fatalf("prompt missing transcript")
	}
}
