package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func textContent(t *testing.T, s string) Content {
	t.Helper()
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	return decodeContent(t, string(raw))
}

func msg(t *testing.T, role, text string, createTime float64) *Message {
	t.Helper()
	return &Message{
		Author:     &Author{Role: role},
		Content:    textContent(t, text),
		CreateTime: createTime,
	}
}

func TestLinearize_OrdersByTimestamp(t *testing.T) {
	conv := Conversation{
		Title: "Trip Planning",
		Mapping: map[string]Node{
			"n2": {Message: msg(t, RoleAssistant, "Consider Kyoto in spring.", 1700000100)},
			"n1": {Message: msg(t, RoleUser, "Where should I go in Japan?", 1700000000)},
		},
	}

	records, err := Linearize(conv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Role != RoleUser || records[1].Role != RoleAssistant {
		t.Errorf("records out of chronological order: %+v", records)
	}
	if records[0].ConversationTitle != "Trip Planning" {
		t.Errorf("unexpected title %q", records[0].ConversationTitle)
	}
	want := time.Unix(1700000000, 0).UTC()
	if !records[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", records[0].Timestamp, want)
	}
}

func TestLinearize_UntimedRecordsSortFirst(t *testing.T) {
	conv := Conversation{
		Mapping: map[string]Node{
			"a": {Message: msg(t, RoleUser, "timed", 1600000000)},
			"b": {Message: msg(t, RoleUser, "untimed", 0)},
		},
	}

	records, err := Linearize(conv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Text != "untimed" {
		t.Errorf("untimed record should sort first, got %q", records[0].Text)
	}
	if !records[0].Timestamp.IsZero() {
		t.Errorf("untimed record should carry a zero timestamp")
	}
	if conv.Title == "" && records[0].ConversationTitle != DefaultTitle {
		t.Errorf("missing title should default to %q, got %q", DefaultTitle, records[0].ConversationTitle)
	}
}

func TestLinearize_TimestampTiesKeepNodeIDOrder(t *testing.T) {
	conv := Conversation{
		Title: "Ties",
		Mapping: map[string]Node{
			"n4": {Message: msg(t, RoleUser, "fourth", 0)},
			"n1": {Message: msg(t, RoleUser, "first", 0)},
			"n5": {Message: msg(t, RoleUser, "fifth", 1700000000)},
			"n3": {Message: msg(t, RoleUser, "third", 0)},
			"n2": {Message: msg(t, RoleUser, "second", 0)},
		},
	}

	want := []string{"first", "second", "third", "fourth", "fifth"}
	for run := 0; run < 50; run++ {
		records, err := Linearize(conv)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(records))
		}
		for i, text := range want {
			if records[i].Text != text {
				t.Fatalf("run %d: records[%d].Text = %q, want %q", run, i, records[i].Text, text)
			}
		}
	}
}

func TestLinearize_FiltersRolesAndEmptyText(t *testing.T) {
	conv := Conversation{
		Title: "Filtered",
		Mapping: map[string]Node{
			"root":   {},
			"system": {Message: msg(t, "system", "You are helpful.", 1)},
			"tool":   {Message: msg(t, "tool", "result: 42", 2)},
			"empty":  {Message: msg(t, RoleUser, "   ", 3)},
			"keep":   {Message: msg(t, RoleUser, "hello", 4)},
		},
	}

	records, err := Linearize(conv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].Text != "hello" {
		t.Fatalf("expected only the user message to survive, got %+v", records)
	}
}

func TestLinearize_SystemOnlyConversationIsEmpty(t *testing.T) {
	conv := Conversation{
		Mapping: map[string]Node{
			"s": {Message: msg(t, "system", "prompt", 1)},
			"t": {Message: msg(t, "tool", "call", 2)},
		},
	}

	records, err := Linearize(conv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty sequence, got %d records", len(records))
	}
}

func TestLinearize_MissingAuthorRoleIsFatal(t *testing.T) {
	conv := Conversation{
		Mapping: map[string]Node{
			"bad": {Message: &Message{Content: textContent(t, "orphan")}},
		},
	}

	if _, err := Linearize(conv); err == nil {
		t.Fatal("expected error for message without author role")
	}
}

func TestAssemble_ConcatenatesInExportOrder(t *testing.T) {
	conversations := []Conversation{
		{Title: "A", Mapping: map[string]Node{"1": {Message: msg(t, RoleUser, "first", 10)}}},
		{Title: "B", Mapping: map[string]Node{}},
		{Title: "C", Mapping: map[string]Node{"1": {Message: msg(t, RoleUser, "second", 5)}}},
	}

	records, err := Assemble(conversations)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Export order, not global chronological order.
	if records[0].ConversationTitle != "A" || records[1].ConversationTitle != "C" {
		t.Errorf("assembly order wrong: %+v", records)
	}
	for _, r := range records {
		if r.Text == "" {
			t.Errorf("record with empty text in output: %+v", r)
		}
	}
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conversations.json")
	raw := `[{"title": "T", "mapping": {"n": {"message": {"author": {"role": "user"}, "content": "hi", "create_time": 1700000000}}}}]`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	conversations, err := Read(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conversations) != 1 || conversations[0].Title != "T" {
		t.Fatalf("unexpected decode result: %+v", conversations)
	}

	if _, err := Read(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing export file")
	}

	badPath := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(badPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(badPath); err == nil {
		t.Error("expected error for malformed export file")
	}
}
