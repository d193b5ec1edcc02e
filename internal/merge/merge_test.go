package merge

import (
	"testing"
	"time"

	"support-console/internal/model"
)

func ts(offset time.Duration) string {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(offset).Format(time.RFC3339)
}

func confirmed(id, conv, body string, offset time.Duration) model.Message {
	return model.Message{
		ID:             id,
		ConversationID: conv,
		SenderType:     model.SenderVisitor,
		Body:           body,
		Type:           model.MessageTypeText,
		CreatedAt:      ts(offset),
	}
}

func pending(tempID, conv, body string, offset time.Duration) model.Message {
	return model.Message{
		ConversationID: conv,
		SenderType:     model.SenderAgent,
		Body:           body,
		Type:           model.MessageTypeText,
		CreatedAt:      ts(offset),
		TempID:         tempID,
		Delivery:       model.DeliveryPending,
	}
}

func TestMessagesDeduplicatesByID(t *testing.T) {
	existing := []model.Message{
		confirmed("m1", "c1", "hello", 0),
		confirmed("m2", "c1", "how can I help", time.Minute),
	}
	incoming := []model.Message{
		confirmed("m2", "c1", "how can I help", time.Minute),
		confirmed("m3", "c1", "my order is late", 2*time.Minute),
	}

	out := Messages(existing, incoming)
	if len(out) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(out))
	}
	seen := make(map[string]int)
	for _, m := range out {
		seen[m.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("id %s appears %d times", id, n)
		}
	}
}

func TestMessagesKeepsOptimisticEntries(t *testing.T) {
	existing := []model.Message{
		confirmed("m1", "c1", "hello", 0),
		pending("tmp-1", "c1", "checking now", time.Minute),
	}
	incoming := []model.Message{
		confirmed("m1", "c1", "hello", 0),
		confirmed("m2", "c1", "thanks", 2*time.Minute),
	}

	out := Messages(existing, incoming)
	if len(out) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(out))
	}
	found := false
	for _, m := range out {
		if m.TempID == "tmp-1" {
			found = true
		}
	}
	if !found {
		t.Fatal("optimistic entry was dropped by merge")
	}
}

func TestMessagesChronologicalOrder(t *testing.T) {
	existing := []model.Message{
		confirmed("m3", "c1", "third", 3*time.Minute),
		confirmed("m1", "c1", "first", 0),
	}
	incoming := []model.Message{
		confirmed("m2", "c1", "second", time.Minute),
	}

	out := Messages(existing, incoming)
	for i := 1; i < len(out); i++ {
		prev := model.ParseTime(out[i-1].CreatedAt)
		cur := model.ParseTime(out[i].CreatedAt)
		if prev.After(cur) {
			t.Fatalf("output not chronological at index %d", i)
		}
	}
	if out[0].ID != "m1" || out[1].ID != "m2" || out[2].ID != "m3" {
		t.Fatalf("unexpected order: %s %s %s", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestMessagesIdempotent(t *testing.T) {
	a := []model.Message{
		confirmed("m1", "c1", "hello", 0),
		pending("tmp-1", "c1", "on it", 30*time.Second),
	}
	b := []model.Message{
		confirmed("m2", "c1", "thanks", time.Minute),
		confirmed("m1", "c1", "hello", 0),
	}

	once := Messages(a, b)
	twice := Messages(once, b)

	if len(once) != len(twice) {
		t.Fatalf("idempotence broken: %d vs %d entries", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID || once[i].TempID != twice[i].TempID {
			t.Fatalf("idempotence broken at index %d", i)
		}
	}
}

func TestMessagesTieBreakPreservesInsertionOrder(t *testing.T) {
	existing := []model.Message{
		confirmed("m1", "c1", "first", time.Minute),
	}
	incoming := []model.Message{
		confirmed("m2", "c1", "same instant", time.Minute),
	}

	out := Messages(existing, incoming)
	if out[0].ID != "m1" || out[1].ID != "m2" {
		t.Fatalf("tie-break reordered entries: %s before %s", out[0].ID, out[1].ID)
	}
}

func conv(id string, offset time.Duration) model.Conversation {
	return model.Conversation{
		ID:        id,
		Status:    model.ConversationStatusOpen,
		CreatedAt: ts(offset),
		UpdatedAt: ts(offset),
	}
}

func TestConversationsAppendDeduplicates(t *testing.T) {
	existing := []model.Conversation{conv("c1", 0), conv("c2", time.Minute)}
	incoming := []model.Conversation{conv("c2", time.Minute), conv("c3", 2*time.Minute)}

	out := Conversations(existing, incoming, true)
	if len(out) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(out))
	}
	if out[0].ID != "c1" || out[1].ID != "c2" || out[2].ID != "c3" {
		t.Fatalf("append reordered existing entries: %s %s %s", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestConversationsRefreshIsAuthoritative(t *testing.T) {
	existing := []model.Conversation{conv("c1", 0), conv("c2", time.Minute)}
	refreshed := conv("c2", time.Minute)
	refreshed.LastMessage = "new preview"
	incoming := []model.Conversation{refreshed, conv("c4", 2*time.Minute)}

	out := Conversations(existing, incoming, false)
	if len(out) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(out))
	}
	if out[0].ID != "c2" || out[0].LastMessage != "new preview" {
		t.Fatalf("refresh did not adopt incoming record: %+v", out[0])
	}
	if out[1].ID != "c4" {
		t.Fatalf("refresh missed new conversation, got %s", out[1].ID)
	}
}

func TestConversationsIdempotent(t *testing.T) {
	existing := []model.Conversation{conv("c1", 0)}
	incoming := []model.Conversation{conv("c2", time.Minute)}

	once := Conversations(existing, incoming, true)
	twice := Conversations(once, incoming, true)
	if len(once) != len(twice) {
		t.Fatalf("idempotence broken: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("idempotence broken at index %d", i)
		}
	}
}
