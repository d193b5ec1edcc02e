package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"support-console/internal/model"
	"support-console/internal/push"
)

var errTest = errors.New("send rejected")

func envelope(t *testing.T, kind push.Kind, payload interface{}) push.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	return push.Envelope{Kind: kind, Data: raw}
}

func newDispatcherService(t *testing.T, backend *memBackend, notifier *memNotifier, jobs Jobs) *Service {
	t.Helper()
	cfg := Config{
		Backend: backend,
		Session: testSession(),
		Jobs:    jobs,
		Now:     fixedNow("2026-08-30T12:00:00Z"),
	}
	if notifier != nil {
		cfg.Notifier = notifier
	}
	return NewService(cfg)
}

func seedConversation(s *Service, c model.Conversation) {
	s.mu.Lock()
	s.conversations = append(s.conversations, c)
	s.mu.Unlock()
}

func selectConversation(s *Service, id string) {
	s.mu.Lock()
	s.selectedID = id
	s.mu.Unlock()
}

func TestNewMessageUpdatesPreviewAndUnread(t *testing.T) {
	notifier := &memNotifier{}
	s := newDispatcherService(t, newMemBackend(), notifier, nil)
	seedConversation(s, model.Conversation{
		ID:               "conv-1",
		VisitorName:      "Maria",
		Resolved:         1,
		UnreadCountAdmin: 2,
	})

	s.HandleEvent(envelope(t, push.KindNewMessage, model.Message{
		ID:             "m1",
		ConversationID: "conv-1",
		SenderType:     model.SenderVisitor,
		SenderName:     "Maria",
		Body:           "is my order shipped yet?",
		CreatedAt:      "2026-08-30T12:01:00Z",
	}))

	c := s.Conversations()[0]
	if c.LastMessage != "is my order shipped yet?" || c.LastMessageSender != "visitor" {
		t.Fatalf("preview not updated: %+v", c)
	}
	if c.Resolved != 0 {
		t.Fatal("visitor reply should reopen the conversation")
	}
	if c.UnreadCountAdmin != 3 {
		t.Fatalf("expected unread 3, got %d", c.UnreadCountAdmin)
	}
	if len(notifier.notified) != 1 || !strings.HasPrefix(notifier.notified[0], "new_message|Maria|") {
		t.Fatalf("expected one message notification, got %v", notifier.notified)
	}
	if notifier.focused[0] {
		t.Fatal("message notifications must respect focus suppression")
	}
}

func TestNewMessagePreviewIsTruncated(t *testing.T) {
	s := newDispatcherService(t, newMemBackend(), nil, nil)
	seedConversation(s, model.Conversation{ID: "conv-1"})

	long := strings.Repeat("a", 80)
	s.HandleEvent(envelope(t, push.KindNewMessage, model.Message{
		ID:             "m1",
		ConversationID: "conv-1",
		SenderType:     model.SenderVisitor,
		Body:           long,
		CreatedAt:      "2026-08-30T12:01:00Z",
	}))

	preview := s.Conversations()[0].LastMessage
	if len([]rune(preview)) != 51 || !strings.HasSuffix(preview, "…") {
		t.Fatalf("preview not truncated to 50 runes: %q", preview)
	}
}

func TestAgentEchoDoesNotNotify(t *testing.T) {
	notifier := &memNotifier{}
	s := newDispatcherService(t, newMemBackend(), notifier, nil)
	seedConversation(s, model.Conversation{ID: "conv-1"})

	s.HandleEvent(envelope(t, push.KindNewMessage, model.Message{
		ID:             "m1",
		ConversationID: "conv-1",
		SenderType:     model.SenderAgent,
		Body:           "on it",
		CreatedAt:      "2026-08-30T12:01:00Z",
	}))

	if len(notifier.notified) != 0 {
		t.Fatalf("own messages must not notify: %v", notifier.notified)
	}
}

func TestFuzzySettlementWithinWindow(t *testing.T) {
	jobs := &manualJobs{} // REST confirm held back so the push echo wins
	s := newDispatcherService(t, newMemBackend(), nil, jobs)
	seedConversation(s, model.Conversation{ID: "conv-1"})
	selectConversation(s, "conv-1")

	tempID, err := s.SendMessage(context.Background(), SendParams{
		ConversationID: "conv-1",
		Body:           "your refund is on the way",
	})
	if err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}

	// Echo lands 3s after the optimistic copy's local timestamp.
	s.HandleEvent(envelope(t, push.KindNewMessage, model.Message{
		ID:             "m9",
		ConversationID: "conv-1",
		SenderType:     model.SenderAgent,
		Body:           "your refund is on the way",
		CreatedAt:      "2026-08-30T12:00:03Z",
	}))

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("echo should settle, not duplicate: %+v", msgs)
	}
	if msgs[0].ID != "m9" || msgs[0].TempID != "" || msgs[0].Delivery != model.DeliveryConfirmed {
		t.Fatalf("expected settled message, got %+v", msgs[0])
	}
	if _, ok := s.pending.Get(tempID); ok {
		t.Fatal("ledger entry should be settled")
	}
}

func TestFuzzySettlementOutsideWindowAppends(t *testing.T) {
	jobs := &manualJobs{}
	s := newDispatcherService(t, newMemBackend(), nil, jobs)
	seedConversation(s, model.Conversation{ID: "conv-1"})
	selectConversation(s, "conv-1")

	if _, err := s.SendMessage(context.Background(), SendParams{
		ConversationID: "conv-1",
		Body:           "your refund is on the way",
	}); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}

	// Same body, but 15s away: someone else's identical message, not ours.
	s.HandleEvent(envelope(t, push.KindNewMessage, model.Message{
		ID:             "m9",
		ConversationID: "conv-1",
		SenderType:     model.SenderAgent,
		Body:           "your refund is on the way",
		CreatedAt:      "2026-08-30T12:00:15Z",
	}))

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("out-of-window echo should append, got %+v", msgs)
	}
	if s.pending.Len() != 1 {
		t.Fatal("pending entry should survive an out-of-window echo")
	}
}

func TestFuzzySettlementSkipsFailedEntries(t *testing.T) {
	jobs := &manualJobs{}
	backend := newMemBackend()
	backend.sendErr = errTest
	s := newDispatcherService(t, backend, nil, jobs)
	seedConversation(s, model.Conversation{ID: "conv-1"})
	selectConversation(s, "conv-1")

	if _, err := s.SendMessage(context.Background(), SendParams{
		ConversationID: "conv-1",
		Body:           "hello",
	}); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	jobs.runAll() // send fails, entry parks as failed

	s.HandleEvent(envelope(t, push.KindNewMessage, model.Message{
		ID:             "m9",
		ConversationID: "conv-1",
		SenderType:     model.SenderAgent,
		Body:           "hello",
		CreatedAt:      "2026-08-30T12:00:02Z",
	}))

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("failed entry must not settle, got %+v", msgs)
	}
	if len(s.FailedMessages()) != 1 {
		t.Fatal("failed entry should remain retryable")
	}
}

func TestRestConfirmBeforeEchoLeavesSingleMessage(t *testing.T) {
	jobs := &manualJobs{}
	s := newDispatcherService(t, newMemBackend(), nil, jobs)
	seedConversation(s, model.Conversation{ID: "conv-1"})
	selectConversation(s, "conv-1")

	if _, err := s.SendMessage(context.Background(), SendParams{
		ConversationID: "conv-1",
		Body:           "hello",
	}); err != nil {
		t.Fatalf("SendMessage error: %v", err)
	}
	jobs.runAll() // REST confirms first, assigning msg-1

	s.HandleEvent(envelope(t, push.KindNewMessage, model.Message{
		ID:             "msg-1",
		ConversationID: "conv-1",
		SenderType:     model.SenderAgent,
		Body:           "hello",
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}))

	if msgs := s.Messages(); len(msgs) != 1 || msgs[0].ID != "msg-1" {
		t.Fatalf("echo after REST confirm duplicated the message: %+v", msgs)
	}
}

func TestConversationUpdateForUnknownIDPrepends(t *testing.T) {
	notifier := &memNotifier{}
	s := newDispatcherService(t, newMemBackend(), notifier, nil)
	seedConversation(s, model.Conversation{ID: "conv-1"})

	s.HandleEvent(envelope(t, push.KindConversationUpdate, model.Conversation{
		ID:          "conv-2",
		VisitorName: "Jonas",
		UpdatedAt:   "2026-08-30T12:05:00Z",
	}))

	conversations := s.Conversations()
	if len(conversations) != 2 || conversations[0].ID != "conv-2" {
		t.Fatalf("new conversation should prepend: %+v", conversations)
	}
	if conversations[0].CreatedAt != "2026-08-30T12:05:00Z" {
		t.Fatal("missing created_at should fall back to updated_at")
	}
	if len(notifier.notified) != 1 || !strings.Contains(notifier.notified[0], "new_conversation") {
		t.Fatalf("expected new-conversation notification, got %v", notifier.notified)
	}
	if !notifier.focused[0] {
		t.Fatal("new-conversation notifications bypass focus suppression")
	}
}

func TestConversationUpdateMergesKnownRecord(t *testing.T) {
	notifier := &memNotifier{}
	s := newDispatcherService(t, newMemBackend(), notifier, nil)
	seedConversation(s, model.Conversation{
		ID:          "conv-1",
		VisitorName: "Maria",
		LastMessage: "old preview",
		CreatedAt:   "2026-08-30T10:00:00Z",
	})

	s.HandleEvent(envelope(t, push.KindConversationUpdate, model.Conversation{
		ID:        "conv-1",
		UpdatedAt: "2026-08-30T12:05:00Z",
	}))

	c := s.Conversations()[0]
	if c.LastMessage != "old preview" {
		t.Fatal("empty preview fields must not clobber existing ones")
	}
	if c.UpdatedAt != "2026-08-30T12:05:00Z" {
		t.Fatal("non-empty update fields should apply")
	}
	if len(notifier.notified) != 0 {
		t.Fatalf("updates to known conversations must not notify: %v", notifier.notified)
	}
}

func TestExistingMessageAppendsWithoutNotification(t *testing.T) {
	notifier := &memNotifier{}
	s := newDispatcherService(t, newMemBackend(), notifier, nil)
	selectConversation(s, "conv-1")
	s.mu.Lock()
	s.messages = []model.Message{
		{ID: "m2", ConversationID: "conv-1", CreatedAt: "2026-08-30T12:02:00Z"},
	}
	s.mu.Unlock()

	s.HandleEvent(envelope(t, push.KindExistingMessage, model.Message{
		ID:             "m1",
		ConversationID: "conv-1",
		SenderType:     model.SenderVisitor,
		CreatedAt:      "2026-08-30T12:01:00Z",
	}))
	// Replay of an id already present is dropped.
	s.HandleEvent(envelope(t, push.KindExistingMessage, model.Message{
		ID:             "m2",
		ConversationID: "conv-1",
		CreatedAt:      "2026-08-30T12:02:00Z",
	}))

	msgs := s.Messages()
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("replayed history misapplied: %+v", msgs)
	}
	if len(notifier.notified) != 0 {
		t.Fatalf("history replay must never notify: %v", notifier.notified)
	}
}

func TestMessagesForOtherConversationsIgnored(t *testing.T) {
	s := newDispatcherService(t, newMemBackend(), nil, nil)
	seedConversation(s, model.Conversation{ID: "conv-1"})
	seedConversation(s, model.Conversation{ID: "conv-2"})
	selectConversation(s, "conv-1")

	s.HandleEvent(envelope(t, push.KindNewMessage, model.Message{
		ID:             "m1",
		ConversationID: "conv-2",
		SenderType:     model.SenderVisitor,
		Body:           "hi",
		CreatedAt:      "2026-08-30T12:01:00Z",
	}))

	if len(s.Messages()) != 0 {
		t.Fatal("messages for other conversations must not enter the open view")
	}
	if s.Conversations()[1].UnreadCountAdmin != 1 {
		t.Fatal("unread bookkeeping still applies to background conversations")
	}
}

func TestUnknownAndMalformedEventsIgnored(t *testing.T) {
	s := newDispatcherService(t, newMemBackend(), nil, nil)
	seedConversation(s, model.Conversation{ID: "conv-1"})

	s.HandleEvent(push.Envelope{Kind: "totally_new_kind", Data: json.RawMessage(`{}`)})
	s.HandleEvent(push.Envelope{Kind: push.KindNewMessage, Data: json.RawMessage(`not json`)})
	s.HandleEvent(envelope(t, push.KindPong, map[string]string{}))

	if len(s.Conversations()) != 1 {
		t.Fatal("ignored events must not change state")
	}
}
