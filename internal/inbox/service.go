// Package inbox is the reconciliation core of the console: it owns the
// conversation list and the open conversation's messages, settles optimistic
// sends against server confirmations, and drives notifications exactly once
// per logical event.
package inbox

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"support-console/internal/ledger"
	"support-console/internal/merge"
	"support-console/internal/model"
	"support-console/internal/notify"
	"support-console/internal/pagination"
	"support-console/internal/queue"
	"support-console/internal/session"
)

const messageHistoryLimit = 50

// SendParams describes one outbound message or private note.
type SendParams struct {
	ConversationID string
	Body           string
	Type           model.MessageType
	IsNote         bool
}

// Backend is the REST surface the service reads and writes through.
type Backend interface {
	ListConversations(ctx context.Context, limit, offset int, filter model.ConversationFilter) ([]model.Conversation, error)
	ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error)
	SendMessage(ctx context.Context, params SendParams) (model.Message, error)
	ResolveConversation(ctx context.Context, conversationID string) error
	MarkRead(ctx context.Context, conversationID string) error
}

// Cache is the optional snapshot store painted before fresh data arrives.
type Cache interface {
	GetConversations(ctx context.Context) ([]model.Conversation, bool)
	SetConversations(ctx context.Context, conversations []model.Conversation)
	GetMessages(ctx context.Context, conversationID string) ([]model.Message, bool)
	SetMessages(ctx context.Context, conversationID string, messages []model.Message)
}

// Channel is the push adapter's subscription surface.
type Channel interface {
	SetConversation(id string)
}

// Notifier gates user-facing notifications.
type Notifier interface {
	Notify(category notify.Category, title, body string, allowWhenFocused bool) bool
}

// Jobs runs REST writes off the event path.
type Jobs interface {
	Enqueue(job queue.Job)
}

// syncJobs is the fallback when no worker pool is wired; jobs run inline.
type syncJobs struct{}

func (syncJobs) Enqueue(job queue.Job) {
	err := job.Fn()
	if job.Errc != nil {
		job.Errc <- err
	}
}

type Config struct {
	Backend  Backend
	Cache    Cache
	Session  *session.Session
	Notifier Notifier
	Channel  Channel
	Jobs     Jobs

	// Now and PendingTTL are injectable for tests; zero values mean
	// time.Now and the ledger default.
	Now        func() time.Time
	PendingTTL time.Duration
	PageSize   int
}

type Service struct {
	backend  Backend
	cache    Cache
	session  *session.Session
	notifier Notifier
	channel  Channel
	jobs     Jobs
	now      func() time.Time

	pending    *ledger.Ledger
	pendingTTL time.Duration
	pager      *pagination.Controller

	mu            sync.Mutex
	conversations []model.Conversation
	selectedID    string
	messages      []model.Message
	filter        model.ConversationFilter
	failed        map[string]ledger.Entry
	primed        bool

	listener  func()
	newTempID func() string
}

func NewService(cfg Config) *Service {
	s := &Service{
		backend:   cfg.Backend,
		cache:     cfg.Cache,
		session:   cfg.Session,
		notifier:  cfg.Notifier,
		channel:   cfg.Channel,
		jobs:      cfg.Jobs,
		now:       cfg.Now,
		failed:    make(map[string]ledger.Entry),
		newTempID: uuid.NewString,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.jobs == nil {
		s.jobs = syncJobs{}
	}
	s.pendingTTL = cfg.PendingTTL
	if s.pendingTTL <= 0 {
		s.pendingTTL = ledger.DefaultTTL
	}
	s.pending = ledger.NewWithTTL(s.pendingTTL, s.expirePending)
	s.pager = pagination.NewController(cfg.PageSize, s.fetchConversationPage)
	return s
}

// SetChannel wires the push adapter after construction; the adapter needs the
// service's event handler first, so the two cannot be built in one step.
func (s *Service) SetChannel(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = ch
}

// OnChange registers the single state listener, fired after every applied
// mutation, outside the service lock.
func (s *Service) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = fn
}

func (s *Service) notifyChange() {
	s.mu.Lock()
	fn := s.listener
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Conversations returns a copy of the current conversation list.
func (s *Service) Conversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Messages returns a copy of the open conversation's message list.
func (s *Service) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Service) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

func (s *Service) Pager() *pagination.Controller {
	return s.pager
}

// Refresh paints the cached snapshot if this is the first load, then fetches
// the first page fresh. Cached data is never trusted past the first paint.
func (s *Service) Refresh(ctx context.Context) error {
	s.primeFromCache(ctx)
	s.pager.Reset()
	return s.pager.LoadMore(ctx)
}

// LoadMore fetches the next conversation page; no-op while a fetch is in
// flight or after a short page marked the listing exhausted.
func (s *Service) LoadMore(ctx context.Context) error {
	return s.pager.LoadMore(ctx)
}

// SetFilter replaces the listing filter and reloads from page zero.
func (s *Service) SetFilter(ctx context.Context, filter model.ConversationFilter) error {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()

	s.pager.Reset()
	return s.pager.LoadMore(ctx)
}

func (s *Service) primeFromCache(ctx context.Context) {
	s.mu.Lock()
	primed := s.primed
	s.primed = true
	s.mu.Unlock()
	if primed || s.cache == nil {
		return
	}

	if cached, ok := s.cache.GetConversations(ctx); ok {
		s.mu.Lock()
		if len(s.conversations) == 0 {
			s.conversations = cached
		}
		s.mu.Unlock()
		s.notifyChange()
	}
}

// fetchConversationPage is the pagination controller's fetch hook.
func (s *Service) fetchConversationPage(ctx context.Context, limit, offset int) (int, error) {
	s.mu.Lock()
	filter := s.filter
	s.mu.Unlock()

	page, err := s.backend.ListConversations(ctx, limit, offset, filter)
	if err != nil {
		return 0, newError(ErrorCodeInternal, "loading conversations failed", err)
	}

	s.mu.Lock()
	if offset == 0 {
		s.conversations = merge.Conversations(s.conversations, page, false)
	} else {
		s.conversations = merge.Conversations(s.conversations, page, true)
	}
	snapshot := make([]model.Conversation, len(s.conversations))
	copy(snapshot, s.conversations)
	s.mu.Unlock()

	if s.cache != nil && offset == 0 && filter.IsZero() {
		s.cache.SetConversations(ctx, snapshot)
	}
	s.notifyChange()
	return len(page), nil
}

// SelectConversation opens a conversation: paint cached history, move the
// push subscription, clear the unread counter, then fetch fresh history.
func (s *Service) SelectConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.selectedID == id {
		s.mu.Unlock()
		return nil
	}
	s.selectedID = id
	s.messages = nil
	s.mu.Unlock()
	s.notifyChange()

	if id == "" {
		if s.channel != nil {
			s.channel.SetConversation("")
		}
		return nil
	}

	if s.cache != nil {
		if cached, ok := s.cache.GetMessages(ctx, id); ok {
			s.mu.Lock()
			if s.selectedID == id {
				s.messages = merge.Messages(nil, cached)
			}
			s.mu.Unlock()
			s.notifyChange()
		}
	}

	if s.channel != nil {
		s.channel.SetConversation(id)
	}

	s.markReadLocally(id)
	s.jobs.Enqueue(queue.Job{Fn: func() error {
		return s.backend.MarkRead(context.Background(), id)
	}})

	history, err := s.backend.ListMessages(ctx, id, messageHistoryLimit, 0)
	if err != nil {
		return newError(ErrorCodeInternal, "loading messages failed", err)
	}

	s.mu.Lock()
	if s.selectedID != id {
		s.mu.Unlock()
		return nil
	}
	s.messages = merge.Messages(s.messages, history)
	confirmed := confirmedOnly(s.messages)
	s.mu.Unlock()

	if s.cache != nil {
		s.cache.SetMessages(ctx, id, confirmed)
	}
	s.notifyChange()
	return nil
}

func (s *Service) markReadLocally(id string) {
	s.mu.Lock()
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].UnreadCountAdmin = 0
			break
		}
	}
	s.mu.Unlock()
}

// SendMessage appends an optimistic message and registers it in the pending
// ledger in the same synchronous step, then issues the REST send off the
// event path. The optimistic copy settles on the REST response or the push
// echo, whichever lands first.
func (s *Service) SendMessage(ctx context.Context, params SendParams) (string, error) {
	if params.Body == "" {
		return "", newError(ErrorCodeValidation, "message body is empty", nil)
	}
	if params.ConversationID == "" {
		return "", newError(ErrorCodeValidation, "no conversation selected", nil)
	}
	if s.session == nil || !s.session.Valid() {
		return "", newError(ErrorCodeStaleSession, "session expired, sign in again", session.ErrStale)
	}
	if params.Type == "" {
		params.Type = model.MessageTypeText
	}

	tempID := s.newTempID()
	optimistic := model.Message{
		ConversationID: params.ConversationID,
		SenderType:     model.SenderAgent,
		SenderID:       s.session.OperatorID,
		SenderName:     s.session.Name,
		Body:           params.Body,
		Type:           params.Type,
		CreatedAt:      s.now().Format(time.RFC3339),
		TempID:         tempID,
		Delivery:       model.DeliveryPending,
	}

	entry := ledger.Entry{
		TempID:         tempID,
		ConversationID: params.ConversationID,
		Message:        optimistic,
		IsNote:         params.IsNote,
	}

	s.mu.Lock()
	if s.selectedID == params.ConversationID {
		s.messages = append(s.messages, optimistic)
	}
	s.pending.Register(entry)
	s.mu.Unlock()
	incPendingRegistered()
	s.notifyChange()

	s.enqueueSend(tempID, params)
	return tempID, nil
}

func (s *Service) enqueueSend(tempID string, params SendParams) {
	s.jobs.Enqueue(queue.Job{Fn: func() error {
		confirmed, err := s.backend.SendMessage(context.Background(), params)
		if err != nil {
			log.Printf("inbox: send failed for %s: %v", tempID, err)
			s.markFailed(tempID)
			return newError(ErrorCodeSendFailed, "message could not be delivered", err)
		}
		s.settleConfirmed(tempID, confirmed)
		return nil
	}})
}

// RetryMessage re-sends a failed optimistic message, reusing the payload the
// ledger stored at first send. The entry flips back to pending with a fresh
// expiry window.
func (s *Service) RetryMessage(ctx context.Context, tempID string) error {
	s.mu.Lock()
	entry, ok := s.failed[tempID]
	if !ok {
		s.mu.Unlock()
		return newError(ErrorCodeNotFound, "no failed message to retry", nil)
	}
	delete(s.failed, tempID)
	s.pending.Register(entry)
	for i := range s.messages {
		if s.messages[i].TempID == tempID {
			s.messages[i].Delivery = model.DeliveryPending
			break
		}
	}
	s.mu.Unlock()
	incRetry()
	s.notifyChange()

	s.enqueueSend(tempID, SendParams{
		ConversationID: entry.ConversationID,
		Body:           entry.Message.Body,
		Type:           entry.Message.Type,
		IsNote:         entry.IsNote,
	})
	return nil
}

// Resolve marks the conversation resolved locally and on the server.
func (s *Service) Resolve(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return newError(ErrorCodeValidation, "no conversation selected", nil)
	}

	s.mu.Lock()
	for i := range s.conversations {
		if s.conversations[i].ID == conversationID {
			s.conversations[i].Resolved = 1
			break
		}
	}
	s.mu.Unlock()
	s.notifyChange()

	s.jobs.Enqueue(queue.Job{Fn: func() error {
		return s.backend.ResolveConversation(context.Background(), conversationID)
	}})
	return nil
}

// settleConfirmed replaces the optimistic copy with the server-confirmed
// record. The ledger entry and the visible list change in the same step so a
// message can never show as both pending and confirmed.
func (s *Service) settleConfirmed(tempID string, confirmed model.Message) {
	s.mu.Lock()
	_, wasPending := s.pending.Remove(tempID)
	delete(s.failed, tempID)

	replaced := false
	for i := range s.messages {
		if s.messages[i].TempID == tempID {
			confirmed.TempID = ""
			confirmed.Delivery = model.DeliveryConfirmed
			s.messages[i] = confirmed
			replaced = true
			break
		}
	}
	if replaced {
		s.messages = merge.Messages(s.messages, nil)
	}
	s.mu.Unlock()

	if wasPending || replaced {
		incSettled("rest")
		s.notifyChange()
	}
}

// markFailed flips a pending message to failed and parks its ledger entry for
// manual retry. Nothing is auto-retried; duplicate sends are worse than a
// visible failure.
func (s *Service) markFailed(tempID string) {
	s.mu.Lock()
	entry, ok := s.pending.Remove(tempID)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.failed[tempID] = entry
	for i := range s.messages {
		if s.messages[i].TempID == tempID {
			s.messages[i].Delivery = model.DeliveryFailed
			break
		}
	}
	s.mu.Unlock()
	incFailed()
	s.notifyChange()
}

// expirePending is the ledger's timeout hook: a send whose confirmation never
// arrived within the TTL becomes failed-with-retry.
func (s *Service) expirePending(tempID string) {
	s.mu.Lock()
	entry, ok := s.pending.Remove(tempID)
	if !ok {
		s.mu.Unlock()
		return
	}
	s.failed[tempID] = entry
	for i := range s.messages {
		if s.messages[i].TempID == tempID {
			s.messages[i].Delivery = model.DeliveryFailed
			break
		}
	}
	s.mu.Unlock()
	incExpired()
	s.notifyChange()
}

// FailedMessages lists temp ids awaiting manual retry.
func (s *Service) FailedMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.failed))
	for tempID := range s.failed {
		out = append(out, tempID)
	}
	return out
}

func confirmedOnly(messages []model.Message) []model.Message {
	out := make([]model.Message, 0, len(messages))
	for _, m := range messages {
		if m.Optimistic() {
			continue
		}
		out = append(out, m)
	}
	return out
}
