// Package ledger tracks locally-created messages that have not yet been
// confirmed by the server. Each entry owns a cancellable expiry timer: a send
// whose REST response and push echo are both lost must not stay pending
// forever.
package ledger

import (
	"sync"
	"time"

	"support-console/internal/model"
)

// DefaultTTL caps how long an entry may stay pending before it is expired.
const DefaultTTL = 10 * time.Second

// Entry holds one optimistic message plus everything needed to retry the send.
type Entry struct {
	TempID         string
	ConversationID string
	Message        model.Message
	IsNote         bool

	timer *time.Timer
}

type Ledger struct {
	mu       sync.Mutex
	ttl      time.Duration
	entries  map[string]*Entry
	onExpire func(tempID string)
}

// New returns a ledger with the default TTL. onExpire is invoked from a timer
// goroutine when an entry goes unsettled past the TTL; the entry is still
// registered at that point and the callback is expected to call Remove.
func New(onExpire func(tempID string)) *Ledger {
	return NewWithTTL(DefaultTTL, onExpire)
}

func NewWithTTL(ttl time.Duration, onExpire func(tempID string)) *Ledger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{
		ttl:      ttl,
		entries:  make(map[string]*Entry),
		onExpire: onExpire,
	}
}

// Register stores the entry and arms its expiry timer. Registering an existing
// temp id replaces the entry and re-arms the timer (used by retry).
func (l *Ledger) Register(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.entries[e.TempID]; ok && old.timer != nil {
		old.timer.Stop()
	}

	stored := e
	stored.timer = time.AfterFunc(l.ttl, func() {
		l.expire(e.TempID)
	})
	l.entries[e.TempID] = &stored
}

// Remove settles an entry: its timer is cancelled and the entry is returned.
// Safe to call after expiry has already fired; ok reports whether the entry
// was still present.
func (l *Ledger) Remove(tempID string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[tempID]
	if !ok {
		return Entry{}, false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(l.entries, tempID)
	return *e, true
}

// Get returns a copy of the entry without settling it.
func (l *Ledger) Get(tempID string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[tempID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) expire(tempID string) {
	l.mu.Lock()
	_, ok := l.entries[tempID]
	l.mu.Unlock()
	if !ok {
		return
	}
	if l.onExpire != nil {
		l.onExpire(tempID)
	}
}
