package push

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Status is the externally visible connection state. The adapter never
// reconnects on its own; the owner of OnStatus decides the retry policy.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

// ErrNotConfigured is returned by Connect when the endpoint or the auth token
// is missing. No connection attempt is made in that case.
var ErrNotConfigured = errors.New("push: endpoint or token not configured")

const defaultSubscribeDelay = time.Second

// Adapter owns one websocket connection per session. Events are delivered to
// the handler synchronously from a single read goroutine, so callers see
// frames strictly in arrival order.
type Adapter struct {
	url   string
	token string

	onEvent  func(Envelope)
	onStatus func(Status)

	mu             sync.Mutex
	conn           *websocket.Conn
	status         Status
	isClosed       bool
	done           chan struct{}
	conversationID string
	subscribeDelay time.Duration
	timers         []*time.Timer
}

func NewAdapter(url, token string, onEvent func(Envelope)) *Adapter {
	return &Adapter{
		url:            url,
		token:          token,
		onEvent:        onEvent,
		status:         StatusClosed,
		subscribeDelay: defaultSubscribeDelay,
	}
}

// OnStatus registers the status listener. Must be called before Connect.
func (a *Adapter) OnStatus(fn func(Status)) {
	a.onStatus = fn
}

// SetSubscribeDelay overrides the subscribe/unsubscribe debounce. Tests use
// this to avoid waiting out the production delay.
func (a *Adapter) SetSubscribeDelay(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subscribeDelay = d
}

func (a *Adapter) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Connect dials the push endpoint. It refuses to dial without both a URL and
// a token. Dial failures surface as a status change and an error; they are
// not retried here.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.url == "" || a.token == "" {
		return ErrNotConfigured
	}

	a.setStatus(StatusConnecting)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+a.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, header)
	if err != nil {
		a.setStatus(StatusError)
		return err
	}

	a.mu.Lock()
	a.conn = conn
	a.isClosed = false
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	a.setStatus(StatusOpen)
	setConnected(true)

	go a.readLoop(done)
	go a.keepAlive(done)

	// Give the server a beat to finish session setup before subscribing to
	// the conversation that was selected while we were offline.
	a.mu.Lock()
	if a.conversationID != "" {
		a.scheduleCommandLocked(commandSubscribe, a.conversationID)
	}
	a.mu.Unlock()

	return nil
}

// Send writes one JSON frame. When the channel is not open it logs and drops
// the frame instead of returning an error; transient sends are not worth
// failing callers over.
func (a *Adapter) Send(v interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil || a.isClosed {
		log.Printf("push: dropping frame, channel not open")
		return
	}
	if err := a.conn.WriteJSON(v); err != nil {
		log.Printf("push: write failed: %v", err)
	}
}

// SetConversation switches the live subscription. Any subscribe/unsubscribe
// still waiting on the debounce is cancelled first, so rapid selection
// changes never subscribe to a conversation the operator already left.
func (a *Adapter) SetConversation(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.conversationID
	a.conversationID = id
	a.cancelTimersLocked()

	if a.conn == nil || a.isClosed {
		return
	}
	if prev != "" && prev != id {
		a.scheduleCommandLocked(commandUnsubscribe, prev)
	}
	if id != "" && id != prev {
		a.scheduleCommandLocked(commandSubscribe, id)
	}
}

// Close tears the connection down. Pending subscribe timers are cancelled;
// the status listener sees a single closed transition.
func (a *Adapter) Close() {
	a.mu.Lock()
	a.cancelTimersLocked()
	if a.conn == nil || a.isClosed {
		a.mu.Unlock()
		return
	}
	a.isClosed = true
	if a.done != nil {
		close(a.done)
		a.done = nil
	}
	conn := a.conn
	a.mu.Unlock()

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
	setConnected(false)
	a.setStatus(StatusClosed)
}

func (a *Adapter) scheduleCommandLocked(command, conversationID string) {
	delay := a.subscribeDelay
	timer := time.AfterFunc(delay, func() {
		a.Send(Command{Command: command, ConversationID: conversationID})
		incSubscriptionCommand(command)
	})
	a.timers = append(a.timers, timer)
}

func (a *Adapter) cancelTimersLocked() {
	for _, t := range a.timers {
		t.Stop()
	}
	a.timers = nil
}

func (a *Adapter) setStatus(s Status) {
	a.mu.Lock()
	a.status = s
	fn := a.onStatus
	a.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (a *Adapter) readLoop(done chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("push: recovered from panic in read loop: %v", r)
		}
	}()

	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	conn.SetReadLimit(512 * 1024)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			a.handleReadError(done, err)
			return
		}

		env, decErr := DecodeEnvelope(raw)
		if decErr != nil {
			log.Printf("push: %v", decErr)
			continue
		}
		incEventReceived(string(env.Kind))
		if a.onEvent != nil {
			a.onEvent(env)
		}
	}
}

func (a *Adapter) handleReadError(done chan struct{}, err error) {
	a.mu.Lock()
	alreadyClosed := a.isClosed
	a.isClosed = true
	if a.done == done && a.done != nil {
		close(a.done)
		a.done = nil
	}
	conn := a.conn
	a.mu.Unlock()

	if alreadyClosed {
		return
	}
	conn.Close()
	setConnected(false)

	if closeErr, ok := err.(*websocket.CloseError); ok {
		if closeErr.Code == websocket.CloseNormalClosure ||
			closeErr.Code == websocket.CloseGoingAway ||
			closeErr.Code == websocket.CloseNoStatusReceived {
			a.setStatus(StatusClosed)
			return
		}
	}
	log.Printf("push: read failed: %v", err)
	a.setStatus(StatusError)
}

func (a *Adapter) keepAlive(done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			a.mu.Lock()
			if a.isClosed {
				a.mu.Unlock()
				return
			}
			err := a.conn.WriteMessage(websocket.PingMessage, nil)
			a.mu.Unlock()

			if err != nil {
				log.Printf("push: ping failed: %v", err)
				return
			}
		}
	}
}
