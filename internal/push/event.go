// Package push maintains the persistent channel that delivers server-initiated
// events to the console: connection lifecycle, conversation subscription with
// a debounce on selection changes, and the event envelope the server speaks.
package push

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates inbound frames. Unrecognized kinds are ignored by the
// dispatcher, not treated as errors.
type Kind string

const (
	KindNewMessage            Kind = "new_message"
	KindConversationUpdate    Kind = "conversation_update"
	KindExistingMessage       Kind = "existing_message"
	KindConnectionEstablished Kind = "connection_established"
	KindSubscriptionConfirmed Kind = "subscription_confirmed"
	KindPong                  Kind = "pong"
	KindError                 Kind = "error"
)

// Envelope is the wire shape of every server frame: a kind discriminator plus
// a kind-specific payload left raw for the dispatcher to decode.
type Envelope struct {
	Kind Kind            `json:"message_type"`
	Data json.RawMessage `json:"data"`
}

func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("push: malformed frame: %w", err)
	}
	return env, nil
}

const (
	commandSubscribe   = "subscribe_conversation"
	commandUnsubscribe = "unsubscribe_conversation"
)

// Command is the client→server control frame for conversation subscriptions.
type Command struct {
	Command        string `json:"command"`
	ConversationID string `json:"conversation_id"`
}
