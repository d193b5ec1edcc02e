package model

type SenderType string

const (
	SenderAgent   SenderType = "agent"
	SenderVisitor SenderType = "visitor"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeAudio MessageType = "audio"
	MessageTypeVideo MessageType = "video"
	MessageTypeFile  MessageType = "file"
)

// DeliveryState is the local delivery lifecycle of a message. Confirmed is the
// zero value so wire-decoded messages need no extra handling.
type DeliveryState int

const (
	DeliveryConfirmed DeliveryState = iota
	DeliveryPending
	DeliveryFailed
)

func (d DeliveryState) String() string {
	switch d {
	case DeliveryPending:
		return "pending"
	case DeliveryFailed:
		return "failed"
	default:
		return "confirmed"
	}
}

// Message is a single conversation entry. Server-confirmed messages carry a
// stable ID and no TempID; locally-originated messages carry a TempID until
// they settle. TempID and Delivery are local-only and never sent to the server.
type Message struct {
	ID             string      `json:"id,omitempty"`
	ConversationID string      `json:"conversation_id"`
	SenderType     SenderType  `json:"sender_type"`
	SenderID       string      `json:"sender_id,omitempty"`
	SenderName     string      `json:"sender_name,omitempty"`
	Body           string      `json:"message"`
	Type           MessageType `json:"message_type"`
	AttachmentURL  string      `json:"attachment_url,omitempty"`
	Read           bool        `json:"read"`
	CreatedAt      string      `json:"created_at"`

	TempID   string        `json:"-"`
	Delivery DeliveryState `json:"-"`
}

// Optimistic reports whether the message is still tracked by a temp id, i.e.
// it has not yet been replaced by its server-confirmed counterpart.
func (m Message) Optimistic() bool {
	return m.TempID != ""
}
