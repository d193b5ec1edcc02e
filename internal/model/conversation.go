package model

import "time"

type ConversationStatus string

const (
	ConversationStatusOpen    ConversationStatus = "open"
	ConversationStatusPending ConversationStatus = "pending"
	ConversationStatusClosed  ConversationStatus = "closed"
)

// Conversation is one support thread between a visitor and the operator team.
// Resolved is an integer on the wire (0/1), never a bool.
type Conversation struct {
	ID                string             `json:"id"`
	VisitorID         string             `json:"visitor_id"`
	VisitorName       string             `json:"visitor_name,omitempty"`
	Status            ConversationStatus `json:"status"`
	AgentID           string             `json:"agent_id,omitempty"`
	AgentName         string             `json:"agent_name,omitempty"`
	Resolved          int                `json:"resolved"`
	UnreadCountUser   int                `json:"unread_count_user"`
	UnreadCountAdmin  int                `json:"unread_count_admin"`
	LastMessage       string             `json:"last_message,omitempty"`
	LastMessageSender string             `json:"last_message_sender,omitempty"`
	LastMessageAt     string             `json:"last_message_at,omitempty"`
	CreatedAt         string             `json:"created_at"`
	UpdatedAt         string             `json:"updated_at"`
}

// ConversationFilter narrows the admin conversation listing. Zero value means
// no filtering.
type ConversationFilter struct {
	Search     string
	Status     ConversationStatus
	AssigneeID string
}

func (f ConversationFilter) IsZero() bool {
	return f.Search == "" && f.Status == "" && f.AssigneeID == ""
}

// ParseTime parses an RFC3339 timestamp, returning the zero time for empty or
// malformed input so ordering comparisons stay total.
func ParseTime(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
