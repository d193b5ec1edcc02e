// Package cache keeps a redis snapshot of the last rendered inbox so a
// restarted console paints instantly while fresh data loads behind it. The
// cache is advisory: every miss or redis error degrades to a plain fetch.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"support-console/internal/model"
)

const (
	conversationsKey  = "console:conversations"
	messagesKeyPrefix = "console:messages:"
	snapshotTTL       = 24 * time.Hour
)

type Snapshot struct {
	client *redis.Client
}

func New(client *redis.Client) *Snapshot {
	return &Snapshot{client: client}
}

// GetConversations returns the cached conversation list. The second return
// is false on a miss or any redis failure.
func (s *Snapshot) GetConversations(ctx context.Context) ([]model.Conversation, bool) {
	if s == nil || s.client == nil {
		return nil, false
	}
	raw, err := s.client.Get(ctx, conversationsKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("cache: reading conversations: %v", err)
		return nil, false
	}

	var conversations []model.Conversation
	if err := json.Unmarshal(raw, &conversations); err != nil {
		log.Printf("cache: corrupt conversations snapshot: %v", err)
		return nil, false
	}
	incHit("conversations")
	return conversations, true
}

func (s *Snapshot) SetConversations(ctx context.Context, conversations []model.Conversation) {
	if s == nil || s.client == nil {
		return
	}
	raw, err := json.Marshal(conversations)
	if err != nil {
		log.Printf("cache: encoding conversations: %v", err)
		return
	}
	if err := s.client.Set(ctx, conversationsKey, raw, snapshotTTL).Err(); err != nil {
		log.Printf("cache: writing conversations: %v", err)
	}
}

// GetMessages returns the cached message history for one conversation.
func (s *Snapshot) GetMessages(ctx context.Context, conversationID string) ([]model.Message, bool) {
	if s == nil || s.client == nil {
		return nil, false
	}
	raw, err := s.client.Get(ctx, messagesKeyPrefix+conversationID).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("cache: reading messages for %s: %v", conversationID, err)
		return nil, false
	}

	var messages []model.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		log.Printf("cache: corrupt message snapshot for %s: %v", conversationID, err)
		return nil, false
	}
	incHit("messages")
	return messages, true
}

// SetMessages stores the confirmed history for one conversation. Callers must
// filter out optimistic entries first; a pending message revived from cache
// after a restart could never settle.
func (s *Snapshot) SetMessages(ctx context.Context, conversationID string, messages []model.Message) {
	if s == nil || s.client == nil {
		return
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		log.Printf("cache: encoding messages for %s: %v", conversationID, err)
		return
	}
	if err := s.client.Set(ctx, messagesKeyPrefix+conversationID, raw, snapshotTTL).Err(); err != nil {
		log.Printf("cache: writing messages for %s: %v", conversationID, err)
	}
}
