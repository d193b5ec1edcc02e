package inbox

import (
	"encoding/json"
	"log"

	"support-console/internal/merge"
	"support-console/internal/model"
	"support-console/internal/notify"
	"support-console/internal/push"
	"support-console/utils"
)

// HandleEvent is the single entry point for push frames, called once per
// inbound frame in arrival order. Unrecognized kinds are dropped silently.
func (s *Service) HandleEvent(env push.Envelope) {
	switch env.Kind {
	case push.KindNewMessage:
		var m model.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			log.Printf("inbox: malformed new_message payload: %v", err)
			return
		}
		s.handleNewMessage(m)
	case push.KindConversationUpdate:
		var c model.Conversation
		if err := json.Unmarshal(env.Data, &c); err != nil {
			log.Printf("inbox: malformed conversation_update payload: %v", err)
			return
		}
		s.handleConversationUpdate(c)
	case push.KindExistingMessage:
		var m model.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			log.Printf("inbox: malformed existing_message payload: %v", err)
			return
		}
		s.handleExistingMessage(m)
	case push.KindConnectionEstablished, push.KindSubscriptionConfirmed, push.KindPong:
		// Channel bookkeeping, no state to apply.
	case push.KindError:
		log.Printf("inbox: push channel reported error: %s", env.Data)
	default:
		// Unknown kinds from newer servers are not an error.
	}
}

// handleNewMessage applies one live message: conversation preview and unread
// bookkeeping first, then the open conversation's message list, settling a
// matching optimistic entry if the message is our own send echoed back.
func (s *Service) handleNewMessage(m model.Message) {
	s.mu.Lock()

	var visitorName string
	for i := range s.conversations {
		if s.conversations[i].ID != m.ConversationID {
			continue
		}
		c := &s.conversations[i]
		visitorName = c.VisitorName
		c.LastMessage = utils.Truncate(m.Body, utils.PreviewLimit)
		c.LastMessageSender = string(m.SenderType)
		c.LastMessageAt = m.CreatedAt
		c.UpdatedAt = m.CreatedAt
		if m.SenderType == model.SenderVisitor {
			// A customer reply always reopens the thread and bumps the
			// counter, whatever state it was in.
			c.Resolved = 0
			c.UnreadCountAdmin++
		}
		break
	}

	if m.ConversationID == s.selectedID {
		if tempID, ok := s.fuzzyMatchLocked(m); ok {
			s.pending.Remove(tempID)
			delete(s.failed, tempID)
			for i := range s.messages {
				if s.messages[i].TempID == tempID {
					m.TempID = ""
					m.Delivery = model.DeliveryConfirmed
					s.messages[i] = m
					break
				}
			}
			s.messages = merge.Messages(s.messages, nil)
			incSettled("fuzzy")
		} else {
			s.messages = merge.Messages(s.messages, []model.Message{m})
		}
	}
	s.mu.Unlock()
	s.notifyChange()

	if m.SenderType == model.SenderVisitor && s.notifier != nil {
		title := m.SenderName
		if title == "" {
			title = visitorName
		}
		if title == "" {
			title = "New message"
		}
		s.notifier.Notify(notify.CategoryNewMessage, title,
			utils.Truncate(m.Body, utils.PreviewLimit), false)
	}
}

// fuzzyMatchLocked finds the first optimistic message the incoming confirmed
// record settles: same conversation, same sender type, exact body, created
// within the pending window. Push echoes carry no temp id, so content and
// proximity are all there is to match on. Failed entries are skipped; the
// operator already saw the failure and may retry.
func (s *Service) fuzzyMatchLocked(m model.Message) (string, bool) {
	incomingAt := model.ParseTime(m.CreatedAt)
	for _, candidate := range s.messages {
		if candidate.TempID == "" || candidate.Delivery == model.DeliveryFailed {
			continue
		}
		if candidate.ConversationID != m.ConversationID ||
			candidate.SenderType != m.SenderType ||
			candidate.Body != m.Body {
			continue
		}
		delta := incomingAt.Sub(model.ParseTime(candidate.CreatedAt))
		if delta < 0 {
			delta = -delta
		}
		if delta < s.pendingTTL {
			return candidate.TempID, true
		}
	}
	return "", false
}

// handleConversationUpdate merges a conversation-level push: known records
// absorb the update's non-empty preview fields; unknown ids become a brand
// new conversation at the top of the list, the one notification category that
// fires even while the app has focus.
func (s *Service) handleConversationUpdate(update model.Conversation) {
	s.mu.Lock()

	existing := -1
	for i := range s.conversations {
		if s.conversations[i].ID == update.ID {
			existing = i
			break
		}
	}

	isNew := existing < 0
	if isNew {
		if update.CreatedAt == "" {
			update.CreatedAt = update.UpdatedAt
		}
		s.conversations = append([]model.Conversation{update}, s.conversations...)
	} else {
		c := &s.conversations[existing]
		if update.LastMessage != "" {
			c.LastMessage = utils.Truncate(update.LastMessage, utils.PreviewLimit)
		}
		if update.LastMessageSender != "" {
			c.LastMessageSender = update.LastMessageSender
		}
		if update.LastMessageAt != "" {
			c.LastMessageAt = update.LastMessageAt
		}
		if update.UpdatedAt != "" {
			c.UpdatedAt = update.UpdatedAt
		}
		if update.Status != "" {
			c.Status = update.Status
		}
		if update.AgentID != "" {
			c.AgentID = update.AgentID
			c.AgentName = update.AgentName
		}
		c.Resolved = update.Resolved
		c.UnreadCountAdmin = update.UnreadCountAdmin
	}
	visitorName := update.VisitorName
	s.mu.Unlock()
	s.notifyChange()

	if isNew && s.notifier != nil {
		if visitorName == "" {
			visitorName = "a new visitor"
		}
		s.notifier.Notify(notify.CategoryNewConversation, "New conversation",
			visitorName, true)
	}
}

// handleExistingMessage applies server-replayed history delivered after a
// subscribe. Append-only, re-sorted, never notified.
func (s *Service) handleExistingMessage(m model.Message) {
	s.mu.Lock()
	if m.ConversationID != s.selectedID {
		s.mu.Unlock()
		return
	}
	s.messages = merge.Messages(s.messages, []model.Message{m})
	s.mu.Unlock()
	s.notifyChange()
}
