// Package backend is the REST client for the support platform API: paginated
// conversation/message reads and the write endpoints the console needs.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"support-console/internal/model"
)

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type conversationsResponse struct {
	Conversations []model.Conversation `json:"conversations"`
}

// ListConversations fetches one page of the admin conversation listing,
// newest-activity first.
func (c *Client) ListConversations(ctx context.Context, limit, offset int, filter model.ConversationFilter) ([]model.Conversation, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if filter.AssigneeID != "" {
		query.Set("assignee_id", filter.AssigneeID)
	}

	var resp conversationsResponse
	err := c.do(ctx, http.MethodGet, "/admin/conversations?"+query.Encode(), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// ListMessages fetches one page of a conversation's history. The server
// returns newest first; callers re-sort through the merge engine.
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	path := fmt.Sprintf("/admin/conversations/%s/messages?limit=%d&offset=%d",
		url.PathEscape(conversationID), limit, offset)

	var messages []model.Message
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendRequest is the write payload for a new message or private note.
type SendRequest struct {
	ConversationID string `json:"conversation_id"`
	Body           string `json:"message"`
	Type           string `json:"message_type"`
	IsNote         bool   `json:"is_note,omitempty"`
}

// SendMessage posts a message and returns the server-confirmed record,
// including the stable id the optimistic copy is waiting on.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (model.Message, error) {
	var confirmed model.Message
	err := c.do(ctx, http.MethodPost,
		"/admin/conversations/"+url.PathEscape(req.ConversationID)+"/messages", req, &confirmed)
	return confirmed, err
}

// ResolveConversation marks a conversation resolved.
func (c *Client) ResolveConversation(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodPost,
		"/admin/conversations/"+url.PathEscape(conversationID)+"/resolve", nil, nil)
}

// MarkRead clears the admin unread counter for a conversation.
func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	return c.do(ctx, http.MethodPost,
		"/admin/conversations/"+url.PathEscape(conversationID)+"/read", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("backend: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	observeRequest(method, path, started, err == nil)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend: %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decoding %s %s: %w", method, path, err)
	}
	return nil
}
