package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"support-console/internal/inbox"
	"support-console/internal/model"
	"support-console/internal/push"
)

const (
	reconnectBaseDelay = 2 * time.Second
	reconnectMaxDelay  = 30 * time.Second
)

func newFollowCmd() *cobra.Command {
	var (
		conversationID string
		withSound      bool
	)

	cmd := &cobra.Command{
		Use:   "follow [conversation-id]",
		Short: "Follow the inbox in real time",
		Long: `Stream conversation activity as it happens. With a conversation id the
view opens on that conversation and prints its messages; without one only
conversation-level activity is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				conversationID = args[0]
			}

			service, adapter, err := buildService(withSound, true)
			if err != nil {
				return err
			}
			startMetrics()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			printer := newPrinter(service)
			service.OnChange(printer.render)

			if err := service.Refresh(ctx); err != nil {
				return err
			}
			if conversationID != "" {
				if err := service.SelectConversation(ctx, conversationID); err != nil {
					return err
				}
			}

			runChannel(ctx, adapter)
			adapter.Close()
			return nil
		},
	}

	cmd.Flags().BoolVar(&withSound, "sound", false, "play a sound with notifications")
	return cmd
}

// runChannel keeps the push channel alive until ctx is cancelled. The adapter
// itself never retries; this loop owns the policy: exponential backoff from
// 2s to 30s, reset after a successful open.
func runChannel(ctx context.Context, adapter *push.Adapter) {
	down := make(chan struct{}, 1)
	adapter.OnStatus(func(s push.Status) {
		log.Printf("push channel: %s", s)
		if s == push.StatusClosed || s == push.StatusError {
			select {
			case down <- struct{}{}:
			default:
			}
		}
	})

	delay := reconnectBaseDelay
	for {
		err := adapter.Connect(ctx)
		if err == push.ErrNotConfigured {
			log.Printf("push channel disabled: %v", err)
			<-ctx.Done()
			return
		}
		if err == nil {
			delay = reconnectBaseDelay
			select {
			case <-ctx.Done():
				return
			case <-down:
			}
		} else {
			log.Printf("push connect failed: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// printer renders inbox state to stdout after each change.
type printer struct {
	mu      sync.Mutex
	service *inbox.Service
	seen    map[string]bool
}

func newPrinter(service *inbox.Service) *printer {
	return &printer{service: service, seen: map[string]bool{}}
}

func (p *printer) render() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if selected := p.service.SelectedID(); selected != "" {
		for _, m := range p.service.Messages() {
			key := m.ID
			if key == "" {
				key = m.TempID
			}
			if p.seen[key] {
				continue
			}
			p.seen[key] = true
			p.printMessage(m)
		}
		return
	}

	for _, c := range p.service.Conversations() {
		key := c.ID + "@" + c.UpdatedAt
		if p.seen[key] {
			continue
		}
		p.seen[key] = true
		fmt.Printf("[%s] %s (%d unread): %s\n",
			c.ID, c.VisitorName, c.UnreadCountAdmin, c.LastMessage)
	}
}

func (p *printer) printMessage(m model.Message) {
	marker := ""
	switch m.Delivery {
	case model.DeliveryPending:
		marker = " ⏳"
	case model.DeliveryFailed:
		marker = " ✗ delivery failed"
	}
	sender := m.SenderName
	if sender == "" {
		sender = string(m.SenderType)
	}
	fmt.Printf("%s %s: %s%s\n", m.CreatedAt, sender, m.Body, marker)
}
