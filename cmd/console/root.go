package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"support-console/internal/backend"
	"support-console/internal/cache"
	"support-console/internal/env"
	"support-console/internal/inbox"
	"support-console/internal/model"
	"support-console/internal/notify"
	"support-console/internal/push"
	"support-console/internal/queue"
	"support-console/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "Support console for the admin chat inbox",
	Long: `Terminal client for the support platform's admin inbox: follow
conversations in real time, send replies, and resolve threads.

Configuration comes from the environment (CONSOLE_API_URL, CONSOLE_WS_URL,
CONSOLE_ACCESS_TOKEN) or a .env file in the working directory.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(newFollowCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newResolveCmd())
}

// restBackend adapts the REST client to the inbox service's backend surface.
type restBackend struct {
	client *backend.Client
}

func (r restBackend) ListConversations(ctx context.Context, limit, offset int, filter model.ConversationFilter) ([]model.Conversation, error) {
	return r.client.ListConversations(ctx, limit, offset, filter)
}

func (r restBackend) ListMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	return r.client.ListMessages(ctx, conversationID, limit, offset)
}

func (r restBackend) SendMessage(ctx context.Context, params inbox.SendParams) (model.Message, error) {
	return r.client.SendMessage(ctx, backend.SendRequest{
		ConversationID: params.ConversationID,
		Body:           params.Body,
		Type:           string(params.Type),
		IsNote:         params.IsNote,
	})
}

func (r restBackend) ResolveConversation(ctx context.Context, conversationID string) error {
	return r.client.ResolveConversation(ctx, conversationID)
}

func (r restBackend) MarkRead(ctx context.Context, conversationID string) error {
	return r.client.MarkRead(ctx, conversationID)
}

// terminalPlatform renders notifications on stderr. A terminal has no
// permission prompt and no focus tracking, so everything is allowed through.
type terminalPlatform struct{}

func (terminalPlatform) PermissionGranted() bool { return true }

func (terminalPlatform) Show(title, body string) error {
	_, err := fmt.Fprintf(os.Stderr, "\n🔔 %s — %s\n", title, body)
	return err
}

// buildService wires the full stack. One-shot commands pass async=false so
// REST writes run inline and are finished before the process exits.
func buildService(withSound, async bool) (*inbox.Service, *push.Adapter, error) {
	apiURL := env.Get(env.APIURL)
	token := env.Get(env.AccessToken)
	if apiURL == "" || token == "" {
		return nil, nil, fmt.Errorf("%s and %s must be set", env.APIURL, env.AccessToken)
	}

	sess, err := session.FromToken(token)
	if err != nil {
		return nil, nil, err
	}
	if !sess.Valid() {
		return nil, nil, session.ErrStale
	}

	var snapshot *cache.Snapshot
	if redisURL := env.Get(env.CacheRedisURL); redisURL != "" {
		snapshot = cache.New(redis.NewClient(&redis.Options{
			Addr:     redisURL,
			Password: env.Get(env.CacheRedisPass),
		}))
	}

	gate := notify.NewGate(
		func() notify.Settings {
			return notify.Settings{Enabled: true, Sound: withSound}
		},
		func() bool { return false },
		terminalPlatform{},
		notify.AssetSounder{Path: env.Get(env.SoundAsset)},
		notify.ToneSounder{},
	)

	var jobs inbox.Jobs
	if async {
		jobs = queue.NewManager(32, 4)
	}
	service := inbox.NewService(inbox.Config{
		Backend:  restBackend{client: backend.NewClient(apiURL, token)},
		Cache:    snapshot,
		Session:  sess,
		Notifier: gate,
		Jobs:     jobs,
	})

	adapter := push.NewAdapter(env.Get(env.PushURL), token, service.HandleEvent)
	service.SetChannel(adapter)
	return service, adapter, nil
}

func startMetrics() {
	addr := env.Get(env.MetricsAddr)
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics listener failed: %v", err)
		}
	}()
}
