// Package notify decides whether a user-facing notification may fire for a
// given event and raises it, with a best-effort sound path that never blocks
// or fails the notification itself.
package notify

import "log"

type Category string

const (
	CategoryNewMessage      Category = "new_message"
	CategoryNewConversation Category = "new_conversation"
)

// Settings is a snapshot of the operator's notification preferences. The gate
// re-reads it on every decision; callers own persistence.
type Settings struct {
	Enabled    bool
	Sound      bool
	Categories map[Category]bool
}

func (s Settings) categoryEnabled(c Category) bool {
	if s.Categories == nil {
		return true
	}
	enabled, ok := s.Categories[c]
	if !ok {
		return true
	}
	return enabled
}

// Platform is the notification surface (browser Notification API, libnotify,
// a terminal shim in the CLI).
type Platform interface {
	PermissionGranted() bool
	Show(title, body string) error
}

type Gate struct {
	settings func() Settings
	focused  func() bool
	platform Platform
	sounds   []Sounder
}

// NewGate wires the gate to live providers. settings and focused are invoked
// per decision, never cached.
func NewGate(settings func() Settings, focused func() bool, platform Platform, sounds ...Sounder) *Gate {
	return &Gate{
		settings: settings,
		focused:  focused,
		platform: platform,
		sounds:   sounds,
	}
}

// Notify raises a single notification unless suppressed. Suppression rules:
// notifications disabled globally or for the category; the application has
// input focus and allowWhenFocused is false (new-conversation events pass
// true: an operator with the window focused still needs alerting to a brand
// new customer); platform permission missing. Returns whether the
// notification was shown.
func (g *Gate) Notify(category Category, title, body string, allowWhenFocused bool) bool {
	s := g.settings()
	if !s.Enabled || !s.categoryEnabled(category) {
		incSuppressed("settings")
		return false
	}
	if g.focused != nil && g.focused() && !allowWhenFocused {
		incSuppressed("focused")
		return false
	}
	if g.platform == nil || !g.platform.PermissionGranted() {
		incSuppressed("permission")
		return false
	}

	if s.Sound {
		g.playSound(category)
	}

	if err := g.platform.Show(title, body); err != nil {
		log.Printf("notify: show failed: %v", err)
		return false
	}
	incShown(string(category))
	return true
}

// playSound walks the sounder chain until one succeeds. Sound is strictly
// best-effort: failures are logged and never reach the caller.
func (g *Gate) playSound(category Category) {
	for _, s := range g.sounds {
		if s == nil {
			continue
		}
		if err := s.Play(category); err != nil {
			log.Printf("notify: sound failed, trying fallback: %v", err)
			continue
		}
		return
	}
}
