package notify

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Sounder plays the alert sound for a notification category.
type Sounder interface {
	Play(category Category) error
}

// AssetSounder plays a pre-loaded audio asset through an external player.
type AssetSounder struct {
	Path   string
	Player string
}

func (a AssetSounder) Play(Category) error {
	if a.Path == "" {
		return fmt.Errorf("notify: no sound asset configured")
	}
	if _, err := os.Stat(a.Path); err != nil {
		return fmt.Errorf("notify: sound asset missing: %w", err)
	}
	player := a.Player
	if player == "" {
		player = "paplay"
	}
	if _, err := exec.LookPath(player); err != nil {
		return fmt.Errorf("notify: sound player unavailable: %w", err)
	}
	return exec.Command(player, a.Path).Run()
}

// ToneSounder is the minimal fallback: a terminal bell on the given writer.
// Used when the audio asset or player is unavailable.
type ToneSounder struct {
	Out io.Writer
}

func (t ToneSounder) Play(Category) error {
	out := t.Out
	if out == nil {
		out = os.Stderr
	}
	_, err := out.Write([]byte("\a"))
	return err
}
