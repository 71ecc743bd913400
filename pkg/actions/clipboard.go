package actions

import (
	"fmt"
	"io"
	"os"

	"github.com/aymanbagabas/go-osc52/v2"
)

// OSC52 copies through the terminal's OSC 52 escape sequence, which works
// over SSH and inside tmux when the terminal allows it.
type OSC52 struct {
	w    io.Writer
	tmux bool
}

// NewOSC52 writes escape sequences to w, or to /dev/tty when w is nil.
func NewOSC52(w io.Writer) *OSC52 {
	return &OSC52{w: w, tmux: os.Getenv("TMUX") != ""}
}

func (c *OSC52) Copy(text string) error {
	w := c.w
	if w == nil {
		tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("open terminal: %w", err)
		}
		defer tty.Close()
		w = tty
	}
	seq := osc52.New(text)
	if c.tmux {
		seq = seq.Tmux()
	}
	if _, err := seq.WriteTo(w); err != nil {
		return fmt.Errorf("write clipboard sequence: %w", err)
	}
	return nil
}
