package tui

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// yankResultMsg is sent after a yank attempt completes.
type yankResultMsg struct {
	err error
}

// oscClipboard sets the system clipboard with an OSC 52 sequence. Inside
// tmux the sequence is wrapped in a DCS passthrough.
type oscClipboard struct {
	text   string
	stdout io.Writer
}

func (o *oscClipboard) Run() error {
	if o.stdout == nil {
		o.stdout = os.Stdout
	}
	_, err := io.WriteString(o.stdout, osc52(o.text, os.Getenv("TMUX") != ""))
	return err
}

func (o *oscClipboard) SetStdin(_ io.Reader) {}
func (o *oscClipboard) SetStdout(w io.Writer) { o.stdout = w }
func (o *oscClipboard) SetStderr(_ io.Writer) {}

func osc52(text string, tmux bool) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	if tmux {
		return fmt.Sprintf("\x1bPtmux;\x1b\x1b]52;c;%s\x07\x1b\\", encoded)
	}
	return fmt.Sprintf("\x1b]52;c;%s\x07", encoded)
}

// yankToClipboard copies a deployment URL to the clipboard
func yankToClipboard(text string) tea.Cmd {
	return tea.Exec(&oscClipboard{text: text}, func(err error) tea.Msg {
		return yankResultMsg{err: err}
	})
}
