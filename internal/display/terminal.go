package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var panelStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1).
	Width(Width / 6)

// TerminalDisplay draws the frame as a bordered box, roughly the panel's
// character grid.
type TerminalDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

func NewTerminalDisplay(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{w: w}
}

func (d *TerminalDisplay) Show(lines []Line) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintln(d.w, Render(lines))
	return err
}

func (d *TerminalDisplay) Close() error { return nil }

// Render returns the boxed frame without writing it.
func Render(lines []Line) string {
	return panelStyle.Render(strings.Join(Texts(lines), "\n"))
}
