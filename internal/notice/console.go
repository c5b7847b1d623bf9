package notice

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

// Console writes notices to a terminal.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole returns a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Notify(_ context.Context, n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, Render(n))
}

// Render formats a notice as one or two styled lines.
func Render(n Notice) string {
	var style lipgloss.Style
	var icon string
	switch n.Level {
	case Warning:
		style, icon = warningStyle, "⚠"
	case Error:
		style, icon = errorStyle, "✗"
	default:
		style, icon = infoStyle, "ℹ"
	}
	line := style.Render(icon + " " + n.Message)
	if n.Remediation != "" {
		line += "\n  " + hintStyle.Render(n.Remediation)
	}
	return line
}
