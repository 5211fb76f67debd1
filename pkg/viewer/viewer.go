package viewer

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"xlogd/pkg/record"
)

// Viewer renders one persisted record to the operator console. It is invoked
// by the writer once per record in verbose mode; it owns formatting policy
// and nothing else. A slow or failing Viewer degrades console output but must
// never stop the writer.
type Viewer interface {
	Render(p record.Prefix, ev record.Event) error
}

var (
	styleNull  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleCrit  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("196")).
			Bold(true)
	styleExtra = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// Console writes one colorized line per record: id, sub-id, levels and the
// _msg payload, styled by the numeric error level (0..5 by convention).
type Console struct {
	w io.Writer
}

func NewConsole() *Console {
	return &Console{w: os.Stdout}
}

// NewConsoleTo writes to the given stream. Test hook.
func NewConsoleTo(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Render(p record.Prefix, ev record.Event) error {
	msg := "None"
	if m, ok := ev["_msg"].(string); ok {
		msg = m
	}
	line := fmt.Sprintf("%s %s %s %s %s", p.ID, p.SubID, p.ErrLevel, p.SubLevel, msg)
	_, err := fmt.Fprintln(c.w, levelStyle(p.ErrLevel).Render(line))
	return err
}

func levelStyle(el string) lipgloss.Style {
	n, err := strconv.Atoi(el)
	if err != nil {
		return styleExtra
	}
	switch n {
	case 0:
		return styleNull
	case 1:
		return styleDebug
	case 2:
		return styleInfo
	case 3:
		return styleWarn
	case 4:
		return styleError
	case 5:
		return styleCrit
	default:
		return styleExtra
	}
}
