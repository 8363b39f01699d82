package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// styles holds the lipgloss styles used for command output.
type styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// output is the active style set, chosen per invocation.
var output = newStyles(false)

// newStyles returns coloured styles, or unstyled ones when color is false.
func newStyles(color bool) *styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &styles{
			Title:   plain,
			Header:  plain,
			Muted:   plain,
			Success: plain,
			Warning: plain,
			Error:   plain,
		}
	}

	return &styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")), // Purple
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#06B6D4")), // Cyan
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C7086")),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1")),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F9E2AF")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F38BA8")),
	}
}

// useColor reports whether w is a terminal and colour was not disabled.
func useColor(w io.Writer) bool {
	if noColorFlag || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// statusLabel renders a success or failure marker.
func statusLabel(ok bool) string {
	if ok {
		return output.Success.Render("ok")
	}
	return output.Error.Render("FAILED")
}
