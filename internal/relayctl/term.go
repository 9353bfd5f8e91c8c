package relayctl

import (
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mitchellh/go-wordwrap"
	"github.com/moby/term"
	"github.com/muesli/termenv"
)

const defaultWidth = 80

// terminalWidth returns the column count of w, or defaultWidth when w is
// not a terminal.
func terminalWidth(w io.Writer) int {
	fd, ok := term.GetFdInfo(w)
	if !ok {
		return defaultWidth
	}
	ws, err := term.GetWinsize(fd)
	if err != nil || ws.Width == 0 {
		return defaultWidth
	}
	return int(ws.Width)
}

func isTerminal(w io.Writer) bool {
	_, ok := term.GetFdInfo(w)
	return ok
}

// renderMarkdown falls back to the raw text when rendering fails.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithColorProfile(termenv.ANSI256),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// indent wraps s to width and prefixes every line.
func indent(s string, width int, prefix string) string {
	if width > len(prefix)+10 {
		s = wordwrap.WrapString(s, uint(width-len(prefix)))
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
