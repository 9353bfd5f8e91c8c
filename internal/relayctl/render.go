package relayctl

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/pkg/utils/json"
)

var (
	toolColor  = color.New(color.FgCyan, color.Bold)
	okColor    = color.New(color.FgGreen)
	failColor  = color.New(color.FgRed)
	errorColor = color.New(color.FgRed, color.Bold)
	stateStyle = lipgloss.NewStyle().Faint(true)
)

const resultPreview = 160

// Renderer prints the events of one turn for a human.
type Renderer struct {
	out   io.Writer
	width int
	// Markdown holds the answer back and renders it once the turn ends.
	Markdown bool
	// Quiet hides states, tool calls and tool results.
	Quiet bool

	answer strings.Builder
	chatID string
	failed bool
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out, width: terminalWidth(out)}
}

// ChatID is the chat the turn belongs to, once the data frame arrived.
func (r *Renderer) ChatID() string { return r.chatID }

// Answer is the text streamed so far.
func (r *Renderer) Answer() string { return r.answer.String() }

// Failed reports whether an error frame was seen.
func (r *Renderer) Failed() bool { return r.failed }

func (r *Renderer) Render(ev entity.Event) {
	switch e := ev.(type) {
	case entity.TextDelta:
		r.answer.WriteString(e.Content)
		if !r.Markdown {
			fmt.Fprint(r.out, e.Content)
		}
	case entity.StateTransition:
		if !r.Quiet && e.Display != "" {
			fmt.Fprintln(r.out, stateStyle.Render("· "+e.Display))
		}
	case entity.ToolCall:
		if !r.Quiet {
			toolColor.Fprintf(r.out, "→ %s", e.ToolName)
			fmt.Fprintf(r.out, " (step %d) %s\n", e.Step, compact(e.Arguments))
		}
	case entity.ToolResult:
		if r.Quiet {
			return
		}
		if e.Success {
			okColor.Fprintf(r.out, "✓ %s\n", e.ToolName)
		} else {
			failColor.Fprintf(r.out, "✗ %s\n", e.ToolName)
		}
		if s := preview(e.Result); s != "" {
			fmt.Fprintln(r.out, indent(truncate(s, resultPreview), r.width, "    "))
		}
	case entity.DataPayload:
		r.chatID = e.Chat.ID
	case entity.ErrorPart:
		r.failed = r.failed || !e.Recoverable
		errorColor.Fprintf(r.out, "error: %s\n", e.Message)
	case entity.Terminal:
		r.finish()
	}
}

func (r *Renderer) finish() {
	answer := r.answer.String()
	if answer == "" {
		return
	}
	if r.Markdown {
		fmt.Fprintln(r.out, renderMarkdown(answer, r.width-4))
		return
	}
	if !strings.HasSuffix(answer, "\n") {
		fmt.Fprintln(r.out)
	}
}

func preview(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return compact(v)
	}
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
