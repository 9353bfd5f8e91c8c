package relayctl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/service/protocol"
	"github.com/spf13/cobra"
)

type askOptions struct {
	ChatID string
	Raw    bool
	Plain  bool
	Quiet  bool

	factory *factory
	IOStreams
}

func newCmdAsk(f *factory, streams IOStreams) *cobra.Command {
	o := &askOptions{factory: f, IOStreams: streams}

	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a question and stream the answer",
		Long: heredoc.Doc(`
			Ask a question. Tool calls and their results are printed while the
			turn runs, followed by the answer.

			The chat id is printed to stderr; pass it to --chat-id to continue
			the conversation. Ctrl+C cancels the turn on the server.`),
		Example: heredoc.Doc(`
			# Start a new chat
			relayctl ask "What does the basic plan cost?"

			# Continue it
			relayctl ask --chat-id 6f1c... "And the pro plan?"

			# Dump the wire frames
			relayctl ask --raw "How many orders shipped in May?"`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd, args)
		},
	}
	cmd.Flags().StringVar(&o.ChatID, "chat-id", o.ChatID, "Continue an existing chat.")
	cmd.Flags().BoolVar(&o.Raw, "raw", o.Raw, "Print the wire frames as received.")
	cmd.Flags().BoolVar(&o.Plain, "plain", o.Plain, "Do not render the answer as markdown.")
	cmd.Flags().BoolVarP(&o.Quiet, "quiet", "q", o.Quiet, "Print only the answer.")
	return cmd
}

func (o *askOptions) Run(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errors.New("question is empty")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	stream, err := o.factory.Client().Ask(ctx, o.ChatID, question)
	if err != nil {
		return err
	}
	defer stream.Body.Close()

	if o.Raw {
		_, err := io.Copy(o.Out, stream.Body)
		fmt.Fprintf(o.ErrOut, "chat: %s\n", stream.ChatID)
		return err
	}

	r := NewRenderer(o.Out)
	r.Markdown = !o.Plain && isTerminal(o.Out)
	r.Quiet = o.Quiet
	if err := renderStream(protocol.NewReader(stream.Body), r); err != nil {
		return err
	}

	chatID := r.ChatID()
	if chatID == "" {
		chatID = stream.ChatID
	}
	if !o.Quiet {
		fmt.Fprintln(o.ErrOut, stateStyle.Render("chat: "+chatID))
	}
	if r.Failed() {
		return errors.New("the turn failed")
	}
	return nil
}

// renderStream feeds frames to r until the terminal frame or EOF.
func renderStream(rd *protocol.Reader, r *Renderer) error {
	for {
		f, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return errors.New("stream ended without a terminal frame")
		}
		if err != nil {
			return fmt.Errorf("read stream: %w", err)
		}
		ev, err := f.Event()
		if err != nil {
			return fmt.Errorf("decode %s frame: %w", f.Kind, err)
		}
		r.Render(ev)
		if entity.IsTerminal(ev) {
			return nil
		}
	}
}
