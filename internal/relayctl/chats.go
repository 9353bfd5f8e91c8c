package relayctl

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gosuri/uitable"
	"github.com/kiosk404/ragrelay/internal/ragrelay/service/chat/domain/entity"
	"github.com/spf13/cobra"
)

func newCmdChats(f *factory, streams IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List stored chats, most recent first",
		Example: heredoc.Doc(`
			relayctl chats
			relayctl chats show 6f1c...
			relayctl chats delete 6f1c...`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), f.Timeout())
			defer cancel()

			chats, err := f.Client().Chats(ctx)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.AddRow("ID", "UPDATED", "TITLE")
			for _, c := range chats {
				table.AddRow(c.ID, c.UpdatedAt, truncate(c.Title, 60))
			}
			fmt.Fprintln(streams.Out, table)
			return nil
		},
	}
	cmd.AddCommand(newCmdChatShow(f, streams), newCmdChatDelete(f, streams))
	return cmd
}

func newCmdChatShow(f *factory, streams IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the messages of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), f.Timeout())
			defer cancel()

			detail, err := f.Client().Chat(ctx, args[0])
			if err != nil {
				return err
			}
			width := terminalWidth(streams.Out)
			fmt.Fprintf(streams.Out, "%s  %s\n\n", detail.Chat.ID, detail.Chat.Title)
			for _, m := range detail.Messages {
				printMessage(streams, m, width)
			}
			return nil
		},
	}
}

func printMessage(streams IOStreams, m *entity.Message, width int) {
	if m.Role == entity.RoleUser {
		toolColor.Fprintf(streams.Out, "[%d] %s\n", m.Ordinal, m.Role)
	} else {
		okColor.Fprintf(streams.Out, "[%d] %s\n", m.Ordinal, m.Role)
	}
	for _, inv := range m.Trace {
		fmt.Fprintln(streams.Out, stateStyle.Render(fmt.Sprintf("    step %d %s: %s", inv.Step, inv.ToolName, inv.Outcome)))
	}
	if m.Content != "" {
		fmt.Fprintln(streams.Out, indent(m.Content, width, "    "))
	}
	if m.Error != "" {
		errorColor.Fprintf(streams.Out, "    error: %s\n", m.Error)
	}
	fmt.Fprintln(streams.Out)
}

func newCmdChatDelete(f *factory, streams IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete a chat and its messages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), f.Timeout())
			defer cancel()

			if err := f.Client().DeleteChat(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(streams.Out, "chat %s deleted\n", args[0])
			return nil
		},
	}
}
