package relayctl

import (
	"context"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

func newCmdTools(f *factory, streams IOStreams) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), f.Timeout())
			defer cancel()

			tools, err := f.Client().Tools(ctx)
			if err != nil {
				return err
			}
			table := uitable.New()
			table.MaxColWidth = uint(max(terminalWidth(streams.Out)/2, 30))
			table.Wrap = true
			table.AddRow("NAME", "ENABLED", "DESCRIPTION")
			for _, t := range tools {
				if !all && !t.Enabled {
					continue
				}
				table.AddRow(t.Name, t.Enabled, t.Description)
			}
			fmt.Fprintln(streams.Out, table)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include disabled tools.")
	return cmd
}
