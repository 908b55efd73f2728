package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"difychat/src/models"
)

func newHistoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show or delete stored conversations",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List conversations, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := openRuntime(opts, "stderr")
				if err != nil {
					return err
				}
				defer rt.close()

				items := rt.history.Load()
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No conversations yet.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTITLE\tMESSAGES\tUPDATED")
				for _, c := range items {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Title, len(c.Messages), humanize.Time(c.Updated()))
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "show [conversation-id]",
			Short: "Print a stored conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := openRuntime(opts, "stderr")
				if err != nil {
					return err
				}
				defer rt.close()

				rt.history.Load()
				c, err := rt.history.Get(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\n\n", c.Title, humanize.Time(c.Updated()))
				for _, m := range c.Messages {
					label := "Assistant"
					if m.Role == models.RoleUser {
						label = "You"
					}
					fmt.Fprintf(out, "[%s] %s:\n%s\n", m.Time().Format("2006-01-02 15:04"), label, m.Content)
					for i, cite := range m.Citations {
						fmt.Fprintf(out, "  [%d] %s\n", i+1, cite.DocumentName)
					}
					fmt.Fprintln(out)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete [conversation-id]",
			Short: "Delete a stored conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rt, err := openRuntime(opts, "stderr")
				if err != nil {
					return err
				}
				defer rt.close()

				rt.history.Load()
				if _, err := rt.history.Get(args[0]); err != nil {
					return err
				}
				if err := rt.history.Remove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
