package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"difychat/src/models"
)

func newKeysCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage saved API keys",
	}

	var title, url string
	add := &cobra.Command{
		Use:   "add [api-key]",
		Short: "Save an API key; the first key saved becomes active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, "stderr")
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.keys.Add(models.APIKey{Title: title, Key: args[0], URL: url}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
			return nil
		},
	}
	add.Flags().StringVar(&title, "title", "Default", "name for the key")
	add.Flags().StringVar(&url, "url", "", "base URL of the Dify API for this key")

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, "stderr")
			if err != nil {
				return err
			}
			defer rt.close()

			keys, err := rt.keys.GetAll()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "No API keys saved.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTIVE\tTITLE\tKEY\tURL")
			for _, k := range keys {
				active := ""
				if k.Active {
					active = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", active, k.Title, maskKey(k.Key), k.URL)
			}
			return tw.Flush()
		},
	}

	use := &cobra.Command{
		Use:   "use [title]",
		Short: "Make a saved key the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, "stderr")
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.keys.SetActive(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", args[0])
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove [title]",
		Short: "Delete a saved key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, "stderr")
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.keys.Remove(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, use, remove)
	return cmd
}

// maskKey keeps the last four characters of a key visible.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
