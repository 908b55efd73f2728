// Package cli wires configuration, storage and the stream client into the
// difychat command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

// options holds the global flags shared by every subcommand.
type options struct {
	configPath string
	store      string
	dataDir    string
	logLevel   string
	logSink    string
}

// NewRootCmd builds the command tree. Running it without a subcommand
// starts the terminal chat UI.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	chat := newChatCmd(opts)

	rootCmd := &cobra.Command{
		Use:   "difychat",
		Short: "Terminal chat client for Dify conversational apps",
		Long: `difychat streams answers from a Dify chat application into a terminal UI
and keeps a local history of conversations.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          chat.RunE,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file path (default is .util/config.yaml)")
	flags.StringVar(&opts.store, "store", "", "storage backend: file, pebble, sqlite or memory")
	flags.StringVar(&opts.dataDir, "data-dir", "", "directory for history, keys and logs")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logSink, "log-sink", "", "log sink: stderr, stdout, discard or file:<path>")

	rootCmd.AddCommand(
		chat,
		newAskCmd(opts),
		newHistoryCmd(opts),
		newKeysCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree and exits non-zero on error. It is called
// by main.main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
