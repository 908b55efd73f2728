package cli

import (
	"context"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"difychat/src/components/chat"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// the UI owns the terminal, so logs go to a file unless configured
			rt, err := openRuntime(opts, "")
			if err != nil {
				return err
			}
			defer rt.close()

			a, err := rt.newApp()
			if err != nil {
				return err
			}
			rt.serveMetrics()

			ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt.logger.Info("starting chat UI", "version", version)
			program := tea.NewProgram(chat.New(ctx, a, rt.logger), tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := program.Run(); err != nil && ctx.Err() == nil {
				rt.logger.Error("chat UI failed", "error", err)
				return err
			}
			a.Cancel()
			rt.logger.Info("chat UI closed")
			return nil
		},
	}
}

// commandContext returns cmd's context or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
