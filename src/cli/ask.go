package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"difychat/src/app"
	"difychat/src/components/chatwindow"
	"difychat/src/services/stream"
)

func newAskCmd(opts *options) *cobra.Command {
	var conversationID string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Send one question and stream the answer to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, "stderr")
			if err != nil {
				return err
			}
			defer rt.close()

			a, err := rt.newApp()
			if err != nil {
				return err
			}
			if conversationID != "" {
				if err := a.Load(conversationID); err != nil {
					return err
				}
			}

			updates, err := a.Send(commandContext(cmd), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printAnswer(cmd.OutOrStdout(), updates)
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "continue a conversation from history")
	return cmd
}

// printAnswer writes deltas as they arrive, then the sources and the
// conversation id. A stream error is returned after the partial answer.
func printAnswer(w io.Writer, updates <-chan app.Update) error {
	var (
		streamErr      error
		conversationID string
		last           app.Update
	)
	for u := range updates {
		last = u
		conversationID = u.ConversationID
		switch u.Event.Kind {
		case stream.EventDelta:
			fmt.Fprint(w, u.Event.Text)
		case stream.EventError:
			streamErr = u.Event.Err
		}
	}
	fmt.Fprintln(w)

	if n := len(last.Messages); n > 0 {
		if cites := chatwindow.RenderCitations(last.Messages[n-1].Citations, 80); cites != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, cites)
		}
	}
	if conversationID != "" {
		fmt.Fprintf(w, "\nconversation: %s\n", conversationID)
	}
	return streamErr
}
