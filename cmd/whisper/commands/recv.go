package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// recv: fetch and decrypt queued messages.
func recvCmd(o *options) *cobra.Command {
	var (
		username string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt your queued messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.app.RequireRelay(); err != nil {
				return err
			}
			me, err := o.app.Username(username)
			if err != nil {
				return err
			}
			if err := o.app.Unlock(o.passphrase); err != nil {
				return err
			}

			msgs, err := o.app.Messages.ReceiveMessages(cmd.Context(), me, limit)
			for _, m := range msgs {
				ts := time.Unix(m.Timestamp, 0).UTC().Format(time.RFC3339)
				fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", ts, m.From, string(m.Plaintext))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "your username (default: the one you registered with)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of messages to fetch (0 = all)")
	return cmd
}
