package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisper/internal/domain"
)

// resetSessionCmd forgets the stored session with a peer.
func resetSessionCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-session <peer>[.device]",
		Short: "Forget the session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := domain.ParseAddress(args[0])
			if err != nil {
				return err
			}
			if err := o.app.Unlock(o.passphrase); err != nil {
				return err
			}
			if err := o.app.Sessions.ResetSession(peer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session with %s removed\n", peer)
			return nil
		},
	}
}
