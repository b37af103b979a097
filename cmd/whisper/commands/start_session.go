package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisper/internal/domain"
)

// startSessionCmd processes a peer's pre-key bundle and stores a session
// whose first messages carry the handshake.
func startSessionCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start-session <peer>[.device]",
		Short: "Establish a secure session with a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := domain.ParseAddress(args[0])
			if err != nil {
				return err
			}
			if err := o.app.RequireRelay(); err != nil {
				return err
			}
			if err := o.app.Unlock(o.passphrase); err != nil {
				return err
			}
			if err := o.app.Sessions.InitiateSession(cmd.Context(), peer); err != nil {
				return fmt.Errorf("starting session with %s: %w", peer, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session created with %s\n", peer)
			return nil
		},
	}
}
