package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisper/internal/domain"
)

// send <peer> <message>: encrypt and send a message to <peer>.
func sendCmd(o *options) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "send <peer>[.device] <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := domain.ParseAddress(args[0])
			if err != nil {
				return err
			}
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
			if err := o.app.Messages.SendMessage(cmd.Context(), me, peer, []byte(args[1])); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "your username (default: the one you registered with)")
	return cmd
}
