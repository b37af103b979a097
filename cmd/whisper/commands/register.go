package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisper/internal/domain"
)

func registerCmd(o *options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Publish fresh pre-keys to the relay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.app.Unlock(o.passphrase); err != nil {
				return err
			}
			keys, err := o.app.Register(cmd.Context(), domain.Username(args[0]), count)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s with %d one-time pre-keys\n", keys.Username, len(keys.OneTimePreKeys))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "prekeys", 10, "number of one-time pre-keys to publish")
	return cmd
}
