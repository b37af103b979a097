package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func fingerprintCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.app.Unlock(o.passphrase); err != nil {
				return err
			}
			fp, err := o.app.Identity.FingerprintIdentity()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", fp)
			return nil
		},
	}
}
