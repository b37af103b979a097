package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			_, fp, err := o.app.Identity.GenerateIdentity(o.passphrase)
			if err != nil {
				return err
			}
			reg, err := o.app.Identity.RegistrationID()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Identity created.\nFingerprint: %s\nRegistration id: %d\n", fp, reg)
			return nil
		},
	}
}
