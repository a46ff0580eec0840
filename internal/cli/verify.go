package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/mailcraft/internal/plugins/mailer"
)

// errVerifyFailed is returned when the server rejects the credentials or
// cannot be reached. Details have already been logged.
var errVerifyFailed = errors.New("connection test failed")

func newVerifyCmd(e *env) *cobra.Command {
	var creds mailer.Credentials

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Test SMTP credentials without sending",
		Long: `Connect to the configured SMTP server, upgrade to TLS when offered and
authenticate with the given account. Nothing is sent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Email == "" || creds.Password == "" {
				return errors.New("--email and --password are required")
			}

			ctx, cancel := e.withTimeout(cmd.Context())
			defer cancel()

			if !e.service().TestConnection(ctx, creds) {
				return errVerifyFailed
			}
			fmt.Fprintf(e.out, "Connection to %s succeeded for %s\n", e.cfg.Mail.Addr(), creds.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email address")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account or app password")
	return cmd
}
