/*
Package cli provides the mailtest operator commands. They drive the same
dispatch core the HTTP API uses, configured from the same environment.
*/
package cli

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/keyxmakerx/mailcraft/internal/config"
	"github.com/keyxmakerx/mailcraft/internal/plugins/mailer"
)

// ServiceFactory builds the mail service used by a command.
type ServiceFactory func(cfg config.MailConfig) mailer.MailService

// defaultFactory wires the real transports with no metrics.
func defaultFactory(cfg config.MailConfig) mailer.MailService {
	return mailer.NewMailService(mailer.NewTransportBuilder(cfg), nil)
}

// env carries what every subcommand needs. It is filled in by the root
// command's PersistentPreRunE.
type env struct {
	factory ServiceFactory
	loadCfg func() (*config.Config, error)
	cfg     *config.Config
	out     io.Writer
	verbose bool
}

// Execute runs the mailtest root command.
func Execute() error {
	return NewRootCmd(defaultFactory, config.Load).Execute()
}

// NewRootCmd builds the command tree. Tests pass a fake factory and config
// loader.
func NewRootCmd(factory ServiceFactory, loadCfg func() (*config.Config, error)) *cobra.Command {
	e := &env{factory: factory, loadCfg: loadCfg}

	root := &cobra.Command{
		Use:   "mailtest",
		Short: "Check mail credentials and send test messages",
		Long: `mailtest exercises the mail dispatch path from the command line.

Transport defaults (EMAIL_HOST, EMAIL_PORT, EMAIL_SECURE, EMAIL_STRICT_TLS,
EMAIL_TIMEOUT) are read from the environment or a .env file.

Example:
  mailtest verify --email me@gmail.com --password "app password"
  mailtest send --email me@gmail.com --token ya29... --to you@example.com \
      --subject Hello --html-file body.html --attach report.pdf`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			e.out = cmd.OutOrStdout()
			setupLogging(cmd.ErrOrStderr(), e.verbose)

			cfg, err := e.loadCfg()
			if err != nil {
				return err
			}
			e.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "enable debug output")

	root.AddCommand(newVerifyCmd(e))
	root.AddCommand(newSendCmd(e))
	return root
}

// setupLogging installs charmbracelet/log as the slog handler so dispatch
// logs render for a terminal.
func setupLogging(w io.Writer, verbose bool) {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           log.InfoLevel,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	slog.SetDefault(slog.New(logger))
}

// withTimeout bounds a command by the configured mail timeout.
func (e *env) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, e.cfg.Mail.Timeout)
}

func (e *env) service() mailer.MailService {
	return e.factory(e.cfg.Mail)
}
