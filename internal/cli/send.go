package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/mailcraft/internal/plugins/mailer"
	"github.com/keyxmakerx/mailcraft/internal/sanitize"
)

type sendOptions struct {
	creds    mailer.Credentials
	to       string
	subject  string
	html     string
	htmlFile string
	attach   []string
}

func newSendCmd(e *env) *cobra.Command {
	var opts sendOptions

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one HTML message",
		Long: `Send one message through the dispatch core. With --password the
configured SMTP server is used; with --token the Gmail API is used and the
password is ignored.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := opts.request(e)
			if err != nil {
				return err
			}

			slog.Debug("sending",
				slog.String("to", req.To),
				slog.String("subject", req.Subject),
				slog.String("preview", sanitize.Excerpt(req.HTML, 80)),
				slog.Int("attachments", len(req.Attachments)),
			)

			ctx, cancel := e.withTimeout(cmd.Context())
			defer cancel()

			result := e.service().SendEmail(ctx, req)
			if !result.Success {
				return fmt.Errorf("%s (%s): %s", result.Message(), result.Kind, result.Detail)
			}
			fmt.Fprintf(e.out, "%s\nMessage-ID: %s\n", result.Message(), result.MessageID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.creds.Email, "email", "", "sender account email address")
	f.StringVar(&opts.creds.Password, "password", "", "account or app password (SMTP)")
	f.StringVar(&opts.creds.AccessToken, "token", "", "OAuth2 access token (Gmail API)")
	f.StringVar(&opts.to, "to", "", "comma-separated recipients")
	f.StringVar(&opts.subject, "subject", "", "message subject")
	f.StringVar(&opts.html, "html", "", "HTML body")
	f.StringVar(&opts.htmlFile, "html-file", "", "read the HTML body from a file")
	f.StringArrayVar(&opts.attach, "attach", nil, "file to attach (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("html", "html-file")
	return cmd
}

// request turns flags into a dispatch request. Field validation is left to
// the dispatch core so the CLI reports the same failures as the API.
func (o *sendOptions) request(e *env) (mailer.SendRequest, error) {
	html := o.html
	if o.htmlFile != "" {
		data, err := os.ReadFile(o.htmlFile)
		if err != nil {
			return mailer.SendRequest{}, fmt.Errorf("reading html file: %w", err)
		}
		html = string(data)
	}

	if len(o.attach) > e.cfg.Upload.MaxFiles {
		return mailer.SendRequest{}, fmt.Errorf("at most %d attachments are allowed", e.cfg.Upload.MaxFiles)
	}

	attachments := make([]mailer.Attachment, 0, len(o.attach))
	for _, path := range o.attach {
		a, err := readAttachment(path, e.cfg.Upload.MaxSize)
		if err != nil {
			return mailer.SendRequest{}, err
		}
		attachments = append(attachments, a)
	}

	return mailer.SendRequest{
		Credentials: o.creds,
		To:          o.to,
		Subject:     o.subject,
		HTML:        html,
		Attachments: attachments,
	}, nil
}

// readAttachment loads a file and guesses its type from the extension,
// falling back to content sniffing.
func readAttachment(path string, maxSize int64) (mailer.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return mailer.Attachment{}, fmt.Errorf("attachment %s: %w", path, err)
	}
	if info.IsDir() {
		return mailer.Attachment{}, fmt.Errorf("attachment %s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return mailer.Attachment{}, errors.New("attachment " + path + " exceeds the size limit")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return mailer.Attachment{}, fmt.Errorf("attachment %s: %w", path, err)
	}

	ctype := mime.TypeByExtension(filepath.Ext(path))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	return mailer.Attachment{
		Filename:    filepath.Base(path),
		Content:     data,
		ContentType: ctype,
	}, nil
}
