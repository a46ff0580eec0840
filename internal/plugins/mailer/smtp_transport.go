package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/keyxmakerx/mailcraft/internal/config"
)

// heloName is announced in EHLO.
const heloName = "localhost"

// smtpTransport submits mail over SMTP with AUTH PLAIN. The session
// opened by Verify is reused by the following Send on the same value.
type smtpTransport struct {
	cfg      config.MailConfig
	username string
	password string
	now      func() time.Time

	client *smtp.Client
}

// tlsConfig relaxes certificate validation unless StrictTLS is set, so
// self-signed and misconfigured servers still accept submissions.
func (t *smtpTransport) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         t.cfg.Host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !t.cfg.StrictTLS, //nolint:gosec // opt-in strictness via EMAIL_STRICT_TLS
	}
}

// dial opens the TCP (or implicit TLS) connection. The context deadline
// is carried onto the connection so every SMTP command respects it.
func (t *smtpTransport) dial(ctx context.Context) (net.Conn, error) {
	var (
		conn net.Conn
		err  error
	)
	if t.cfg.ImplicitTLS {
		d := &tls.Dialer{Config: t.tlsConfig()}
		conn, err = d.DialContext(ctx, "tcp", t.cfg.Addr())
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", t.cfg.Addr())
	}
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	return conn, nil
}

// Verify connects, negotiates TLS and authenticates. On the submission
// port STARTTLS is mandatory; with ImplicitTLS the connection is already
// encrypted. Calling it on an already verified transport is a no-op.
func (t *smtpTransport) Verify(ctx context.Context) error {
	if t.client != nil {
		return nil
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", t.cfg.Addr(), err)
	}

	c, err := t.handshake(conn)
	if err != nil {
		return err
	}

	if err := c.Auth(sasl.NewPlainClient("", t.username, t.password)); err != nil {
		c.Close()
		return fmt.Errorf("authenticating as %s: %w", t.username, err)
	}

	t.client = c
	return nil
}

// handshake greets the server and, unless the connection is already TLS,
// upgrades it with STARTTLS. conn is closed on failure.
func (t *smtpTransport) handshake(conn net.Conn) (*smtp.Client, error) {
	if t.cfg.ImplicitTLS {
		c := smtp.NewClient(conn)
		if err := c.Hello(heloName); err != nil {
			c.Close()
			return nil, fmt.Errorf("EHLO: %w", err)
		}
		return c, nil
	}

	c, err := smtp.NewClientStartTLS(conn, t.tlsConfig())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("STARTTLS: %w", err)
	}
	return c, nil
}

// Send runs MAIL FROM, RCPT TO and DATA, then QUITs. The returned id is
// the Message-ID header written into the message.
func (t *smtpTransport) Send(ctx context.Context, env *Envelope) (string, error) {
	if err := t.Verify(ctx); err != nil {
		return "", err
	}

	raw, messageID, err := compose(env, t.now())
	if err != nil {
		return "", err
	}

	c := t.client
	if err := c.Mail(env.From, nil); err != nil {
		return "", fmt.Errorf("MAIL FROM: %w", err)
	}
	for _, rcpt := range env.To {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return "", fmt.Errorf("RCPT TO %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return "", fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return "", fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing data: %w", err)
	}

	// The message is accepted once DATA closes cleanly; a failed QUIT
	// does not undo that.
	_ = c.Quit()
	t.client = nil
	return messageID, nil
}

// Close drops the connection without QUIT.
func (t *smtpTransport) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
