package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/keyxmakerx/mailcraft/internal/config"
)

// Transport is one authenticated session with a mail provider. Both
// authentication modes implement it, so the dispatch flow never branches
// on provider types.
type Transport interface {
	// Verify performs the connect and login handshake without sending.
	Verify(ctx context.Context) error

	// Send delivers env and returns the provider's message id.
	Send(ctx context.Context, env *Envelope) (string, error)

	// Close releases the session. Safe to call more than once.
	Close() error
}

// TransportBuilder constructs a fresh Transport for one request. Returned
// transports are owned by the caller and never shared.
type TransportBuilder interface {
	Build(ctx context.Context, mode AuthMode, creds Credentials) (Transport, error)
}

// transportBuilder implements TransportBuilder over SMTP submission and
// the Gmail API.
type transportBuilder struct {
	mail config.MailConfig

	// gmailEndpoint overrides the Gmail API base URL. Empty in production.
	gmailEndpoint string

	now func() time.Time
}

// NewTransportBuilder creates a builder for the given SMTP defaults.
func NewTransportBuilder(cfg config.MailConfig) TransportBuilder {
	return &transportBuilder{mail: cfg, now: time.Now}
}

// Build returns an unverified transport for mode. Nothing is dialed until
// Verify or Send.
func (b *transportBuilder) Build(ctx context.Context, mode AuthMode, creds Credentials) (Transport, error) {
	switch mode {
	case ModePassword:
		return &smtpTransport{
			cfg:      b.mail,
			username: creds.Email,
			password: creds.Password,
			now:      b.now,
		}, nil
	case ModeOAuth2:
		t, err := newGmailTransport(ctx, creds, b.gmailEndpoint, b.now)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", mode)
	}
}
