package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// gmailUser addresses the mailbox owning the bearer token.
const gmailUser = "me"

// gmailTransport sends through the Gmail API with a caller-supplied bearer
// token. The token is used as is: an expired token fails Verify and the
// caller refreshes through the OAuth endpoints.
type gmailTransport struct {
	svc   *gmail.Service
	email string
	now   func() time.Time
}

func newGmailTransport(ctx context.Context, creds Credentials, endpoint string, now func() time.Time) (*gmailTransport, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: creds.AccessToken,
		TokenType:   "Bearer",
	})

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail client: %w", err)
	}
	return &gmailTransport{svc: svc, email: creds.Email, now: now}, nil
}

// Verify fetches the mailbox profile, which proves the token is live and
// carries a Gmail scope, and checks it belongs to the claimed account.
func (t *gmailTransport) Verify(ctx context.Context) error {
	profile, err := t.svc.Users.GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail profile lookup: %w", describeGoogleError(err))
	}
	if !strings.EqualFold(profile.EmailAddress, t.email) {
		return fmt.Errorf("access token belongs to %s, not %s", profile.EmailAddress, t.email)
	}
	return nil
}

// Send uploads the composed message and returns Gmail's message id.
func (t *gmailTransport) Send(ctx context.Context, env *Envelope) (string, error) {
	raw, _, err := compose(env, t.now())
	if err != nil {
		return "", err
	}

	msg, err := t.svc.Users.Messages.Send(gmailUser, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail send: %w", describeGoogleError(err))
	}
	return msg.Id, nil
}

// Close is a no-op; the API client holds no session.
func (t *gmailTransport) Close() error { return nil }

// describeGoogleError prefixes API errors with a short reason for the
// common authentication statuses.
func describeGoogleError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusUnauthorized:
		return fmt.Errorf("access token rejected (expired or revoked): %w", err)
	case http.StatusForbidden:
		return fmt.Errorf("access token lacks permission to send mail: %w", err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("sending quota exceeded: %w", err)
	default:
		return err
	}
}
