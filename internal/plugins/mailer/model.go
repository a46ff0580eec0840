// Package mailer sends user-composed HTML email through the user's own
// mail account. A request carries the account identifier plus either an
// app password (SMTP submission) or an OAuth2 bearer token (Gmail API).
// Nothing here is cached between requests: every dispatch resolves its
// credentials, builds and verifies a fresh transport, sends once and
// discards the transport.
package mailer

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthMode selects the authentication mechanism for one dispatch.
type AuthMode string

const (
	// ModePassword authenticates to the SMTP server with the account
	// identifier and secret (AUTH PLAIN).
	ModePassword AuthMode = "password"

	// ModeOAuth2 authenticates to the Gmail API with a bearer token.
	ModeOAuth2 AuthMode = "oauth2"
)

// Credentials are the caller-supplied account details for one request.
// Never persisted and never logged.
type Credentials struct {
	Email       string
	Password    string
	AccessToken string
}

// Attachment is one file part of an outgoing message. Files reaching this
// package have already passed the boundary's count, size and type checks.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Envelope is a validated, provider-agnostic message ready for a transport.
type Envelope struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// SendRequest is the typed form of an inbound dispatch request.
type SendRequest struct {
	Credentials Credentials
	To          string // Comma-separated recipient list as submitted.
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Kind classifies a failed dispatch.
type Kind string

const (
	KindMissingAuthentication Kind = "missing_authentication"
	KindInvalidRecipient      Kind = "invalid_recipient"
	KindInvalidMessage        Kind = "invalid_message"
	KindConnection            Kind = "connection_error"
	KindSendRejected          Kind = "send_rejected"
	KindInternal              Kind = "internal"
)

// userMessages are the caller-facing messages per failure kind. Provider
// text never appears here.
var userMessages = map[Kind]string{
	KindMissingAuthentication: "authentication required",
	KindInvalidRecipient:      "Invalid email format",
	KindInvalidMessage:        "Recipient, subject, and HTML content are required",
	KindConnection:            "Failed to connect to the mail server. Please check your credentials.",
	KindSendRejected:          "Failed to send email",
	KindInternal:              "Failed to send email",
}

// Error is a classified dispatch failure. Err carries the diagnostic.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a classified error with a formatted diagnostic.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the failure kind of err, or KindInternal for errors that
// were never classified.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Result is the outcome of one dispatch: either a provider message id or
// a classified failure with a diagnostic.
type Result struct {
	Success   bool
	MessageID string
	Kind      Kind
	Detail    string
}

// Succeeded builds a success result.
func Succeeded(messageID string) Result {
	return Result{Success: true, MessageID: messageID}
}

// Failed builds a failure result from a classified error.
func Failed(err error) Result {
	r := Result{Kind: KindOf(err)}
	if err != nil {
		var de *Error
		if errors.As(err, &de) && de.Err != nil {
			r.Detail = de.Err.Error()
		} else {
			r.Detail = err.Error()
		}
	}
	return r
}

// Message returns the caller-facing message for the result.
func (r Result) Message() string {
	if r.Success {
		return "Email sent successfully"
	}
	if msg, ok := userMessages[r.Kind]; ok {
		return msg
	}
	return userMessages[KindInternal]
}

// StatusCode maps the result onto an HTTP status. Every classified failure
// is the caller's to fix or resubmit, so only unclassified ones are 500.
func (r Result) StatusCode() int {
	switch {
	case r.Success:
		return http.StatusOK
	case r.Kind == KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Response is the JSON contract shared by dispatch and connection tests.
type Response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Response renders the result. The diagnostic is included only when
// showDetail is set (development mode).
func (r Result) Response(showDetail bool) Response {
	resp := Response{
		Success:   r.Success,
		Message:   r.Message(),
		MessageID: r.MessageID,
	}
	if showDetail && !r.Success {
		resp.Error = r.Detail
	}
	return resp
}

// ConfigResponse describes the password-mode transport defaults
// (GET /api/email/config).
type ConfigResponse struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Secure bool   `json:"secure"`
}
