package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// MailService is the dispatch core used by the HTTP handler and the
// mailtest CLI.
type MailService interface {
	// SendEmail resolves credentials, assembles the envelope, builds and
	// verifies a transport, and sends once. Every failure comes back as a
	// classified Result; nothing is retried.
	SendEmail(ctx context.Context, req SendRequest) Result

	// TestConnection performs an SMTP login handshake without sending.
	// Only password credentials are testable here. Failures are logged
	// and collapse to false.
	TestConnection(ctx context.Context, creds Credentials) bool
}

// mailService implements MailService.
type mailService struct {
	builder TransportBuilder
	metrics *Metrics
}

// NewMailService creates a new mail service. metrics may be nil.
func NewMailService(builder TransportBuilder, metrics *Metrics) MailService {
	return &mailService{builder: builder, metrics: metrics}
}

// SendEmail validates everything that needs no network before the first
// dial, so missing credentials and bad recipients cost zero provider
// calls.
func (s *mailService) SendEmail(ctx context.Context, req SendRequest) Result {
	start := time.Now()

	mode, err := Resolve(req.Credentials)
	if err != nil {
		return s.finish(ctx, mode, start, err)
	}

	env, err := Assemble(req.Credentials.Email, req.To, req.Subject, req.HTML, req.Attachments)
	if err != nil {
		return s.finish(ctx, mode, start, err)
	}

	transport, err := s.builder.Build(ctx, mode, req.Credentials)
	if err != nil {
		return s.finish(ctx, mode, start, classify(ctx, KindConnection, err))
	}
	defer transport.Close()

	if err := transport.Verify(ctx); err != nil {
		return s.finish(ctx, mode, start, classify(ctx, KindConnection, err))
	}

	messageID, err := transport.Send(ctx, env)
	if err != nil {
		kind := KindSendRejected
		if errors.Is(err, errCompose) {
			kind = KindInternal
		}
		return s.finish(ctx, mode, start, classify(ctx, kind, err))
	}

	result := Succeeded(messageID)
	s.metrics.observeDispatch(mode, result, time.Since(start))
	slog.Info("email sent",
		slog.String("mode", string(mode)),
		slog.Int("recipients", len(env.To)),
		slog.Int("attachments", len(env.Attachments)),
		slog.String("message_id", messageID),
	)
	return result
}

// finish records and logs a failed dispatch.
func (s *mailService) finish(ctx context.Context, mode AuthMode, start time.Time, err error) Result {
	result := Failed(err)
	s.metrics.observeDispatch(mode, result, time.Since(start))

	level := slog.LevelWarn
	if result.Kind == KindInternal {
		level = slog.LevelError
	}
	slog.Log(ctx, level, "email dispatch failed",
		slog.String("mode", string(mode)),
		slog.String("kind", string(result.Kind)),
		slog.String("detail", result.Detail),
	)
	return result
}

// TestConnection builds and verifies a password-mode transport.
func (s *mailService) TestConnection(ctx context.Context, creds Credentials) bool {
	ok := s.testConnection(ctx, creds) == nil
	s.metrics.observeConnectionTest(ok)
	return ok
}

func (s *mailService) testConnection(ctx context.Context, creds Credentials) error {
	mode, err := Resolve(creds)
	if err != nil {
		slog.Warn("connection test rejected", slog.Any("error", err))
		return err
	}
	if mode != ModePassword || creds.Password == "" {
		err := newError(KindMissingAuthentication, "password is required for connection test")
		slog.Warn("connection test rejected", slog.Any("error", err))
		return err
	}

	transport, err := s.builder.Build(ctx, ModePassword, creds)
	if err != nil {
		slog.Warn("connection test failed", slog.Any("error", err))
		return err
	}
	defer transport.Close()

	if err := transport.Verify(ctx); err != nil {
		slog.Warn("connection test failed", slog.Any("error", err))
		return err
	}
	return nil
}

// classify wraps err with kind, noting when the request deadline was the
// cause.
func classify(ctx context.Context, kind Kind, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("request timed out: %w", err)
	}
	return &Error{Kind: kind, Err: err}
}
