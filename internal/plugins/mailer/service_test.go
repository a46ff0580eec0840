package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// --- Mock Transport ---

// mockTransport implements Transport for testing.
type mockTransport struct {
	verifyFn func(ctx context.Context) error
	sendFn   func(ctx context.Context, env *Envelope) (string, error)

	verifyCalls int
	sent        []*Envelope
	closed      bool
}

func (m *mockTransport) Verify(ctx context.Context) error {
	m.verifyCalls++
	if m.verifyFn != nil {
		return m.verifyFn(ctx)
	}
	return nil
}

func (m *mockTransport) Send(ctx context.Context, env *Envelope) (string, error) {
	m.sent = append(m.sent, env)
	if m.sendFn != nil {
		return m.sendFn(ctx, env)
	}
	return "<msg-1@localhost>", nil
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

// --- Mock Builder ---

// mockBuilder implements TransportBuilder and records every build.
type mockBuilder struct {
	buildFn   func(ctx context.Context, mode AuthMode, creds Credentials) (Transport, error)
	transport *mockTransport

	builds   int
	lastMode AuthMode
}

func (m *mockBuilder) Build(ctx context.Context, mode AuthMode, creds Credentials) (Transport, error) {
	m.builds++
	m.lastMode = mode
	if m.buildFn != nil {
		return m.buildFn(ctx, mode, creds)
	}
	if m.transport == nil {
		m.transport = &mockTransport{}
	}
	return m.transport, nil
}

func validRequest() SendRequest {
	return SendRequest{
		Credentials: Credentials{Email: "u@gmail.com", Password: "app-pass"},
		To:          "r@z.com",
		Subject:     "Hi",
		HTML:        "<p>hi</p>",
	}
}

// --- SendEmail ---

func TestSendEmail_PasswordSuccess(t *testing.T) {
	builder := &mockBuilder{}
	svc := NewMailService(builder, nil)

	result := svc.SendEmail(context.Background(), validRequest())
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.MessageID == "" {
		t.Error("expected a non-empty message id")
	}
	if builder.lastMode != ModePassword {
		t.Errorf("expected password mode, got %q", builder.lastMode)
	}
	if builder.transport.verifyCalls != 1 {
		t.Errorf("expected exactly one handshake, got %d", builder.transport.verifyCalls)
	}
	if !builder.transport.closed {
		t.Error("expected transport to be closed after dispatch")
	}

	env := builder.transport.sent[0]
	if env.From != "u@gmail.com" || len(env.To) != 1 || env.To[0] != "r@z.com" {
		t.Errorf("unexpected envelope: %+v", env)
	}

	resp := result.Response(false)
	if !resp.Success || resp.Message != "Email sent successfully" || resp.MessageID == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSendEmail_TokenTakesPrecedence(t *testing.T) {
	builder := &mockBuilder{}
	svc := NewMailService(builder, nil)

	req := validRequest()
	req.Credentials.AccessToken = "ya29.token"

	if result := svc.SendEmail(context.Background(), req); !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if builder.lastMode != ModeOAuth2 {
		t.Errorf("expected oauth2 mode, got %q", builder.lastMode)
	}
}

func TestSendEmail_MissingAuthentication_NoNetwork(t *testing.T) {
	builder := &mockBuilder{}
	svc := NewMailService(builder, nil)

	req := validRequest()
	req.Credentials.Password = ""

	result := svc.SendEmail(context.Background(), req)
	if result.Success || result.Kind != KindMissingAuthentication {
		t.Fatalf("expected missing authentication, got %+v", result)
	}
	if result.Message() != "authentication required" {
		t.Errorf("unexpected message %q", result.Message())
	}
	if builder.builds != 0 {
		t.Errorf("expected zero transports built, got %d", builder.builds)
	}
}

func TestSendEmail_InvalidRecipient_BeforeTransport(t *testing.T) {
	builder := &mockBuilder{}
	svc := NewMailService(builder, nil)

	req := validRequest()
	req.To = "not-an-address"

	result := svc.SendEmail(context.Background(), req)
	if result.Kind != KindInvalidRecipient {
		t.Fatalf("expected invalid recipient, got %+v", result)
	}
	if builder.builds != 0 {
		t.Errorf("expected no transport to be built, got %d", builder.builds)
	}
	if result.StatusCode() != 400 {
		t.Errorf("expected 400, got %d", result.StatusCode())
	}
}

func TestSendEmail_HandshakeRejected_DetailOnlyInDevelopment(t *testing.T) {
	providerErr := errors.New("535 5.7.8 Username and Password not accepted")
	builder := &mockBuilder{transport: &mockTransport{
		verifyFn: func(ctx context.Context) error { return providerErr },
	}}
	svc := NewMailService(builder, nil)

	result := svc.SendEmail(context.Background(), validRequest())
	if result.Kind != KindConnection {
		t.Fatalf("expected connection error, got %+v", result)
	}
	if len(builder.transport.sent) != 0 {
		t.Error("expected no send after a failed handshake")
	}
	if builder.transport.verifyCalls != 1 {
		t.Errorf("expected a single handshake attempt, got %d", builder.transport.verifyCalls)
	}

	prod := result.Response(false)
	if prod.Success || prod.Error != "" {
		t.Errorf("production response leaked detail: %+v", prod)
	}
	if strings.Contains(prod.Message, "535") {
		t.Errorf("production message contains provider text: %q", prod.Message)
	}

	dev := result.Response(true)
	if !strings.Contains(dev.Error, "535 5.7.8") {
		t.Errorf("expected provider detail in development, got %q", dev.Error)
	}
}

func TestSendEmail_BuildFailure(t *testing.T) {
	builder := &mockBuilder{
		buildFn: func(ctx context.Context, mode AuthMode, creds Credentials) (Transport, error) {
			return nil, errors.New("no route to host")
		},
	}
	svc := NewMailService(builder, nil)

	result := svc.SendEmail(context.Background(), validRequest())
	if result.Kind != KindConnection {
		t.Errorf("expected connection error, got %+v", result)
	}
}

func TestSendEmail_SendRejected(t *testing.T) {
	builder := &mockBuilder{transport: &mockTransport{
		sendFn: func(ctx context.Context, env *Envelope) (string, error) {
			return "", errors.New("550 5.4.5 Daily sending quota exceeded")
		},
	}}
	svc := NewMailService(builder, nil)

	result := svc.SendEmail(context.Background(), validRequest())
	if result.Kind != KindSendRejected {
		t.Fatalf("expected send rejected, got %+v", result)
	}
	if result.Message() != "Failed to send email" {
		t.Errorf("unexpected message %q", result.Message())
	}
	if !builder.transport.closed {
		t.Error("expected transport to be closed after a failed send")
	}
}

func TestSendEmail_ComposeFailureIsInternal(t *testing.T) {
	builder := &mockBuilder{transport: &mockTransport{
		sendFn: func(ctx context.Context, env *Envelope) (string, error) {
			return "", fmt.Errorf("%w: boom", errCompose)
		},
	}}
	svc := NewMailService(builder, nil)

	result := svc.SendEmail(context.Background(), validRequest())
	if result.Kind != KindInternal || result.StatusCode() != 500 {
		t.Errorf("expected internal failure, got %+v", result)
	}
}

func TestSendEmail_TimeoutDiagnostic(t *testing.T) {
	builder := &mockBuilder{transport: &mockTransport{
		verifyFn: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}}
	svc := NewMailService(builder, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	result := svc.SendEmail(ctx, validRequest())
	if result.Kind != KindConnection {
		t.Fatalf("expected connection error, got %+v", result)
	}
	if !strings.Contains(result.Detail, "timed out") {
		t.Errorf("expected timeout diagnostic, got %q", result.Detail)
	}
}

func TestSendEmail_NewTransportPerRequest(t *testing.T) {
	builder := &mockBuilder{
		buildFn: func(ctx context.Context, mode AuthMode, creds Credentials) (Transport, error) {
			return &mockTransport{}, nil
		},
	}
	svc := NewMailService(builder, nil)

	for i := 0; i < 3; i++ {
		if r := svc.SendEmail(context.Background(), validRequest()); !r.Success {
			t.Fatalf("send %d failed: %+v", i, r)
		}
	}
	if builder.builds != 3 {
		t.Errorf("expected a fresh transport per request, got %d builds", builder.builds)
	}
}

func TestSendEmail_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	svc := NewMailService(&mockBuilder{}, metrics)

	svc.SendEmail(context.Background(), validRequest())
	bad := validRequest()
	bad.Credentials.Password = ""
	svc.SendEmail(context.Background(), bad)

	if got := testutil.ToFloat64(metrics.dispatches.WithLabelValues("password", "success")); got != 1 {
		t.Errorf("expected 1 successful password dispatch, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.dispatches.WithLabelValues("unknown", string(KindMissingAuthentication))); got != 1 {
		t.Errorf("expected 1 missing-auth dispatch, got %v", got)
	}
}

// --- TestConnection ---

func TestTestConnection(t *testing.T) {
	builder := &mockBuilder{}
	svc := NewMailService(builder, nil)
	creds := Credentials{Email: "u@gmail.com", Password: "app-pass"}

	first := svc.TestConnection(context.Background(), creds)
	second := svc.TestConnection(context.Background(), creds)
	if !first || !second {
		t.Errorf("expected repeated tests to succeed, got %v then %v", first, second)
	}
	if !builder.transport.closed {
		t.Error("expected transport to be closed")
	}
	if len(builder.transport.sent) != 0 {
		t.Error("connection test must not send")
	}
}

func TestTestConnection_Failures(t *testing.T) {
	tests := []struct {
		name       string
		creds      Credentials
		verifyErr  error
		wantBuilds int
	}{
		{"missing password", Credentials{Email: "u@gmail.com"}, nil, 0},
		{"token only", Credentials{Email: "u@gmail.com", AccessToken: "tok"}, nil, 0},
		{"missing account", Credentials{Password: "p"}, nil, 0},
		{"handshake rejected", Credentials{Email: "u@gmail.com", Password: "bad"}, errors.New("535 auth failed"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := &mockBuilder{transport: &mockTransport{
				verifyFn: func(ctx context.Context) error { return tt.verifyErr },
			}}
			svc := NewMailService(builder, nil)

			if svc.TestConnection(context.Background(), tt.creds) {
				t.Error("expected connection test to fail")
			}
			if builder.builds != tt.wantBuilds {
				t.Errorf("expected %d builds, got %d", tt.wantBuilds, builder.builds)
			}
		})
	}
}
