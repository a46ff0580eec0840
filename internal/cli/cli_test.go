package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/keyxmakerx/mailcraft/internal/config"
	"github.com/keyxmakerx/mailcraft/internal/plugins/mailer"
)

// --- Mock Service ---

type mockMailService struct {
	sendFn func(ctx context.Context, req mailer.SendRequest) mailer.Result
	testFn func(ctx context.Context, creds mailer.Credentials) bool
}

func (m *mockMailService) SendEmail(ctx context.Context, req mailer.SendRequest) mailer.Result {
	if m.sendFn != nil {
		return m.sendFn(ctx, req)
	}
	return mailer.Succeeded("<id@test>")
}

func (m *mockMailService) TestConnection(ctx context.Context, creds mailer.Credentials) bool {
	if m.testFn != nil {
		return m.testFn(ctx, creds)
	}
	return true
}

func testConfig() (*config.Config, error) {
	return &config.Config{
		Mail:   config.MailConfig{Host: "smtp.example.com", Port: 587, Timeout: 5 * time.Second},
		Upload: config.UploadConfig{MaxSize: 1024, MaxFiles: 2},
	}, nil
}

func run(t *testing.T, svc *mockMailService, args ...string) (string, error) {
	t.Helper()
	factory := func(config.MailConfig) mailer.MailService { return svc }
	root := NewRootCmd(factory, testConfig)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVerify(t *testing.T) {
	var got mailer.Credentials
	svc := &mockMailService{testFn: func(ctx context.Context, creds mailer.Credentials) bool {
		got = creds
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected a deadline on the verify context")
		}
		return true
	}}

	out, err := run(t, svc, "verify", "--email", "me@example.com", "--password", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Email != "me@example.com" || got.Password != "secret" {
		t.Errorf("unexpected credentials: %+v", got)
	}
	if !strings.Contains(out, "smtp.example.com:587") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestVerify_Failure(t *testing.T) {
	svc := &mockMailService{testFn: func(context.Context, mailer.Credentials) bool { return false }}
	if _, err := run(t, svc, "verify", "--email", "me@example.com", "--password", "bad"); err != errVerifyFailed {
		t.Errorf("expected errVerifyFailed, got %v", err)
	}
}

func TestVerify_MissingFlags(t *testing.T) {
	svc := &mockMailService{testFn: func(context.Context, mailer.Credentials) bool {
		t.Fatal("service must not be called")
		return false
	}}
	if _, err := run(t, svc, "verify", "--email", "me@example.com"); err == nil {
		t.Error("expected error without password")
	}
}

func TestSend_WithFileAndAttachment(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "body.html")
	attachPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(htmlPath, []byte("<p>Hello</p>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(attachPath, []byte("notes"), 0o600); err != nil {
		t.Fatal(err)
	}

	var got mailer.SendRequest
	svc := &mockMailService{sendFn: func(_ context.Context, req mailer.SendRequest) mailer.Result {
		got = req
		return mailer.Succeeded("<abc@example.com>")
	}}

	out, err := run(t, svc, "send",
		"--email", "me@example.com", "--token", "ya29.token",
		"--to", "a@example.com,b@example.com", "--subject", "Hi",
		"--html-file", htmlPath, "--attach", attachPath,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.HTML != "<p>Hello</p>" || got.Credentials.AccessToken != "ya29.token" {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Filename != "notes.txt" ||
		!strings.HasPrefix(got.Attachments[0].ContentType, "text/plain") {
		t.Errorf("unexpected attachments: %+v", got.Attachments)
	}
	if !strings.Contains(out, "Message-ID: <abc@example.com>") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSend_FailureReturnsKind(t *testing.T) {
	svc := &mockMailService{sendFn: func(context.Context, mailer.SendRequest) mailer.Result {
		return mailer.Failed(&mailer.Error{Kind: mailer.KindMissingAuthentication})
	}}

	_, err := run(t, svc, "send", "--email", "me@example.com", "--to", "a@example.com", "--subject", "s", "--html", "<p>x</p>")
	if err == nil || !strings.Contains(err.Error(), "missing_authentication") {
		t.Errorf("expected missing_authentication error, got %v", err)
	}
}

func TestSend_AttachmentLimits(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.bin")
	if err := os.WriteFile(big, bytes.Repeat([]byte("x"), 2048), 0o600); err != nil {
		t.Fatal(err)
	}
	svc := &mockMailService{sendFn: func(context.Context, mailer.SendRequest) mailer.Result {
		t.Fatal("service must not be called")
		return mailer.Result{}
	}}

	if _, err := run(t, svc, "send", "--to", "a@example.com", "--html", "x", "--attach", big); err == nil {
		t.Error("expected size limit error")
	}
	if _, err := run(t, svc, "send", "--to", "a@example.com", "--html", "x",
		"--attach", big, "--attach", big, "--attach", big); err == nil {
		t.Error("expected count limit error")
	}
}

func TestSend_HTMLFlagsExclusive(t *testing.T) {
	if _, err := run(t, &mockMailService{}, "send", "--html", "x", "--html-file", "y"); err == nil {
		t.Error("expected mutually exclusive flag error")
	}
}
