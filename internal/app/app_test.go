package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
	"github.com/keyxmakerx/mailcraft/internal/config"
	"github.com/keyxmakerx/mailcraft/internal/middleware"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:         env,
		Port:        5000,
		CORSOrigins: []string{"http://localhost:3000"},
		Mail:        config.MailConfig{Host: "smtp.example.com", Port: 587, Timeout: time.Second},
		OAuth:       config.OAuthConfig{StateTTL: time.Minute},
		AI:          config.AIConfig{Model: "gemini-2.5-flash", Timeout: time.Second},
		RateLimit:   config.RateLimitConfig{Window: time.Minute, MaxRequests: 2},
		Upload:      config.UploadConfig{MaxSize: 1 << 20, MaxFiles: 10},
	}
}

func newTestApp(t *testing.T, env string) *App {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	a := New(testConfig(env), nil, rdb)
	if err := a.RegisterRoutes(context.Background()); err != nil {
		t.Fatalf("registering routes: %v", err)
	}
	return a
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) middleware.Envelope {
	t.Helper()
	var env middleware.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v (%s)", err, rec.Body.String())
	}
	return env
}

func TestHealth(t *testing.T) {
	a := newTestApp(t, "production")
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !resp.Success || resp.Message != "Email service is running" || resp.Timestamp.IsZero() {
		t.Errorf("unexpected health response: %+v", resp)
	}
}

func TestUnknownRoute(t *testing.T) {
	a := newTestApp(t, "production")
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Success || env.Message != "Route not found" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestEmailConfigRoute(t *testing.T) {
	a := newTestApp(t, "production")
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/email/config", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"host":"smtp.example.com"`) {
		t.Errorf("unexpected config body: %s", rec.Body.String())
	}
}

func TestEmailRoutesAreRateLimited(t *testing.T) {
	a := newTestApp(t, "production")
	for i := 0; i < 2; i++ {
		serve(a, httptest.NewRequest(http.MethodGet, "/api/email/config", nil))
	}

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/email/config", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != middleware.RateLimitMessage {
		t.Errorf("unexpected message %q", env.Message)
	}

	// Other surfaces have their own budget.
	if rec := serve(a, httptest.NewRequest(http.MethodGet, "/health", nil)); rec.Code != http.StatusOK {
		t.Errorf("expected /health unaffected, got %d", rec.Code)
	}
}

func TestTemplatesRequireUser(t *testing.T) {
	a := newTestApp(t, "production")
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/templates", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Message != "Authentication required" {
		t.Errorf("unexpected message %q", env.Message)
	}
}

func TestAIHealthWithoutKey(t *testing.T) {
	a := newTestApp(t, "production")
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/ai/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"configured":false`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t, "production")
	rec := serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected runtime collectors in exposition")
	}
}

func TestErrorHandler_Detail(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:587: i/o timeout")

	tests := []struct {
		env        string
		wantDetail string
	}{
		{"development", cause.Error()},
		{"production", ""},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			a := New(testConfig(tt.env), nil, nil)
			a.Echo.GET("/boom", func(c echo.Context) error {
				return apperror.NewBadGateway("OAuth authentication failed", cause)
			})

			rec := serve(a, httptest.NewRequest(http.MethodGet, "/boom", nil))
			if rec.Code != http.StatusBadGateway {
				t.Fatalf("expected 502, got %d", rec.Code)
			}
			env := decodeEnvelope(t, rec)
			if env.Message != "OAuth authentication failed" || env.Error != tt.wantDetail {
				t.Errorf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestErrorHandler_UnknownErrorIsInternal(t *testing.T) {
	a := New(testConfig("production"), nil, nil)
	a.Echo.GET("/boom", func(c echo.Context) error {
		return errors.New("secret connection string leaked")
	})

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Errorf("raw error leaked: %s", rec.Body.String())
	}
}
