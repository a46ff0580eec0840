package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mailcraft/internal/config"
)

func TestHandlerConvertToHTML(t *testing.T) {
	h := NewHandler(NewAIService(&mockGenerator{}, "gemini-2.5-flash", time.Second))
	e := echo.New()
	rec := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/convert-to-html", strings.NewReader(`{"plainText":"hello"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	if err := h.ConvertToHTML(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp HTMLResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.HTMLContent == "" {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}
}

func TestHandlerTweakHTML_Invalid(t *testing.T) {
	h := NewHandler(NewAIService(&mockGenerator{}, "m", time.Second))
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/ai/tweak-html", strings.NewReader(`{"originalHtml":"<p>x</p>"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	assertAppError(t, h.TweakHTML(e.NewContext(req, httptest.NewRecorder())), http.StatusBadRequest)
}

func TestHandlerHealth(t *testing.T) {
	h := NewHandler(NewAIService(nil, "gemini-2.5-flash", time.Second))
	e := echo.New()
	rec := httptest.NewRecorder()

	if err := h.Health(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/ai/health", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp HealthResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Configuration.Configured || resp.Configuration.Model != "gemini-2.5-flash" {
		t.Errorf("unexpected configuration: %+v", resp.Configuration)
	}
}

func TestNewGeminiGenerator_NoKey(t *testing.T) {
	gen, err := NewGeminiGenerator(context.Background(), config.AIConfig{Model: "gemini-2.5-flash"})
	if err != nil || gen != nil {
		t.Errorf("expected nil generator without a key, got %v, %v", gen, err)
	}
}
