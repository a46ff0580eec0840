// Package ai converts plain text into email-ready HTML and applies
// free-form edits to existing HTML using Gemini. Output is treated as
// opaque markup by the rest of the application.
package ai

import "time"

const (
	// MaxPlainTextLength bounds the text accepted for conversion.
	MaxPlainTextLength = 5000

	// MaxTweakLength bounds the edit instruction for a tweak.
	MaxTweakLength = 500
)

// ConvertRequest is the body of POST /api/ai/convert-to-html.
type ConvertRequest struct {
	PlainText string `json:"plainText" form:"plainText"`
	EmailType string `json:"emailType" form:"emailType"`
}

// TweakRequest is the body of POST /api/ai/tweak-html.
type TweakRequest struct {
	OriginalHTML     string `json:"originalHtml" form:"originalHtml"`
	TweakDescription string `json:"tweakDescription" form:"tweakDescription"`
}

// HTMLResponse carries generated markup back to the caller.
type HTMLResponse struct {
	Success     bool   `json:"success"`
	HTMLContent string `json:"htmlContent"`
}

// Status reports whether generation is available. The API key itself is
// never exposed.
type Status struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
}

// HealthResponse is returned by GET /api/ai/health.
type HealthResponse struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
	Configuration Status    `json:"configuration"`
}
