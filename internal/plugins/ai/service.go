package ai

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
)

// AIService converts and edits email HTML.
type AIService interface {
	ConvertToHTML(ctx context.Context, req ConvertRequest) (string, error)
	TweakHTML(ctx context.Context, req TweakRequest) (string, error)
	Status() Status
}

// aiService implements AIService. generator is nil when no API key is set.
type aiService struct {
	generator Generator
	model     string
	timeout   time.Duration
}

// NewAIService creates a new AI service. generator may be nil.
func NewAIService(generator Generator, model string, timeout time.Duration) AIService {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &aiService{generator: generator, model: model, timeout: timeout}
}

func errNotConfigured() error {
	return apperror.NewServiceUnavailable("AI service is not properly configured - missing API key")
}

func (s *aiService) Status() Status {
	return Status{Configured: s.generator != nil, Model: s.model}
}

func (s *aiService) ConvertToHTML(ctx context.Context, req ConvertRequest) (string, error) {
	if strings.TrimSpace(req.PlainText) == "" {
		return "", apperror.NewBadRequest("Plain text content is required")
	}
	if utf8.RuneCountInString(req.PlainText) > MaxPlainTextLength {
		return "", apperror.NewBadRequest(fmt.Sprintf("Text content is too long (max %d characters)", MaxPlainTextLength))
	}
	if s.generator == nil {
		return "", errNotConfigured()
	}

	html, err := s.generate(ctx, convertPrompt(req))
	if err != nil {
		return "", apperror.NewBadGateway("Failed to convert text to HTML", err)
	}
	return html, nil
}

func (s *aiService) TweakHTML(ctx context.Context, req TweakRequest) (string, error) {
	if strings.TrimSpace(req.OriginalHTML) == "" || strings.TrimSpace(req.TweakDescription) == "" {
		return "", apperror.NewBadRequest("Both original HTML and tweak description are required")
	}
	if utf8.RuneCountInString(req.TweakDescription) > MaxTweakLength {
		return "", apperror.NewBadRequest(fmt.Sprintf("Tweak description is too long (max %d characters)", MaxTweakLength))
	}
	if s.generator == nil {
		return "", errNotConfigured()
	}

	html, err := s.generate(ctx, tweakPrompt(req))
	if err != nil {
		return "", apperror.NewBadGateway("Failed to tweak HTML", err)
	}
	return html, nil
}

func (s *aiService) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("ai generation failed", slog.String("model", s.model), slog.Any("error", err))
		return "", err
	}

	html := CleanHTML(out)
	if html == "" {
		return "", fmt.Errorf("model returned no HTML")
	}
	slog.Debug("ai generation complete",
		slog.String("model", s.model),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("length", len(html)),
	)
	return html, nil
}

// Markdown code fences the model sometimes wraps its answer in. Opening
// fences with a language tag go first so the tag is not left behind.
var (
	openFenceRe  = regexp.MustCompile("```(?:html|HTML)[ \t]*\r?\n?")
	closeFenceRe = regexp.MustCompile("\r?\n?```")
)

// CleanHTML strips markdown fences and surrounding whitespace.
func CleanHTML(s string) string {
	s = openFenceRe.ReplaceAllString(s, "")
	s = closeFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func convertPrompt(req ConvertRequest) string {
	var b strings.Builder
	b.WriteString(`Convert the following plain text email content into a clean, professional HTML email template.

Design:
- Clean, professional layout with good typography
- Simple color scheme (2-3 colors maximum)
- Proper spacing and readability
- Professional header and footer
- Clear call-to-action if applicable

Email client compatibility:
- Table-based layout
- Inline CSS only (no external stylesheets)
- Email-safe fonts (Arial, Helvetica, sans-serif)
- Good contrast for accessibility
- Mobile-responsive design

Style:
- Keep it simple; no animations or complex layouts
- Do not add images unless they are necessary or requested
`)
	if t := strings.TrimSpace(req.EmailType); t != "" {
		fmt.Fprintf(&b, "\nThis is a %s email.\n", t)
	}
	fmt.Fprintf(&b, "\nPlain text content to convert:\n\"\"\"\n%s\n\"\"\"\n\n", req.PlainText)
	b.WriteString("Return ONLY the complete HTML code without markdown formatting, code blocks, or explanations.")
	return b.String()
}

func tweakPrompt(req TweakRequest) string {
	return fmt.Sprintf(`You have this existing HTML email content:

%s

The user wants to make these changes: "%s"

Modify the HTML according to the request. Keep the styling simple and professional. Keep the email-optimized structure with inline CSS and table layouts. Return ONLY the modified HTML without explanations or markdown formatting.`,
		req.OriginalHTML, req.TweakDescription)
}
