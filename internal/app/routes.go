package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyxmakerx/mailcraft/internal/middleware"
	"github.com/keyxmakerx/mailcraft/internal/plugins/ai"
	"github.com/keyxmakerx/mailcraft/internal/plugins/mailer"
	"github.com/keyxmakerx/mailcraft/internal/plugins/oauth"
	"github.com/keyxmakerx/mailcraft/internal/plugins/templates"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// RegisterRoutes sets up all application routes. It registers operational
// routes directly and delegates to each plugin's route registration.
//
// This is the single place where all routes are aggregated. When a new
// plugin is added, its routes are registered here.
func (a *App) RegisterRoutes(ctx context.Context) error {
	e := a.Echo
	cfg := a.Config

	// --- Operational Routes ---

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Success:   true,
			Message:   "Email service is running",
			Timestamp: time.Now().UTC(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{})))

	api := e.Group("/api")

	// --- Mailer Plugin (dispatch core) ---
	// Rate limited per client IP; the limiter shares counters through Redis.
	mailService := mailer.NewMailService(
		mailer.NewTransportBuilder(cfg.Mail),
		mailer.NewMetrics(a.Metrics),
	)
	mailHandler := mailer.NewHandler(mailService, cfg.Mail, cfg.Upload, cfg.IsDevelopment())
	mailer.RegisterRoutes(
		api.Group("/email", middleware.RateLimit(a.Redis, "email", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)),
		mailHandler,
	)

	// --- OAuth Plugin ---
	oauthService := oauth.NewOAuthService(cfg.OAuth, oauth.NewRedisStateStore(a.Redis, cfg.OAuth.StateTTL))
	oauth.RegisterRoutes(api.Group("/oauth"), oauth.NewHandler(oauthService))

	// --- AI Plugin ---
	// A nil generator means no API key; the plugin still answers /health.
	generator, err := ai.NewGeminiGenerator(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("creating AI generator: %w", err)
	}
	aiService := ai.NewAIService(generator, cfg.AI.Model, cfg.AI.Timeout)
	ai.RegisterRoutes(api.Group("/ai"), ai.NewHandler(aiService))

	// --- Templates Plugin ---
	templateService := templates.NewTemplateService(templates.NewTemplateRepository(a.DB))
	templates.RegisterRoutes(api.Group("/templates"), templates.NewHandler(templateService))

	return nil
}
