// Package app is the application bootstrap and dependency injection root.
// It creates and holds all shared infrastructure (DB pool, Redis client,
// metrics registry, Echo instance) and wires together all plugins.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
	"github.com/keyxmakerx/mailcraft/internal/config"
	"github.com/keyxmakerx/mailcraft/internal/middleware"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool backing the template store.
	DB *sql.DB

	// Redis backs the email API rate limiter and the OAuth state store.
	Redis *redis.Client

	// Metrics is the Prometheus registry exposed on /metrics.
	Metrics *prometheus.Registry

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// Configure trusted reverse proxy IPs so c.RealIP() returns the actual
	// client IP instead of the proxy's IP. The rate limiter keys on it.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",    // Localhost
		"10.0.0.0/8",     // Docker default bridge
		"172.16.0.0/12",  // Docker bridge (alternate range)
		"192.168.0.0/16", // Common LAN
		"fd00::/8",       // IPv6 private
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Metrics: reg,
		Echo:    e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first.
func (a *App) setupMiddleware() {
	// Panic recovery -- must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())

	// Request logging -- log every request with method, path, status, latency.
	a.Echo.Use(middleware.RequestLogger())

	a.Echo.Use(middleware.SecurityHeaders())

	// Development accepts any origin so the frontend dev server can run
	// on any port.
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   a.Config.CORSOrigins,
		AllowAll:         !a.Config.IsProduction(),
		AllowCredentials: true,
	}))
}

// errorHandler is the custom Echo error handler. Every error becomes the
// JSON failure envelope. Diagnostic detail from the wrapped cause is only
// included in development.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Internal server error"
	detail := ""

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		detail = apperror.Detail(err, a.Config.IsDevelopment())

		if appErr.Internal != nil {
			slog.Error("request failed",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}

	case errors.As(err, &echoErr):
		// Router misses and binder failures.
		code = echoErr.Code
		message = defaultErrorMessage(code)
		if msg, ok := echoErr.Message.(string); ok && code != http.StatusNotFound {
			message = msg
		}

	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
		if a.Config.IsDevelopment() {
			detail = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = middleware.FailWithDetail(c, code, message, detail)
}

// defaultErrorMessage returns the message used for framework errors that
// carry no message of their own.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusNotFound:
		return "Route not found"
	case http.StatusMethodNotAllowed:
		return "Method not allowed"
	case http.StatusRequestEntityTooLarge:
		return "Request body too large"
	case http.StatusInternalServerError:
		return "Internal server error"
	default:
		if text := http.StatusText(code); text != "" {
			return text
		}
		return "Request failed"
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting mailcraft server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
