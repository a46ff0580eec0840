package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests. Example: ["https://mailer.example.com", "http://localhost:3000"]
	AllowedOrigins []string

	// AllowAll accepts every origin. Used in development so the frontend
	// dev server can run on any port.
	AllowAll bool

	// AllowCredentials indicates whether the browser should include cookies
	// and auth headers in cross-origin requests.
	AllowCredentials bool
}

// CORS returns middleware that handles Cross-Origin Resource Sharing headers.
// Requests without an Origin header (curl, mobile clients, same-origin) pass
// through untouched. Requests from an origin outside the whitelist are
// rejected with 403 instead of silently proceeding.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	originSet := make(map[string]bool)
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			cfg.AllowAll = true
		}
		originSet[o] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			origin := req.Header.Get("Origin")

			if origin == "" {
				return next(c)
			}

			if !cfg.AllowAll && !originSet[origin] {
				slog.Warn("CORS blocked origin", slog.String("origin", origin))
				return Fail(c, http.StatusForbidden, "Not allowed by CORS")
			}

			// The origin is echoed back rather than "*" so credentials work.
			res.Header().Set("Access-Control-Allow-Origin", origin)
			res.Header().Add("Vary", "Origin")

			if cfg.AllowCredentials {
				res.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if req.Method == http.MethodOptions {
				res.Header().Set("Access-Control-Allow-Methods",
					strings.Join([]string{
						http.MethodGet,
						http.MethodPost,
						http.MethodPut,
						http.MethodDelete,
						http.MethodOptions,
					}, ", "))

				res.Header().Set("Access-Control-Allow-Headers",
					strings.Join([]string{
						"Content-Type",
						"Authorization",
						"X-Requested-With",
						"X-User-ID",
					}, ", "))

				res.Header().Set("Access-Control-Max-Age", "3600")

				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
