package templates

import (
	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mailcraft/internal/plugins/auth"
)

// RegisterRoutes mounts template endpoints on the given group. Every route
// requires a caller identity.
func RegisterRoutes(g *echo.Group, h *Handler) {
	t := g.Group("", auth.RequireUser())
	t.GET("", h.List)
	t.GET("/:id", h.Get)
	t.POST("", h.Create)
	t.PUT("/:id", h.Update)
	t.DELETE("/:id", h.Delete)
}
