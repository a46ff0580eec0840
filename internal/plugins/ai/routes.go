package ai

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the AI routes on the /api/ai group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/health", h.Health)
	g.POST("/convert-to-html", h.ConvertToHTML)
	g.POST("/tweak-html", h.TweakHTML)
}
