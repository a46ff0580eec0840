package oauth

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the OAuth routes on the /api/oauth group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.GET("/auth-url", h.AuthURL)
	g.GET("/callback", h.Callback)
	g.POST("/refresh", h.Refresh)
	g.POST("/test-connection", h.TestConnection)
}
