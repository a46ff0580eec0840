package mailer

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the mail routes on the /api/email group. Rate
// limiting is applied by the caller on the group.
func RegisterRoutes(g *echo.Group, h *Handler) {
	g.POST("/send", h.Send)
	g.POST("/test-connection", h.TestConnection)
	g.GET("/config", h.Config)
}
