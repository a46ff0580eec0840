package ai

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
)

// Handler serves the /api/ai routes.
type Handler struct {
	service AIService
}

// NewHandler creates a new AI handler.
func NewHandler(service AIService) *Handler {
	return &Handler{service: service}
}

// ConvertToHTML generates an HTML email from plain text
// (POST /api/ai/convert-to-html).
func (h *Handler) ConvertToHTML(c echo.Context) error {
	var req ConvertRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	html, err := h.service.ConvertToHTML(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, HTMLResponse{Success: true, HTMLContent: html})
}

// TweakHTML applies an edit instruction to existing HTML
// (POST /api/ai/tweak-html).
func (h *Handler) TweakHTML(c echo.Context) error {
	var req TweakRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	html, err := h.service.TweakHTML(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, HTMLResponse{Success: true, HTMLContent: html})
}

// Health reports AI configuration (GET /api/ai/health).
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Success:       true,
		Message:       "AI service health check",
		Timestamp:     time.Now().UTC(),
		Configuration: h.service.Status(),
	})
}
