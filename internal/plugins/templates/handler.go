package templates

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
	"github.com/keyxmakerx/mailcraft/internal/plugins/auth"
)

// Handler handles HTTP requests for template CRUD. Routes are mounted
// behind auth.RequireUser, so a user id is always present.
type Handler struct {
	service TemplateService
}

// NewHandler creates a new template handler.
func NewHandler(service TemplateService) *Handler {
	return &Handler{service: service}
}

// List returns the caller's templates (GET /api/templates).
func (h *Handler) List(c echo.Context) error {
	list, err := h.service.List(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Get returns one template (GET /api/templates/:id).
func (h *Handler) Get(c echo.Context) error {
	t, err := h.service.Get(c.Request().Context(), auth.GetUserID(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Create stores a new template (POST /api/templates).
func (h *Handler) Create(c echo.Context) error {
	var req SaveTemplateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	t, err := h.service.Create(c.Request().Context(), auth.GetUserID(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, t)
}

// Update replaces a template (PUT /api/templates/:id).
func (h *Handler) Update(c echo.Context) error {
	var req SaveTemplateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	t, err := h.service.Update(c.Request().Context(), auth.GetUserID(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// Delete removes a template (DELETE /api/templates/:id).
func (h *Handler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), auth.GetUserID(c), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DeleteResponse{Message: "Template deleted successfully"})
}
