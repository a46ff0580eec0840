package oauth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
)

// Handler serves the /api/oauth routes.
type Handler struct {
	service OAuthService
}

// NewHandler creates a new OAuth handler.
func NewHandler(service OAuthService) *Handler {
	return &Handler{service: service}
}

// AuthURL returns the Google consent URL (GET /api/oauth/auth-url).
func (h *Handler) AuthURL(c echo.Context) error {
	url, state, err := h.service.AuthURL(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AuthURLResponse{Success: true, AuthURL: url, State: state})
}

// Callback redeems the authorization code (GET /api/oauth/callback).
func (h *Handler) Callback(c echo.Context) error {
	tokens, info, err := h.service.Exchange(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, CallbackResponse{Success: true, Tokens: tokens, UserInfo: info})
}

// Refresh exchanges a refresh token for a new access token
// (POST /api/oauth/refresh).
func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	tokens, err := h.service.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RefreshResponse{Success: true, AccessToken: tokens.AccessToken, Tokens: tokens})
}

// TestConnection checks an access token with a user-info lookup
// (POST /api/oauth/test-connection).
func (h *Handler) TestConnection(c echo.Context) error {
	var req TestConnectionRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if strings.TrimSpace(req.AccessToken) == "" || strings.TrimSpace(req.Email) == "" {
		return apperror.NewBadRequest("Access token and email are required")
	}

	info, err := h.service.UserInfo(c.Request().Context(), req.AccessToken)
	if err != nil {
		return apperror.NewBadRequest("OAuth connection test failed").WithInternal(err)
	}
	return c.JSON(http.StatusOK, TestConnectionResponse{
		Success:  true,
		Message:  "OAuth connection successful",
		UserInfo: info,
	})
}
