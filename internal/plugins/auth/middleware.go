// Package auth establishes the caller's identity. Sign-in is handled by an
// external identity provider; the gateway in front of this service forwards
// the authenticated user id in the X-User-ID header.
package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
)

// HeaderUserID carries the authenticated user id.
const HeaderUserID = "X-User-ID"

// contextKeyUserID stores the resolved user id in the Echo context. Other
// plugins read it through GetUserID.
const contextKeyUserID = "auth_user_id"

// maxPeekBytes bounds how much of a JSON body is read when looking for a
// userId fallback.
const maxPeekBytes = 1 << 20

// RequireUser returns middleware that resolves the caller's user id from
// the X-User-ID header, falling back to a userId field in the request
// body. Requests without either get a 401.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
			if userID == "" {
				userID = bodyUserID(c)
			}
			if userID == "" {
				return apperror.NewUnauthorized("Authentication required")
			}

			c.Set(contextKeyUserID, userID)
			return next(c)
		}
	}
}

// GetUserID retrieves the authenticated user's ID from the Echo context.
// Returns empty string if the request is not authenticated.
func GetUserID(c echo.Context) string {
	id, ok := c.Get(contextKeyUserID).(string)
	if !ok {
		return ""
	}
	return id
}

// bodyUserID reads userId from a JSON or url-encoded body. A JSON body is
// restored afterwards so the handler can still bind it.
func bodyUserID(c echo.Context) string {
	req := c.Request()
	if req.Body == nil || req.ContentLength == 0 {
		return ""
	}

	ctype := req.Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		data, err := io.ReadAll(io.LimitReader(req.Body, maxPeekBytes))
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(data))
		if err != nil {
			return ""
		}
		var body struct {
			UserID string `json:"userId"`
		}
		if json.Unmarshal(data, &body) != nil {
			return ""
		}
		return strings.TrimSpace(body.UserID)

	case strings.HasPrefix(ctype, echo.MIMEApplicationForm):
		return strings.TrimSpace(c.FormValue("userId"))
	}
	return ""
}
