package middleware

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the JSON body every non-2xx API response carries. Error is
// diagnostic text and stays empty outside development.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Fail writes a failure envelope with the given status.
func Fail(c echo.Context, code int, message string) error {
	return c.JSON(code, Envelope{Success: false, Message: message})
}

// FailWithDetail writes a failure envelope carrying diagnostic detail.
// Callers pass an empty detail in production.
func FailWithDetail(c echo.Context, code int, message, detail string) error {
	return c.JSON(code, Envelope{Success: false, Message: message, Error: detail})
}
