// Package templates stores reusable email templates per user. Every
// operation is scoped to the caller's user id; another user's template is
// indistinguishable from a missing one.
package templates

import "time"

// Template is a saved email draft.
type Template struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
	PlainText   string    `json:"plainText"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SaveTemplateRequest is the body of POST and PUT /api/templates.
// UserID is optional; when present it must match the authenticated user.
type SaveTemplateRequest struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"htmlContent"`
	PlainText   string `json:"plainText"`
}

// DeleteResponse is returned after a successful delete.
type DeleteResponse struct {
	Message string `json:"message"`
}
