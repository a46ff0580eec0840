package templates

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
	"github.com/keyxmakerx/mailcraft/internal/sanitize"
)

// TemplateService handles template business logic. The caller supplies an
// authenticated user id on every call.
type TemplateService interface {
	List(ctx context.Context, userID string) ([]Template, error)
	Get(ctx context.Context, userID, id string) (*Template, error)
	Create(ctx context.Context, userID string, req SaveTemplateRequest) (*Template, error)
	Update(ctx context.Context, userID, id string, req SaveTemplateRequest) (*Template, error)
	Delete(ctx context.Context, userID, id string) error
}

type templateService struct {
	repo TemplateRepository
	now  func() time.Time
}

// NewTemplateService creates a new template service.
func NewTemplateService(repo TemplateRepository) TemplateService {
	return &templateService{repo: repo, now: time.Now}
}

func (s *templateService) List(ctx context.Context, userID string) ([]Template, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *templateService) Get(ctx context.Context, userID, id string) (*Template, error) {
	return s.repo.FindByID(ctx, userID, id)
}

// Create validates and stores a new template. When no plain text is given
// it is derived from the HTML.
func (s *templateService) Create(ctx context.Context, userID string, req SaveTemplateRequest) (*Template, error) {
	if err := checkOwner(userID, req.UserID); err != nil {
		return nil, err
	}
	if err := validateSave(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	t := &Template{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Subject:     req.Subject,
		HTMLContent: req.HTMLContent,
		PlainText:   plainTextFor(req),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	slog.Info("template created",
		slog.String("template_id", t.ID),
		slog.String("user_id", userID),
	)
	return t, nil
}

// Update replaces the editable fields of an existing template.
func (s *templateService) Update(ctx context.Context, userID, id string, req SaveTemplateRequest) (*Template, error) {
	if err := checkOwner(userID, req.UserID); err != nil {
		return nil, err
	}
	if err := validateSave(req); err != nil {
		return nil, err
	}

	t, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	t.Name = strings.TrimSpace(req.Name)
	t.Subject = req.Subject
	t.HTMLContent = req.HTMLContent
	t.PlainText = plainTextFor(req)
	t.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *templateService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	slog.Info("template deleted",
		slog.String("template_id", id),
		slog.String("user_id", userID),
	)
	return nil
}

// checkOwner rejects a body userId that names someone other than the
// authenticated caller. An absent body userId is fine.
func checkOwner(userID, bodyUserID string) error {
	if bodyUserID != "" && bodyUserID != userID {
		return apperror.NewForbidden("User ID mismatch")
	}
	return nil
}

func validateSave(req SaveTemplateRequest) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.HTMLContent) == "" {
		return apperror.NewBadRequest("Name, subject, and HTML content are required")
	}
	if len(req.Subject) > 998 {
		return apperror.NewBadRequest("Subject is too long")
	}
	return nil
}

func plainTextFor(req SaveTemplateRequest) string {
	if strings.TrimSpace(req.PlainText) != "" {
		return req.PlainText
	}
	return sanitize.PlainText(req.HTMLContent)
}
