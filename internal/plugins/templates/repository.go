package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
)

// TemplateRepository defines the data access contract for templates.
// Every lookup is scoped by owner.
type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	FindByID(ctx context.Context, userID, id string) (*Template, error)
	ListByUser(ctx context.Context, userID string) ([]Template, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, userID, id string) error
}

// templateRepository implements TemplateRepository using MariaDB.
type templateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new template repository backed by MariaDB.
func NewTemplateRepository(db *sql.DB) TemplateRepository {
	return &templateRepository{db: db}
}

const templateColumns = `id, user_id, name, subject, html_content, plain_text, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*Template, error) {
	var (
		t         Template
		plainText sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Subject, &t.HTMLContent, &plainText, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.PlainText = plainText.String
	return &t, nil
}

// Create inserts a new template. CreatedAt and UpdatedAt are set by the caller.
func (r *templateRepository) Create(ctx context.Context, t *Template) error {
	query := `INSERT INTO email_templates (` + templateColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Name, t.Subject, t.HTMLContent, t.PlainText, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("inserting template: %w", err))
	}
	return nil
}

// FindByID returns the template if it belongs to userID.
func (r *templateRepository) FindByID(ctx context.Context, userID, id string) (*Template, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates WHERE id = ? AND user_id = ?`

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Template not found")
	}
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("querying template %s: %w", id, err))
	}
	return t, nil
}

// ListByUser returns the user's templates, most recently updated first.
func (r *templateRepository) ListByUser(ctx context.Context, userID string) ([]Template, error) {
	query := `SELECT ` + templateColumns + ` FROM email_templates
	          WHERE user_id = ? ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing templates: %w", err))
	}
	defer rows.Close()

	result := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("scanning template row: %w", err))
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("iterating templates: %w", err))
	}
	return result, nil
}

// Update overwrites the editable fields of a template owned by t.UserID.
func (r *templateRepository) Update(ctx context.Context, t *Template) error {
	query := `UPDATE email_templates
	          SET name = ?, subject = ?, html_content = ?, plain_text = ?, updated_at = ?
	          WHERE id = ? AND user_id = ?`

	// Callers load the row through FindByID first. MariaDB reports changed
	// rows, not matched ones, so RowsAffected is zero for an identical save.
	if _, err := r.db.ExecContext(ctx, query,
		t.Name, t.Subject, t.HTMLContent, t.PlainText, t.UpdatedAt, t.ID, t.UserID,
	); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating template %s: %w", t.ID, err))
	}
	return nil
}

// Delete removes a template owned by userID.
func (r *templateRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("deleting template %s: %w", id, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("checking delete of template %s: %w", id, err))
	}
	if n == 0 {
		return apperror.NewNotFound("Template not found")
	}
	return nil
}
