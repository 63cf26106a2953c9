package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/mailtrail-backend/internal/errors"
	"github.com/unclebandit/mailtrail-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	Create(t *model.Template) error
	GetByID(id int) (*model.Template, error)
	ListByOwner(ownerID string) ([]model.Template, error)
	Update(t *model.Template) error
	Delete(id int) error
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) Create(t *model.Template) error {
	t.CreatedAt = time.Now()
	query := `
        INSERT INTO email_templates (name, subject, html_content, text_content, owner_id, is_public, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(query, t.Name, t.Subject, t.HTMLContent, t.TextContent, t.OwnerID, t.IsPublic, t.CreatedAt).Scan(&t.ID)
}

func (r *TemplateRepository) GetByID(id int) (*model.Template, error) {
	query := `
        SELECT id, name, subject, html_content, text_content, owner_id, is_public, created_at
        FROM email_templates WHERE id=$1
    `
	var t model.Template
	err := r.DB.QueryRow(query, id).Scan(
		&t.ID, &t.Name, &t.Subject, &t.HTMLContent, &t.TextContent, &t.OwnerID, &t.IsPublic, &t.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewTemplateNotFound(id)
		}
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepository) ListByOwner(ownerID string) ([]model.Template, error) {
	query := `
        SELECT id, name, subject, html_content, text_content, owner_id, is_public, created_at
        FROM email_templates
        WHERE owner_id=$1 OR is_public=TRUE
        ORDER BY id DESC
    `
	rows, err := r.DB.Query(query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := []model.Template{}
	for rows.Next() {
		var t model.Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.HTMLContent, &t.TextContent, &t.OwnerID, &t.IsPublic, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) Update(t *model.Template) error {
	query := `
        UPDATE email_templates
        SET name=$1, subject=$2, html_content=$3, text_content=$4, is_public=$5
        WHERE id=$6
    `
	_, err := r.DB.Exec(query, t.Name, t.Subject, t.HTMLContent, t.TextContent, t.IsPublic, t.ID)
	return err
}

func (r *TemplateRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM email_templates WHERE id=$1`, id)
	return err
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
