package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/mailtrail-backend/internal/errors"
	"github.com/unclebandit/mailtrail-backend/internal/model"
)

type CredentialRepositoryInterface interface {
	Create(c *model.Credential) error
	ListByUser(userID string) ([]model.Credential, error)
	Delete(id int) error

	// Resolve returns the explicit credential when credentialID is set,
	// otherwise the user's default.
	Resolve(credentialID *int, userID string) (*model.Credential, error)
}

type CredentialRepository struct {
	DB *sql.DB
}

const credentialColumns = `id, user_id, email, host, port, username, password, is_default, created_at`

func (r *CredentialRepository) Create(c *model.Credential) error {
	c.CreatedAt = time.Now()
	query := `
        INSERT INTO email_credentials (user_id, email, host, port, username, password, is_default, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.UserID, c.Email, c.Host, c.Port, c.Username, c.Password, c.IsDefault, c.CreatedAt).Scan(&c.ID)
}

func (r *CredentialRepository) Resolve(credentialID *int, userID string) (*model.Credential, error) {
	var row *sql.Row
	if credentialID != nil {
		query := `SELECT ` + credentialColumns + ` FROM email_credentials WHERE id=$1 AND user_id=$2`
		row = r.DB.QueryRow(query, *credentialID, userID)
	} else {
		query := `SELECT ` + credentialColumns + ` FROM email_credentials WHERE user_id=$1 AND is_default=TRUE`
		row = r.DB.QueryRow(query, userID)
	}

	var c model.Credential
	err := row.Scan(&c.ID, &c.UserID, &c.Email, &c.Host, &c.Port, &c.Username, &c.Password, &c.IsDefault, &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCredentialNotFound(userID)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CredentialRepository) ListByUser(userID string) ([]model.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM email_credentials WHERE user_id=$1 ORDER BY id`
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	credentials := []model.Credential{}
	for rows.Next() {
		var c model.Credential
		if err := rows.Scan(&c.ID, &c.UserID, &c.Email, &c.Host, &c.Port, &c.Username, &c.Password, &c.IsDefault, &c.CreatedAt); err != nil {
			return nil, err
		}
		credentials = append(credentials, c)
	}
	return credentials, rows.Err()
}

func (r *CredentialRepository) Delete(id int) error {
	_, err := r.DB.Exec(`DELETE FROM email_credentials WHERE id=$1`, id)
	return err
}

var _ CredentialRepositoryInterface = (*CredentialRepository)(nil)
