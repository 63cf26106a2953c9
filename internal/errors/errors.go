// internal/errors/errors.go
package appErrors

import "fmt"

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

type ErrTemplateNotFound struct {
	TemplateID int
}

func (e *ErrTemplateNotFound) Error() string {
	return fmt.Sprintf("template with ID %d not found", e.TemplateID)
}

func NewTemplateNotFound(id int) error {
	return &ErrTemplateNotFound{TemplateID: id}
}

type ErrCredentialNotFound struct {
	UserID string
}

func (e *ErrCredentialNotFound) Error() string {
	return fmt.Sprintf("no resolvable credentials for user %q", e.UserID)
}

func NewCredentialNotFound(userID string) error {
	return &ErrCredentialNotFound{UserID: userID}
}

// ValidationError rejects a request before any side effect happens.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func NewValidation(field string) error {
	return &ValidationError{Field: field}
}

// TransportError wraps a failed delivery attempt for a single recipient.
// It is reported as data in the batch result, never propagated to abort
// the rest of a batch.
type TransportError struct {
	Recipient string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed for %s: %v", e.Recipient, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func NewTransport(recipient string, err error) error {
	return &TransportError{Recipient: recipient, Err: err}
}
