// internal/model/email.go
package model

import "time"

// Email statuses. A record only moves forward: sent -> delivered -> opened.
// failed is terminal on the failure path and never reverts either.
const (
	EmailStatusSent      = "sent"
	EmailStatusDelivered = "delivered"
	EmailStatusOpened    = "opened"
	EmailStatusFailed    = "failed"
)

// EmailRecord is one row in the emails table: a single delivered message
// with its tracking token and lifecycle timestamps.
type EmailRecord struct {
	ID          int        `db:"id" json:"id"`
	MessageID   string     `db:"message_id" json:"message_id"`
	TrackingID  *string    `db:"tracking_id" json:"tracking_id,omitempty"`
	Sender      string     `db:"sender" json:"sender"`
	Recipient   string     `db:"recipient" json:"recipient"`
	Subject     string     `db:"subject" json:"subject"`
	Status      string     `db:"status" json:"status"`
	TemplateID  *int       `db:"template_id" json:"template_id,omitempty"`
	CampaignID  *int       `db:"campaign_id" json:"campaign_id,omitempty"`
	SentAt      time.Time  `db:"sent_at" json:"sent_at"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	OpenedAt    *time.Time `db:"opened_at" json:"opened_at,omitempty"`
}
