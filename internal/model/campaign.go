// internal/model/campaign.go
package model

import "time"

// Campaign statuses. Transitions are one-way: draft -> in_progress -> completed.
const (
	CampaignStatusDraft      = "draft"
	CampaignStatusInProgress = "in_progress"
	CampaignStatusCompleted  = "completed"
)

type Campaign struct {
	ID              int        `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Sender          string     `db:"sender" json:"sender"`
	Status          string     `db:"status" json:"status"`
	TotalRecipients int        `db:"total_recipients" json:"total_recipients"`
	SentCount       int        `db:"sent_count" json:"sent_count"`
	FailedCount     int        `db:"failed_count" json:"failed_count"`
	ScheduleTime    *time.Time `db:"schedule_time" json:"schedule_time,omitempty"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// CampaignSummary is a campaign row joined with its email counts,
// as returned by the campaign list endpoint.
type CampaignSummary struct {
	Campaign
	TotalEmails  int `db:"total_emails" json:"total_emails"`
	OpenedEmails int `db:"opened_emails" json:"opened_emails"`
}
