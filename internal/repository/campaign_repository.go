package repository

import (
	"database/sql"
	"time"

	appErrors "github.com/unclebandit/mailtrail-backend/internal/errors"
	"github.com/unclebandit/mailtrail-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id int) (*model.Campaign, error)
	ListBySender(sender string) ([]model.CampaignSummary, error)

	// Dispatch lifecycle
	Start(campaignID int) error
	Complete(campaignID, sentCount, failedCount int) error
	UpdateCounts(campaignID, sentCount, failedCount int) error
}

type CampaignRepository struct {
	DB *sql.DB
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	query := `
        INSERT INTO email_campaigns (name, sender, status, total_recipients, schedule_time, started_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(query, c.Name, c.Sender, c.Status, c.TotalRecipients, c.ScheduleTime, c.StartedAt, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `
        SELECT id, name, sender, status, total_recipients, sent_count, failed_count,
               schedule_time, started_at, completed_at, created_at
        FROM email_campaigns WHERE id=$1
    `
	var c model.Campaign
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.Name, &c.Sender, &c.Status, &c.TotalRecipients, &c.SentCount,
		&c.FailedCount, &c.ScheduleTime, &c.StartedAt, &c.CompletedAt, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

// Start moves a draft campaign to in_progress. The status guard keeps the
// transition one-way: a completed campaign never regresses.
func (r *CampaignRepository) Start(campaignID int) error {
	query := `
        UPDATE email_campaigns
        SET status=$1, started_at=NOW()
        WHERE id=$2 AND status=$3
    `
	_, err := r.DB.Exec(query, model.CampaignStatusInProgress, campaignID, model.CampaignStatusDraft)
	return err
}

// Complete writes the terminal aggregate exactly once, after every recipient
// attempt in the batch has finished.
func (r *CampaignRepository) Complete(campaignID, sentCount, failedCount int) error {
	query := `
        UPDATE email_campaigns
        SET status=$1, sent_count=$2, failed_count=$3, completed_at=NOW()
        WHERE id=$4 AND status=$5
    `
	_, err := r.DB.Exec(query, model.CampaignStatusCompleted, sentCount, failedCount, campaignID, model.CampaignStatusInProgress)
	return err
}

// UpdateCounts persists partial progress without completing the campaign.
// Used when a dispatch is cancelled mid-batch.
func (r *CampaignRepository) UpdateCounts(campaignID, sentCount, failedCount int) error {
	query := `UPDATE email_campaigns SET sent_count=$1, failed_count=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, sentCount, failedCount, campaignID)
	return err
}

func (r *CampaignRepository) ListBySender(sender string) ([]model.CampaignSummary, error) {
	query := `
        SELECT c.id, c.name, c.sender, c.status, c.total_recipients, c.sent_count, c.failed_count,
               c.schedule_time, c.started_at, c.completed_at, c.created_at,
               COUNT(e.id) AS total_emails,
               COUNT(CASE WHEN e.status='opened' THEN 1 END) AS opened_emails
        FROM email_campaigns c
        LEFT JOIN emails e ON e.campaign_id = c.id
        WHERE c.sender=$1
        GROUP BY c.id
        ORDER BY c.id DESC
    `
	rows, err := r.DB.Query(query, sender)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []model.CampaignSummary{}
	for rows.Next() {
		var s model.CampaignSummary
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Sender, &s.Status, &s.TotalRecipients, &s.SentCount,
			&s.FailedCount, &s.ScheduleTime, &s.StartedAt, &s.CompletedAt, &s.CreatedAt,
			&s.TotalEmails, &s.OpenedEmails,
		); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, s)
	}
	return campaigns, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
