package repository

import (
	"database/sql"

	"github.com/unclebandit/mailtrail-backend/internal/model"
)

type EmailRepositoryInterface interface {
	Insert(rec *model.EmailRecord) error
	GetByTrackingID(trackingID string) (*model.EmailRecord, error)
	MarkOpened(trackingID string) (bool, error)
	CountByStatus(campaignID int) (map[string]int, error)
}

type EmailRepository struct {
	DB *sql.DB
}

// Insert persists a delivered message. tracking_id stays NULL when tracking
// was disabled for the send.
func (r *EmailRepository) Insert(rec *model.EmailRecord) error {
	query := `
        INSERT INTO emails (message_id, tracking_id, sender, recipient, subject, status,
                            template_id, campaign_id, sent_at, delivered_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		rec.MessageID, rec.TrackingID, rec.Sender, rec.Recipient, rec.Subject,
		rec.Status, rec.TemplateID, rec.CampaignID, rec.SentAt, rec.DeliveredAt,
	).Scan(&rec.ID)
}

func (r *EmailRepository) GetByTrackingID(trackingID string) (*model.EmailRecord, error) {
	query := `
        SELECT id, message_id, tracking_id, sender, recipient, subject, status,
               template_id, campaign_id, sent_at, delivered_at, opened_at
        FROM emails
        WHERE tracking_id=$1
    `
	var rec model.EmailRecord
	err := r.DB.QueryRow(query, trackingID).Scan(
		&rec.ID, &rec.MessageID, &rec.TrackingID, &rec.Sender, &rec.Recipient,
		&rec.Subject, &rec.Status, &rec.TemplateID, &rec.CampaignID,
		&rec.SentAt, &rec.DeliveredAt, &rec.OpenedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// MarkOpened is a compare-and-set: the row transitions delivered -> opened
// at most once, no matter how many pixel fetches race. Returns whether this
// call won the transition.
func (r *EmailRepository) MarkOpened(trackingID string) (bool, error) {
	query := `
        UPDATE emails
        SET status=$1, opened_at=NOW()
        WHERE tracking_id=$2 AND status=$3
    `
	res, err := r.DB.Exec(query, model.EmailStatusOpened, trackingID, model.EmailStatusDelivered)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *EmailRepository) CountByStatus(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM emails WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{
		model.EmailStatusDelivered: 0,
		model.EmailStatusOpened:    0,
		model.EmailStatusFailed:    0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

var _ EmailRepositoryInterface = (*EmailRepository)(nil)
