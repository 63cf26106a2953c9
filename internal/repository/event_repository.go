package repository

import (
	"database/sql"
	"time"

	"github.com/unclebandit/mailtrail-backend/internal/model"
)

type EventRepositoryInterface interface {
	Append(ev *model.EmailEvent) error
	OpensByDate(campaignID int) ([]model.OpensByDate, error)
}

type EventRepository struct {
	DB *sql.DB
}

// Append writes one event row. email_events is append-only; rows are never
// updated or deleted.
func (r *EventRepository) Append(ev *model.EmailEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO email_events (tracking_id, event_type, ip, user_agent, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	return r.DB.QueryRow(query, ev.TrackingID, ev.EventType, ev.IP, ev.UserAgent, ev.CreatedAt).Scan(&ev.ID)
}

// OpensByDate buckets a campaign's open events by the calendar date the
// message was first opened, ascending.
func (r *EventRepository) OpensByDate(campaignID int) ([]model.OpensByDate, error) {
	query := `
        SELECT TO_CHAR(DATE(e.opened_at), 'YYYY-MM-DD') AS date, COUNT(ev.id) AS opens
        FROM emails e
        JOIN email_events ev ON ev.tracking_id = e.tracking_id
        WHERE e.campaign_id=$1 AND ev.event_type=$2 AND e.opened_at IS NOT NULL
        GROUP BY DATE(e.opened_at)
        ORDER BY DATE(e.opened_at) ASC
    `
	rows, err := r.DB.Query(query, campaignID, model.EventTypeOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := []model.OpensByDate{}
	for rows.Next() {
		var b model.OpensByDate
		if err := rows.Scan(&b.Date, &b.Opens); err != nil {
			return nil, err
		}
		series = append(series, b)
	}
	return series, rows.Err()
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
