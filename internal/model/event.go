// internal/model/event.go
package model

import "time"

// Event types recorded against a tracking token.
const (
	EventTypeOpen  = "open"
	EventTypeClick = "click"
)

// EmailEvent is one append-only log entry in email_events. A single
// tracking token may accumulate many events (repeated opens are not
// deduplicated).
type EmailEvent struct {
	ID         int       `db:"id" json:"id"`
	TrackingID string    `db:"tracking_id" json:"tracking_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	IP         string    `db:"ip" json:"ip"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// OpensByDate is one bucket of the open-rate-over-time series.
type OpensByDate struct {
	Date  string `db:"date" json:"date"`
	Opens int    `db:"opens" json:"opens"`
}
