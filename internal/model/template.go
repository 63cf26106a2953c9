// internal/model/template.go
package model

import "time"

type Template struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Subject     string    `db:"subject" json:"subject"`
	HTMLContent string    `db:"html_content" json:"html_content,omitempty"`
	TextContent string    `db:"text_content" json:"text_content,omitempty"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	IsPublic    bool      `db:"is_public" json:"is_public"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
