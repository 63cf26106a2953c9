// internal/model/recipient.go
package model

// Recipient is one destination address plus its placeholder values.
// It lives only for the duration of a dispatch call and is never persisted.
type Recipient map[string]string

// Email returns the mandatory address field.
func (r Recipient) Email() string {
	return r["email"]
}
