// internal/transport/transport.go
package transport

import "context"

// Message is one outgoing email.
type Message struct {
	From        string
	To          []string
	CC          []string
	BCC         []string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Result is what the provider reports for an accepted message.
type Result struct {
	MessageID string `json:"message_id"`
	Envelope  string `json:"envelope"`
	Response  string `json:"response"`
}

// Transport delivers a single message. Implementations must honour ctx so a
// stuck provider times out one recipient instead of stalling a whole batch.
type Transport interface {
	Send(ctx context.Context, msg *Message) (*Result, error)
}
