// internal/transport/smtp.go
package transport

import (
	"context"
	"fmt"
	"net/smtp"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"github.com/jordan-wright/email"

	"github.com/unclebandit/mailtrail-backend/internal/model"
)

// SMTPTransport sends through a user's SMTP credentials.
type SMTPTransport struct {
	cred *model.Credential
}

func NewSMTPTransport(cred *model.Credential) *SMTPTransport {
	return &SMTPTransport{cred: cred}
}

func (t *SMTPTransport) Send(ctx context.Context, msg *Message) (*Result, error) {
	addr := fmt.Sprintf("%s:%d", t.cred.Host, t.cred.Port)
	auth := smtp.PlainAuth("", t.cred.Username, t.cred.Password, t.cred.Host)

	e := email.NewEmail()
	e.From = msg.From
	if e.From == "" {
		e.From = t.cred.Email
	}
	e.To = msg.To
	e.Cc = msg.CC
	e.Bcc = msg.BCC
	e.Subject = msg.Subject
	if msg.Text != "" {
		e.Text = []byte(msg.Text)
	}
	if msg.HTML != "" {
		e.HTML = []byte(msg.HTML)
	}
	for _, a := range msg.Attachments {
		if _, err := e.Attach(strings.NewReader(string(a.Content)), a.Filename, a.ContentType); err != nil {
			return nil, err
		}
	}

	// SMTP does not hand back an id, so mint one up front and pin it in the
	// headers; the stored record and the wire message then agree.
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.cred.Host)
	e.Headers = textproto.MIMEHeader{}
	e.Headers.Set("Message-Id", messageID)

	// jordan-wright/email has no context support, so run the blocking send in
	// a goroutine and let ctx bound how long we wait for it.
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Send(addr, auth)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	}

	return &Result{
		MessageID: messageID,
		Envelope:  fmt.Sprintf("from=%s to=%s", e.From, strings.Join(e.To, ",")),
		Response:  "250 OK",
	}, nil
}

var _ Transport = (*SMTPTransport)(nil)
