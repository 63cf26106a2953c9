// internal/service/email_service.go
package service

import (
	"context"
	"fmt"
	"html"
	"time"

	log "github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/mailtrail-backend/internal/errors"
	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/repository"
	"github.com/unclebandit/mailtrail-backend/internal/transport"
)

// EmailService handles single transactional sends and fronts the dispatcher
// for bulk ones: it resolves credentials and templates, then hands off.
type EmailService struct {
	CredentialRepo repository.CredentialRepositoryInterface
	TemplateRepo   repository.TemplateRepositoryInterface
	EmailRepo      repository.EmailRepositoryInterface
	Tracking       *TrackingService
	Dispatcher     *Dispatcher

	SendTimeout time.Duration

	// NewTransport builds the transport for a resolved credential. A seam
	// so tests can substitute a fake for the SMTP client.
	NewTransport func(cred *model.Credential) transport.Transport
}

type SendRequest struct {
	UserID         string                 `json:"-"`
	To             []string               `json:"to"`
	CC             []string               `json:"cc,omitempty"`
	BCC            []string               `json:"bcc,omitempty"`
	Subject        string                 `json:"subject"`
	Text           string                 `json:"text,omitempty"`
	HTML           string                 `json:"html,omitempty"`
	Attachments    []transport.Attachment `json:"attachments,omitempty"`
	EnableTracking bool                   `json:"enable_tracking,omitempty"`
	TemplateID     *int                   `json:"template_id,omitempty"`
	CredentialID   *int                   `json:"credential_id,omitempty"`
}

type SendResponse struct {
	MessageID  string `json:"message_id"`
	TrackingID string `json:"tracking_id,omitempty"`
	Envelope   string `json:"envelope"`
	Response   string `json:"response"`
}

type BulkRequest struct {
	UserID         string            `json:"-"`
	Recipients     []model.Recipient `json:"recipients"`
	Subject        string            `json:"subject"`
	Text           string            `json:"text,omitempty"`
	HTML           string            `json:"html,omitempty"`
	EnableTracking bool              `json:"enable_tracking,omitempty"`
	TemplateID     *int              `json:"template_id,omitempty"`
	CredentialID   *int              `json:"credential_id,omitempty"`
	CampaignName   string            `json:"campaign_name,omitempty"`
	ScheduleTime   *time.Time        `json:"schedule_time,omitempty"`
}

// Send validates, resolves, delivers and records a single message.
// Validation and credential resolution fail before any side effect; a
// bookkeeping failure after a successful delivery is logged, not surfaced.
func (s *EmailService) Send(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	if len(req.To) == 0 {
		return nil, appErrors.NewValidation("to")
	}

	subject, text, htmlBody := req.Subject, req.Text, req.HTML
	if req.TemplateID != nil {
		tmpl, err := s.TemplateRepo.GetByID(*req.TemplateID)
		if err != nil {
			return nil, err
		}
		if subject == "" {
			subject = tmpl.Subject
		}
		if text == "" {
			text = tmpl.TextContent
		}
		if htmlBody == "" {
			htmlBody = tmpl.HTMLContent
		}
	}
	if subject == "" {
		return nil, appErrors.NewValidation("subject")
	}
	if text == "" && htmlBody == "" {
		return nil, appErrors.NewValidation("text or html")
	}

	cred, err := s.CredentialRepo.Resolve(req.CredentialID, req.UserID)
	if err != nil {
		return nil, err
	}

	var trackingID string
	if req.EnableTracking {
		if htmlBody == "" {
			htmlBody = fmt.Sprintf("<html><body><p>%s</p></body></html>", html.EscapeString(text))
		}
		token, _ := s.Tracking.Mint()
		trackingID = token
		htmlBody += s.Tracking.PixelMarkup(token)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.SendTimeout)
	defer cancel()

	tr := s.NewTransport(cred)
	res, err := tr.Send(sendCtx, &transport.Message{
		From:        cred.Email,
		To:          req.To,
		CC:          req.CC,
		BCC:         req.BCC,
		Subject:     subject,
		Text:        text,
		HTML:        htmlBody,
		Attachments: req.Attachments,
	})
	if err != nil {
		return nil, appErrors.NewTransport(req.To[0], err)
	}

	now := time.Now()
	rec := &model.EmailRecord{
		MessageID:   res.MessageID,
		Sender:      cred.Email,
		Recipient:   req.To[0],
		Subject:     subject,
		Status:      model.EmailStatusDelivered,
		TemplateID:  req.TemplateID,
		SentAt:      now,
		DeliveredAt: &now,
	}
	if trackingID != "" {
		rec.TrackingID = &trackingID
	}
	if err := s.EmailRepo.Insert(rec); err != nil {
		log.WithError(err).WithField("message_id", res.MessageID).Error("failed to persist email record, open tracking lost for this message")
	}

	return &SendResponse{
		MessageID:  res.MessageID,
		TrackingID: trackingID,
		Envelope:   res.Envelope,
		Response:   res.Response,
	}, nil
}

// SendBulk resolves the request and runs the dispatcher immediately.
func (s *EmailService) SendBulk(ctx context.Context, req *BulkRequest) (*BatchResult, error) {
	opts, cred, err := s.resolveBulk(req)
	if err != nil {
		return nil, err
	}
	return s.Dispatcher.Dispatch(ctx, s.NewTransport(cred), req.Recipients, *opts)
}

// DispatchScheduled runs a previously created (scheduled) campaign. Called
// from the queue worker.
func (s *EmailService) DispatchScheduled(ctx context.Context, campaignID int, req *BulkRequest) (*BatchResult, error) {
	opts, cred, err := s.resolveBulk(req)
	if err != nil {
		return nil, err
	}
	opts.CampaignName = ""
	opts.CampaignID = &campaignID
	return s.Dispatcher.Dispatch(ctx, s.NewTransport(cred), req.Recipients, *opts)
}

// ValidateBulk runs the same checks a dispatch would, without sending
// anything. Scheduling uses it to reject a bad request before any campaign
// row is written or job enqueued.
func (s *EmailService) ValidateBulk(req *BulkRequest) error {
	_, _, err := s.resolveBulk(req)
	return err
}

func (s *EmailService) resolveBulk(req *BulkRequest) (*DispatchOptions, *model.Credential, error) {
	if len(req.Recipients) == 0 {
		return nil, nil, appErrors.NewValidation("recipients")
	}

	subject, text, htmlBody := req.Subject, req.Text, req.HTML
	if req.TemplateID != nil {
		tmpl, err := s.TemplateRepo.GetByID(*req.TemplateID)
		if err != nil {
			return nil, nil, err
		}
		if subject == "" {
			subject = tmpl.Subject
		}
		if text == "" {
			text = tmpl.TextContent
		}
		if htmlBody == "" {
			htmlBody = tmpl.HTMLContent
		}
	}
	if subject == "" {
		return nil, nil, appErrors.NewValidation("subject")
	}
	if text == "" && htmlBody == "" {
		return nil, nil, appErrors.NewValidation("text or html")
	}

	cred, err := s.CredentialRepo.Resolve(req.CredentialID, req.UserID)
	if err != nil {
		return nil, nil, err
	}

	return &DispatchOptions{
		Sender:         cred.Email,
		Subject:        subject,
		Text:           text,
		HTML:           htmlBody,
		TemplateID:     req.TemplateID,
		EnableTracking: req.EnableTracking,
		CampaignName:   req.CampaignName,
	}, cred, nil
}
