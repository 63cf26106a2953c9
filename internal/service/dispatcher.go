// internal/service/dispatcher.go
package service

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/repository"
	"github.com/unclebandit/mailtrail-backend/internal/transport"
)

// DispatchOptions carries the template and campaign settings for one batch.
type DispatchOptions struct {
	Sender         string
	Subject        string
	Text           string
	HTML           string
	TemplateID     *int
	EnableTracking bool

	// CampaignName, when set, creates a fresh campaign for the batch.
	// CampaignID, when set, dispatches into an already-created (scheduled)
	// campaign instead. At most one of the two is used.
	CampaignName string
	CampaignID   *int
}

type SentEmail struct {
	Recipient  string `json:"recipient"`
	MessageID  string `json:"message_id"`
	TrackingID string `json:"tracking_id,omitempty"`
}

type FailedEmail struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
}

// BatchResult reports every recipient attempt of a dispatch. Partial
// failures are data here, not errors.
type BatchResult struct {
	Successful []SentEmail   `json:"successful_recipients"`
	Failed     []FailedEmail `json:"failed_recipients"`
	CampaignID *int          `json:"campaign_id,omitempty"`
}

// Dispatcher drives a recipient batch through render -> send -> record.
// Each recipient is an isolated unit of work: one transport failure never
// aborts or skips the rest of the batch.
type Dispatcher struct {
	CampaignRepo repository.CampaignRepositoryInterface
	EmailRepo    repository.EmailRepositoryInterface
	Tracking     *TrackingService

	// Workers bounds in-flight sends; Limiter is the global outbound
	// ceiling shared across them.
	Workers     int
	SendTimeout time.Duration
	Limiter     *rate.Limiter
}

func NewDispatcher(
	campaignRepo repository.CampaignRepositoryInterface,
	emailRepo repository.EmailRepositoryInterface,
	tracking *TrackingService,
	workers int,
	sendTimeout time.Duration,
	outboundRate float64,
) *Dispatcher {
	if workers < 1 {
		workers = 5
	}
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if outboundRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(outboundRate), workers)
	}
	return &Dispatcher{
		CampaignRepo: campaignRepo,
		EmailRepo:    emailRepo,
		Tracking:     tracking,
		Workers:      workers,
		SendTimeout:  sendTimeout,
		Limiter:      limiter,
	}
}

// Dispatch sends the batch through tr and returns the per-recipient
// outcomes. When a campaign is involved, the terminal aggregate update is
// written exactly once, after every recipient attempt has finished.
//
// Failed sends produce no emails row, only an entry in the failed list and
// the campaign failed_count. There is no retry path, so the persisted
// "failed" status count stays at zero; failures live in the campaign
// aggregates instead.
func (d *Dispatcher) Dispatch(ctx context.Context, tr transport.Transport, recipients []model.Recipient, opts DispatchOptions) (*BatchResult, error) {
	result := &BatchResult{
		Successful: []SentEmail{},
		Failed:     []FailedEmail{},
	}

	campaignID := opts.CampaignID
	if campaignID == nil && opts.CampaignName != "" {
		now := time.Now()
		campaign := &model.Campaign{
			Name:            opts.CampaignName,
			Sender:          opts.Sender,
			Status:          model.CampaignStatusInProgress,
			TotalRecipients: len(recipients),
			StartedAt:       &now,
		}
		if err := d.CampaignRepo.Create(campaign); err != nil {
			return nil, err
		}
		campaignID = &campaign.ID
	} else if campaignID != nil {
		if err := d.CampaignRepo.Start(*campaignID); err != nil {
			return nil, err
		}
	}
	result.CampaignID = campaignID

	var mu sync.Mutex
	g := &errgroup.Group{}
	g.SetLimit(d.Workers)

	for _, recipient := range recipients {
		// Cooperative cancellation point: recipients not yet started are
		// skipped, already-sent ones stay recorded.
		if ctx.Err() != nil {
			break
		}

		recipient := recipient
		g.Go(func() error {
			sent, failed := d.sendOne(ctx, tr, recipient, campaignID, opts)
			mu.Lock()
			if failed != nil {
				result.Failed = append(result.Failed, *failed)
			} else {
				result.Successful = append(result.Successful, *sent)
			}
			mu.Unlock()
			return nil
		})
	}

	// Barrier: the campaign aggregate below must not be written while any
	// send is still in flight.
	_ = g.Wait()

	if campaignID != nil {
		if ctx.Err() != nil {
			// Cancelled mid-batch: keep the campaign in_progress with the
			// partial counts rather than marking it completed.
			if err := d.CampaignRepo.UpdateCounts(*campaignID, len(result.Successful), len(result.Failed)); err != nil {
				log.WithError(err).WithField("campaign_id", *campaignID).Error("failed to persist partial campaign counts")
			}
			return result, nil
		}
		if err := d.CampaignRepo.Complete(*campaignID, len(result.Successful), len(result.Failed)); err != nil {
			log.WithError(err).WithField("campaign_id", *campaignID).Error("failed to complete campaign")
		}
	}

	return result, nil
}

func (d *Dispatcher) sendOne(ctx context.Context, tr transport.Transport, recipient model.Recipient, campaignID *int, opts DispatchOptions) (*SentEmail, *FailedEmail) {
	address := recipient.Email()
	if address == "" {
		return nil, &FailedEmail{Recipient: address, Error: "recipient has no email"}
	}

	if err := d.Limiter.Wait(ctx); err != nil {
		return nil, &FailedEmail{Recipient: address, Error: err.Error()}
	}

	subject := RenderTemplate(opts.Subject, recipient)
	text := RenderTemplate(opts.Text, recipient)
	htmlBody := RenderTemplate(opts.HTML, recipient)

	var trackingID string
	if opts.EnableTracking {
		// The pixel needs an HTML body to live in; synthesize one from the
		// text part when the message has none.
		if htmlBody == "" {
			htmlBody = fmt.Sprintf("<html><body><p>%s</p></body></html>", html.EscapeString(text))
		}
		token, _ := d.Tracking.Mint()
		trackingID = token
		htmlBody += d.Tracking.PixelMarkup(token)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.SendTimeout)
	defer cancel()

	res, err := tr.Send(sendCtx, &transport.Message{
		From:    opts.Sender,
		To:      []string{address},
		Subject: subject,
		Text:    text,
		HTML:    htmlBody,
	})
	if err != nil {
		log.WithError(err).WithField("recipient", address).Warn("transport send failed")
		return nil, &FailedEmail{Recipient: address, Error: err.Error()}
	}

	d.recordDelivery(res, address, subject, trackingID, campaignID, opts)

	return &SentEmail{Recipient: address, MessageID: res.MessageID, TrackingID: trackingID}, nil
}

// recordDelivery is best-effort bookkeeping. Delivery already succeeded, so
// a persistence failure is logged on the error channel and swallowed; it
// must never turn a delivered message into a reported failure.
func (d *Dispatcher) recordDelivery(res *transport.Result, recipient, subject, trackingID string, campaignID *int, opts DispatchOptions) {
	now := time.Now()
	rec := &model.EmailRecord{
		MessageID:   res.MessageID,
		Sender:      opts.Sender,
		Recipient:   recipient,
		Subject:     subject,
		Status:      model.EmailStatusDelivered,
		TemplateID:  opts.TemplateID,
		CampaignID:  campaignID,
		SentAt:      now,
		DeliveredAt: &now,
	}
	if trackingID != "" {
		rec.TrackingID = &trackingID
	}
	if err := d.EmailRepo.Insert(rec); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"recipient":  recipient,
			"message_id": res.MessageID,
		}).Error("failed to persist email record, open tracking lost for this message")
	}
}
