package queue

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/mailtrail-backend/internal/service"
)

// StartDispatchSubscriber wires scheduled campaign jobs from the queue into
// the email service. Each job dispatches one full recipient batch.
func StartDispatchSubscriber(ctx context.Context, q Queue, emails *service.EmailService) error {
	return q.Subscribe(CampaignDispatchQueue, func(payload []byte) error {
		job, err := UnmarshalDispatchJob(payload)
		if err != nil {
			log.WithError(err).Error("dropping malformed dispatch job")
			return nil // no retry, the payload will never parse
		}

		logCtx := log.WithField("campaign_id", job.CampaignID)
		logCtx.Info("processing scheduled campaign dispatch")

		// UserID is stripped from the request on the wire; restore it
		// from the job envelope so credential resolution works.
		job.Request.UserID = job.UserID

		result, err := emails.DispatchScheduled(ctx, job.CampaignID, &job.Request)
		if err != nil {
			logCtx.WithError(err).Error("scheduled dispatch failed")
			return err // triggers retry in queue
		}

		logCtx.WithFields(log.Fields{
			"sent":   len(result.Successful),
			"failed": len(result.Failed),
		}).Info("scheduled campaign dispatched")
		return nil
	})
}
