// internal/service/tracking.go
package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/repository"
)

// TrackingPixel is the 1x1 transparent GIF served for every pixel fetch,
// valid token or not.
var TrackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// TrackingService mints per-message tracking tokens and consumes the pixel
// fetches they generate.
type TrackingService struct {
	EmailRepo repository.EmailRepositoryInterface
	EventRepo repository.EventRepositoryInterface

	// BaseURL is the public address the pixel URL points back to.
	BaseURL string
}

// Mint produces a globally unique opaque token and the pixel URL embedding
// it. It has no side effect beyond uniqueness; the caller stores the token
// alongside the email record.
func (s *TrackingService) Mint() (token, pixelURL string) {
	token = strings.ReplaceAll(uuid.NewString(), "-", "")
	pixelURL = fmt.Sprintf("%s/email/track/%s", s.BaseURL, token)
	return token, pixelURL
}

// PixelMarkup returns the invisible image tag embedded in outgoing HTML.
func (s *TrackingService) PixelMarkup(token string) string {
	return fmt.Sprintf(
		`<img src="%s/email/track/%s" width="1" height="1" style="display:none" alt="">`,
		s.BaseURL, token,
	)
}

// RecordOpen handles one pixel fetch. It never reports failure to the
// caller: an unknown token is logged and dropped so the HTTP response leaks
// nothing about which tokens exist. For a known token it always appends an
// open event and at most once transitions the record delivered -> opened.
func (s *TrackingService) RecordOpen(token, ip, userAgent string) {
	rec, err := s.EmailRepo.GetByTrackingID(token)
	if err != nil {
		log.WithError(err).WithField("tracking_id", token).Error("failed to look up tracking token")
		return
	}
	if rec == nil {
		log.WithField("tracking_id", token).Debug("open for unknown tracking token, ignoring")
		return
	}

	event := &model.EmailEvent{
		TrackingID: token,
		EventType:  model.EventTypeOpen,
		IP:         ip,
		UserAgent:  userAgent,
	}
	if err := s.EventRepo.Append(event); err != nil {
		log.WithError(err).WithField("tracking_id", token).Error("failed to append open event")
	}

	transitioned, err := s.EmailRepo.MarkOpened(token)
	if err != nil {
		log.WithError(err).WithField("tracking_id", token).Error("failed to mark email opened")
		return
	}
	if transitioned {
		log.WithFields(log.Fields{
			"tracking_id": token,
			"recipient":   rec.Recipient,
		}).Info("email opened")
	}
}
