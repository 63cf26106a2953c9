// internal/controller/email_controller.go
package controller

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/queue"
	"github.com/unclebandit/mailtrail-backend/internal/repository"
	"github.com/unclebandit/mailtrail-backend/internal/service"
)

type EmailController struct {
	EmailService *service.EmailService
	Tracking     *service.TrackingService
	Stats        *service.StatsService
	CampaignRepo repository.CampaignRepositoryInterface
	Queue        queue.Queue
}

// userID pulls the authenticated user set by the auth middleware upstream.
// Auth itself is outside this service.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (c *EmailController) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req service.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.UserID = userID(r)

	res, err := c.EmailService.Send(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *EmailController) SendBulk(w http.ResponseWriter, r *http.Request) {
	var req service.BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	req.UserID = userID(r)

	if req.ScheduleTime != nil {
		c.scheduleBulk(w, &req)
		return
	}

	result, err := c.EmailService.SendBulk(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_sent":            len(result.Successful),
		"total_failed":          len(result.Failed),
		"successful_recipients": result.Successful,
		"failed_recipients":     result.Failed,
		"campaign_id":           result.CampaignID,
	})
}

// scheduleBulk creates the campaign in draft and enqueues the dispatch for
// the worker instead of sending inline.
func (c *EmailController) scheduleBulk(w http.ResponseWriter, req *service.BulkRequest) {
	// Same checks as an immediate dispatch, before the campaign row exists.
	if err := c.EmailService.ValidateBulk(req); err != nil {
		writeError(w, err)
		return
	}

	name := req.CampaignName
	if name == "" {
		name = "scheduled campaign"
	}
	campaign := &model.Campaign{
		Name:            name,
		Sender:          req.UserID,
		Status:          model.CampaignStatusDraft,
		TotalRecipients: len(req.Recipients),
		ScheduleTime:    req.ScheduleTime,
	}
	if err := c.CampaignRepo.Create(campaign); err != nil {
		writeError(w, err)
		return
	}

	job := &queue.DispatchJob{CampaignID: campaign.ID, UserID: req.UserID, Request: *req}
	payload, err := job.Marshal()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := c.Queue.Publish(queue.CampaignDispatchQueue, payload); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"campaign_id":      campaign.ID,
		"status":           campaign.Status,
		"schedule_time":    campaign.ScheduleTime,
		"total_recipients": campaign.TotalRecipients,
	})
}

// TrackOpen serves the pixel. The response is the same fixed GIF whether or
// not the token is known, so the endpoint leaks nothing to probing.
func (c *EmailController) TrackOpen(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}

	c.Tracking.RecordOpen(trackingID, ip, r.UserAgent())

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(service.TrackingPixel); err != nil {
		log.WithError(err).Debug("failed to write tracking pixel")
	}
}

func (c *EmailController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	sender := r.URL.Query().Get("sender")
	if sender == "" {
		sender = userID(r)
	}

	campaigns, err := c.Stats.ListCampaigns(sender)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": campaigns})
}

func (c *EmailController) CampaignStats(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	stats, err := c.Stats.Stats(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
