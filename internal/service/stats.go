// internal/service/stats.go
package service

import (
	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/repository"
)

// CampaignStats is the read model for one campaign: the row itself, email
// counts grouped by status, and opens bucketed by calendar date.
type CampaignStats struct {
	Campaign         *model.Campaign     `json:"campaign"`
	Counts           map[string]int      `json:"counts"`
	OpenRateOverTime []model.OpensByDate `json:"open_rate_over_time"`
}

// StatsService computes campaign statistics from persisted records and
// events. Reads only; repeated calls with no new events return identical
// results.
type StatsService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	EmailRepo    repository.EmailRepositoryInterface
	EventRepo    repository.EventRepositoryInterface
}

func (s *StatsService) Stats(campaignID int) (*CampaignStats, error) {
	campaign, err := s.CampaignRepo.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	counts, err := s.EmailRepo.CountByStatus(campaignID)
	if err != nil {
		return nil, err
	}

	series, err := s.EventRepo.OpensByDate(campaignID)
	if err != nil {
		return nil, err
	}

	return &CampaignStats{
		Campaign:         campaign,
		Counts:           counts,
		OpenRateOverTime: series,
	}, nil
}

// ListCampaigns returns a sender's campaigns with their computed email
// totals.
func (s *StatsService) ListCampaigns(sender string) ([]model.CampaignSummary, error) {
	return s.CampaignRepo.ListBySender(sender)
}
