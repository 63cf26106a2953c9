package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/service"
)

func newTestDispatcher(campaignRepo *fakeCampaignRepo, emailRepo *fakeEmailRepo) *service.Dispatcher {
	tracking := &service.TrackingService{
		EmailRepo: emailRepo,
		EventRepo: &fakeEventRepo{},
		BaseURL:   "http://localhost:8080",
	}
	return service.NewDispatcher(campaignRepo, emailRepo, tracking, 5, time.Second, 0)
}

func batchRecipients(addresses ...string) []model.Recipient {
	recipients := make([]model.Recipient, len(addresses))
	for i, addr := range addresses {
		recipients[i] = model.Recipient{"email": addr, "name": "r" + addr}
	}
	return recipients
}

func TestDispatchAllSucceed(t *testing.T) {
	campaignRepo := newFakeCampaignRepo()
	emailRepo := newFakeEmailRepo()
	d := newTestDispatcher(campaignRepo, emailRepo)
	tr := newFakeTransport()

	recipients := batchRecipients("a@test", "b@test", "c@test")
	result, err := d.Dispatch(context.Background(), tr, recipients, service.DispatchOptions{
		Sender:  "sender@test",
		Subject: "hi {{name}}",
		Text:    "hello",
	})
	require.NoError(t, err)

	assert.Len(t, result.Successful, 3)
	assert.Empty(t, result.Failed)
	assert.Len(t, emailRepo.inserted, 3)
	for _, rec := range emailRepo.inserted {
		assert.Equal(t, model.EmailStatusDelivered, rec.Status)
		assert.NotNil(t, rec.DeliveredAt)
	}
}

func TestDispatchIsolatesPerRecipientFailure(t *testing.T) {
	campaignRepo := newFakeCampaignRepo()
	emailRepo := newFakeEmailRepo()
	d := newTestDispatcher(campaignRepo, emailRepo)
	tr := newFakeTransport("b@test")

	recipients := batchRecipients("a@test", "b@test", "c@test")
	result, err := d.Dispatch(context.Background(), tr, recipients, service.DispatchOptions{
		Sender:       "sender@test",
		Subject:      "hi",
		Text:         "hello",
		CampaignName: "launch",
	})
	require.NoError(t, err)

	assert.Len(t, result.Successful, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "b@test", result.Failed[0].Recipient)
	assert.NotEmpty(t, result.Failed[0].Error)

	// No emails row for the failure, only the campaign aggregate.
	assert.Len(t, emailRepo.inserted, 2)

	require.NotNil(t, result.CampaignID)
	campaign, err := campaignRepo.GetByID(*result.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, campaign.Status)
	assert.Equal(t, 2, campaign.SentCount)
	assert.Equal(t, 1, campaign.FailedCount)
	assert.Equal(t, 3, campaign.TotalRecipients)
	assert.NotNil(t, campaign.CompletedAt)
}

func TestDispatchEveryRecipientAccountedForOnce(t *testing.T) {
	campaignRepo := newFakeCampaignRepo()
	emailRepo := newFakeEmailRepo()
	d := newTestDispatcher(campaignRepo, emailRepo)
	tr := newFakeTransport("2@test", "5@test")

	recipients := batchRecipients("1@test", "2@test", "3@test", "4@test", "5@test", "6@test", "7@test")
	result, err := d.Dispatch(context.Background(), tr, recipients, service.DispatchOptions{
		Sender:  "sender@test",
		Subject: "hi",
		Text:    "hello",
	})
	require.NoError(t, err)

	assert.Equal(t, len(recipients), len(result.Successful)+len(result.Failed))

	seen := map[string]int{}
	for _, s := range result.Successful {
		seen[s.Recipient]++
	}
	for _, f := range result.Failed {
		seen[f.Recipient]++
	}
	for addr, n := range seen {
		assert.Equal(t, 1, n, "recipient %s appears %d times", addr, n)
	}
}

func TestDispatchTrackingEmbedsPixel(t *testing.T) {
	campaignRepo := newFakeCampaignRepo()
	emailRepo := newFakeEmailRepo()
	d := newTestDispatcher(campaignRepo, emailRepo)
	tr := newFakeTransport()

	result, err := d.Dispatch(context.Background(), tr, batchRecipients("a@test"), service.DispatchOptions{
		Sender:         "sender@test",
		Subject:        "hi",
		Text:           "text only body",
		EnableTracking: true,
	})
	require.NoError(t, err)
	require.Len(t, result.Successful, 1)
	assert.NotEmpty(t, result.Successful[0].TrackingID)

	// HTML was synthesized from the text part so the pixel has a home.
	require.Len(t, tr.sent, 1)
	html := tr.sent[0].HTML
	assert.Contains(t, html, "text only body")
	assert.Contains(t, html, "/email/track/"+result.Successful[0].TrackingID)

	require.Len(t, emailRepo.inserted, 1)
	require.NotNil(t, emailRepo.inserted[0].TrackingID)
	assert.Equal(t, result.Successful[0].TrackingID, *emailRepo.inserted[0].TrackingID)
}

func TestDispatchRendersPerRecipient(t *testing.T) {
	campaignRepo := newFakeCampaignRepo()
	emailRepo := newFakeEmailRepo()
	d := newTestDispatcher(campaignRepo, emailRepo)
	tr := newFakeTransport()

	recipients := []model.Recipient{
		{"email": "ann@test", "name": "Ann"},
		{"email": "bob@test", "name": "Bob"},
	}
	_, err := d.Dispatch(context.Background(), tr, recipients, service.DispatchOptions{
		Sender:  "sender@test",
		Subject: "Hello {{name}}",
		Text:    "Hi {{name}}, and {{missing}} stays",
	})
	require.NoError(t, err)

	require.Len(t, tr.sent, 2)
	subjects := []string{tr.sent[0].Subject, tr.sent[1].Subject}
	assert.ElementsMatch(t, []string{"Hello Ann", "Hello Bob"}, subjects)
	for _, msg := range tr.sent {
		assert.True(t, strings.Contains(msg.Text, "{{missing}} stays"))
	}
}

func TestDispatchPersistenceFailureIsSwallowed(t *testing.T) {
	campaignRepo := newFakeCampaignRepo()
	emailRepo := newFakeEmailRepo()
	emailRepo.insertErr = assert.AnError
	d := newTestDispatcher(campaignRepo, emailRepo)
	tr := newFakeTransport()

	result, err := d.Dispatch(context.Background(), tr, batchRecipients("a@test"), service.DispatchOptions{
		Sender:  "sender@test",
		Subject: "hi",
		Text:    "hello",
	})
	require.NoError(t, err)

	// Delivery succeeded; the bookkeeping failure must not demote it.
	assert.Len(t, result.Successful, 1)
	assert.Empty(t, result.Failed)
}

func TestDispatchCancellationLeavesCampaignInProgress(t *testing.T) {
	campaignRepo := newFakeCampaignRepo()
	emailRepo := newFakeEmailRepo()
	d := newTestDispatcher(campaignRepo, emailRepo)
	tr := newFakeTransport()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before any recipient starts

	result, err := d.Dispatch(ctx, tr, batchRecipients("a@test", "b@test"), service.DispatchOptions{
		Sender:       "sender@test",
		Subject:      "hi",
		Text:         "hello",
		CampaignName: "cancelled run",
	})
	require.NoError(t, err)
	require.NotNil(t, result.CampaignID)

	campaign, err := campaignRepo.GetByID(*result.CampaignID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusInProgress, campaign.Status)
	assert.Nil(t, campaign.CompletedAt)
	assert.Empty(t, result.Successful)
}

func TestDispatchScheduledCampaignStartsAndCompletes(t *testing.T) {
	campaignRepo := newFakeCampaignRepo()
	emailRepo := newFakeEmailRepo()
	d := newTestDispatcher(campaignRepo, emailRepo)
	tr := newFakeTransport()

	draft := &model.Campaign{
		Name:            "scheduled",
		Sender:          "sender@test",
		Status:          model.CampaignStatusDraft,
		TotalRecipients: 2,
	}
	require.NoError(t, campaignRepo.Create(draft))

	result, err := d.Dispatch(context.Background(), tr, batchRecipients("a@test", "b@test"), service.DispatchOptions{
		Sender:     "sender@test",
		Subject:    "hi",
		Text:       "hello",
		CampaignID: &draft.ID,
	})
	require.NoError(t, err)
	assert.Len(t, result.Successful, 2)

	campaign, err := campaignRepo.GetByID(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusCompleted, campaign.Status)
	assert.Equal(t, 2, campaign.SentCount)
	assert.NotNil(t, campaign.StartedAt)
}
