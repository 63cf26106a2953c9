package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	appErrors "github.com/unclebandit/mailtrail-backend/internal/errors"
	"github.com/unclebandit/mailtrail-backend/internal/model"
	"github.com/unclebandit/mailtrail-backend/internal/transport"
)

// --- Fake repositories ---

type fakeEmailRepo struct {
	mu        sync.Mutex
	records   map[string]*model.EmailRecord // keyed by tracking id
	inserted  []*model.EmailRecord
	insertErr error
	counts    map[string]int
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{records: map[string]*model.EmailRecord{}}
}

func (f *fakeEmailRepo) Insert(rec *model.EmailRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	rec.ID = len(f.inserted) + 1
	f.inserted = append(f.inserted, rec)
	if rec.TrackingID != nil {
		f.records[*rec.TrackingID] = rec
	}
	return nil
}

func (f *fakeEmailRepo) GetByTrackingID(trackingID string) (*model.EmailRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[trackingID], nil
}

func (f *fakeEmailRepo) MarkOpened(trackingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[trackingID]
	if !ok || rec.Status != model.EmailStatusDelivered {
		return false, nil
	}
	now := time.Now()
	rec.Status = model.EmailStatusOpened
	rec.OpenedAt = &now
	return true, nil
}

func (f *fakeEmailRepo) CountByStatus(campaignID int) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{
		model.EmailStatusDelivered: 0,
		model.EmailStatusOpened:    0,
		model.EmailStatusFailed:    0,
	}
	for k, v := range f.counts {
		counts[k] = v
	}
	return counts, nil
}

type fakeEventRepo struct {
	mu        sync.Mutex
	events    []model.EmailEvent
	appendErr error
	series    []model.OpensByDate
}

func (f *fakeEventRepo) Append(ev *model.EmailEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	ev.ID = len(f.events) + 1
	f.events = append(f.events, *ev)
	return nil
}

func (f *fakeEventRepo) OpensByDate(campaignID int) ([]model.OpensByDate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.series, nil
}

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[int]*model.Campaign
	nextID    int
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[int]*model.Campaign{}, nextID: 1}
}

func (f *fakeCampaignRepo) Create(c *model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID
	f.nextID++
	if c.Status == "" {
		c.Status = model.CampaignStatusDraft
	}
	clone := *c
	f.campaigns[c.ID] = &clone
	return nil
}

func (f *fakeCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	clone := *c
	return &clone, nil
}

func (f *fakeCampaignRepo) Start(campaignID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.campaigns[campaignID]; ok && c.Status == model.CampaignStatusDraft {
		now := time.Now()
		c.Status = model.CampaignStatusInProgress
		c.StartedAt = &now
	}
	return nil
}

func (f *fakeCampaignRepo) Complete(campaignID, sentCount, failedCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.campaigns[campaignID]; ok && c.Status == model.CampaignStatusInProgress {
		now := time.Now()
		c.Status = model.CampaignStatusCompleted
		c.SentCount = sentCount
		c.FailedCount = failedCount
		c.CompletedAt = &now
	}
	return nil
}

func (f *fakeCampaignRepo) UpdateCounts(campaignID, sentCount, failedCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.campaigns[campaignID]; ok {
		c.SentCount = sentCount
		c.FailedCount = failedCount
	}
	return nil
}

func (f *fakeCampaignRepo) ListBySender(sender string) ([]model.CampaignSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.CampaignSummary{}
	for _, c := range f.campaigns {
		if c.Sender == sender {
			out = append(out, model.CampaignSummary{Campaign: *c})
		}
	}
	return out, nil
}

type fakeTemplateRepo struct {
	templates map[int]*model.Template
}

func (f *fakeTemplateRepo) Create(t *model.Template) error { return nil }
func (f *fakeTemplateRepo) GetByID(id int) (*model.Template, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, appErrors.NewTemplateNotFound(id)
	}
	return t, nil
}
func (f *fakeTemplateRepo) ListByOwner(ownerID string) ([]model.Template, error) { return nil, nil }
func (f *fakeTemplateRepo) Update(t *model.Template) error                       { return nil }
func (f *fakeTemplateRepo) Delete(id int) error                                  { return nil }

type fakeCredentialRepo struct {
	cred *model.Credential
}

func (f *fakeCredentialRepo) Create(c *model.Credential) error                 { return nil }
func (f *fakeCredentialRepo) ListByUser(userID string) ([]model.Credential, error) { return nil, nil }
func (f *fakeCredentialRepo) Delete(id int) error                              { return nil }
func (f *fakeCredentialRepo) Resolve(credentialID *int, userID string) (*model.Credential, error) {
	if f.cred == nil {
		return nil, appErrors.NewCredentialNotFound(userID)
	}
	return f.cred, nil
}

// --- Fake transport ---

type fakeTransport struct {
	mu      sync.Mutex
	failFor map[string]bool
	sent    []*transport.Message
	nextID  int
}

func newFakeTransport(failFor ...string) *fakeTransport {
	fail := map[string]bool{}
	for _, addr := range failFor {
		fail[addr] = true
	}
	return &fakeTransport{failFor: fail}
}

func (f *fakeTransport) Send(ctx context.Context, msg *transport.Message) (*transport.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(msg.To) > 0 && f.failFor[msg.To[0]] {
		return nil, fmt.Errorf("smtp: connection refused")
	}
	f.nextID++
	f.sent = append(f.sent, msg)
	return &transport.Result{
		MessageID: fmt.Sprintf("<msg-%d@test>", f.nextID),
		Envelope:  "from=test",
		Response:  "250 OK",
	}, nil
}
