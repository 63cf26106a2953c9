package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/unclebandit/mailtrail-backend/internal/service"
)

// CampaignDispatchQueue carries scheduled bulk sends from the API server to
// the dispatch worker.
const CampaignDispatchQueue = "campaign_dispatch"

// DispatchJob is the payload for one queued campaign dispatch. The campaign
// row already exists in draft status; the worker moves it through
// in_progress to completed.
type DispatchJob struct {
	CampaignID int                 `json:"campaign_id"`
	UserID     string              `json:"user_id"`
	Request    service.BulkRequest `json:"request"`
}

func (j *DispatchJob) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

func UnmarshalDispatchJob(body []byte) (*DispatchJob, error) {
	var job DispatchJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("invalid dispatch job payload: %w", err)
	}
	return &job, nil
}

// Queue interface
type Queue interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(payload []byte) error) error
}

// InMemoryQueue is an in-process queue with retry, used in tests and
// single-binary setups without a broker.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload []byte) error
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload []byte) error),
	}
}

type job struct {
	payload    []byte
	retryCount int
	maxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload []byte) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	j := job{payload: payload, maxRetries: 3}
	for _, handler := range handlers {
		go q.processJob(handler, j)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload []byte) error, j job) {
	for j.retryCount <= j.maxRetries {
		err := handler(j.payload)
		if err == nil {
			return // ACK
		}

		j.retryCount++
		log.WithError(err).WithFields(log.Fields{
			"attempt":     j.retryCount,
			"max_retries": j.maxRetries,
		}).Warn("job failed")

		if j.retryCount > j.maxRetries {
			log.WithField("attempts", j.maxRetries).Error("job permanently failed")
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(j.retryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
