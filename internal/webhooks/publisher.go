package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cmdvrp/internal/store"
)

const (
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// Event is the JSON envelope posted to subscribers.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	TS   time.Time `json:"ts"`
	Data any       `json:"data"`
}

type Publisher struct {
	Store store.Store
	Log   logrus.FieldLogger
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s, Log: logrus.StandardLogger()}
}

// Emit enqueues one delivery per subscription interested in eventType and
// returns how many were queued.
func (p *Publisher) Emit(ctx context.Context, eventType string, data any) (int, error) {
	subs, err := p.Store.GetSubscriptionsForEvent(ctx, eventType)
	if err != nil || len(subs) == 0 {
		return 0, err
	}
	body, err := json.Marshal(Event{ID: "evt_" + uuid.NewString(), Type: eventType, TS: time.Now().UTC(), Data: data})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range subs {
		if _, err := p.Store.EnqueueWebhook(ctx, s.ID, eventType, s.URL, s.Secret, body); err != nil {
			if p.Log != nil {
				p.Log.WithError(err).WithField("subscription", s.ID).Warn("enqueue webhook")
			}
			continue
		}
		n++
	}
	return n, nil
}
