package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"cmdvrp/internal/report"
)

// Run is the persisted record of one build-and-solve. Duals are keyed by
// constraint name and only present when the solve asked for them.
type Run struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"createdAt"`
	Instance  string               `json:"instance,omitempty"`
	Depots    int                  `json:"depots"`
	Customers int                  `json:"customers"`
	Subtour   string               `json:"subtour"`
	Metrics   report.Metrics       `json:"metrics"`
	Families  []report.FamilyCount `json:"families,omitempty"`
	Solution  map[string]float64   `json:"solution,omitempty"`
	Duals     map[string]float64   `json:"duals,omitempty"`
	System    report.SysInfo       `json:"system"`
	Error     string               `json:"error,omitempty"`
}

// VariantStats aggregates runs per variant and status.
type VariantStats struct {
	Variant         string  `json:"variant"`
	Status          string  `json:"status"`
	Runs            int     `json:"runs"`
	AvgObjective    float64 `json:"avgObjective"`
	AvgSolveSeconds float64 `json:"avgSolveSeconds"`
}

// Subscription is a webhook endpoint interested in some event types. An empty
// Events list matches every event.
type Subscription struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s Subscription) Wants(eventType string) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

type WebhookDelivery struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscriptionId,omitempty"`
	EventType      string    `json:"eventType"`
	URL            string    `json:"url"`
	Secret         string    `json:"-"`
	Payload        []byte    `json:"-"`
	Status         string    `json:"status"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"lastError,omitempty"`
	ResponseCode   int       `json:"responseCode,omitempty"`
	NextAttemptAt  time.Time `json:"nextAttemptAt"`
}

// Store is the persistence interface used by the run service and the API server.
type Store interface {
	// Runs
	SaveRun(ctx context.Context, r Run) (Run, error)
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, variant, cursor string, limit int) (items []Run, nextCursor string, err error)
	RunStats(ctx context.Context) ([]VariantStats, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, s Subscription) (Subscription, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]WebhookDelivery, error)
}

var ErrNotFound = errors.New("not found")

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}
