package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu         sync.Mutex
	runs       map[string]Run
	runOrder   []string
	subs       map[string]Subscription
	subOrder   []string
	deliveries map[string]*WebhookDelivery
	delOrder   []string
}

func NewMemory() *Memory {
	return &Memory{
		runs:       map[string]Run{},
		subs:       map[string]Subscription{},
		deliveries: map[string]*WebhookDelivery{},
	}
}

func (m *Memory) SaveRun(ctx context.Context, r Run) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if _, exists := m.runs[r.ID]; !exists {
		m.runOrder = append(m.runOrder, r.ID)
	}
	m.runs[r.ID] = r
	return r, nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return r, nil
}

// ListRuns pages through runs in insertion order; the cursor is the last id
// of the previous page.
func (m *Memory) ListRuns(ctx context.Context, variant, cursor string, limit int) ([]Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	start := 0
	if cursor != "" {
		for i, id := range m.runOrder {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	out := []Run{}
	next := ""
	for _, id := range m.runOrder[start:] {
		r := m.runs[id]
		if variant != "" && r.Metrics.Variant != variant {
			continue
		}
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, r)
	}
	return out, next, nil
}

func (m *Memory) RunStats(ctx context.Context) ([]VariantStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type key struct{ variant, status string }
	agg := map[key]*VariantStats{}
	for _, r := range m.runs {
		k := key{r.Metrics.Variant, r.Metrics.Status.String()}
		s := agg[k]
		if s == nil {
			s = &VariantStats{Variant: k.variant, Status: k.status}
			agg[k] = s
		}
		s.Runs++
		s.AvgObjective += r.Metrics.Objective
		s.AvgSolveSeconds += r.Metrics.SolveSeconds
	}
	out := make([]VariantStats, 0, len(agg))
	for _, s := range agg {
		s.AvgObjective /= float64(s.Runs)
		s.AvgSolveSeconds /= float64(s.Runs)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Variant != out[j].Variant {
			return out[i].Variant < out[j].Variant
		}
		return out[i].Status < out[j].Status
	})
	return out, nil
}

func (m *Memory) CreateSubscription(ctx context.Context, s Subscription) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = newID()
	s.CreatedAt = time.Now().UTC()
	s.Events = append([]string(nil), s.Events...)
	m.subs[s.ID] = s
	m.subOrder = append(m.subOrder, s.ID)
	return s, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Subscription{}
	for _, id := range m.subOrder {
		if s, ok := m.subs[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]Subscription, error) {
	all, _ := m.ListSubscriptions(ctx)
	out := []Subscription{}
	for _, s := range all {
		if s.Wants(eventType) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return ErrNotFound
	}
	delete(m.subs, id)
	return nil
}

func (m *Memory) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := newID()
	m.deliveries[id] = &WebhookDelivery{ID: id, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending", NextAttemptAt: time.Now()}
	m.delOrder = append(m.delOrder, id)
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.delOrder {
		d := m.deliveries[id]
		if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
			out = append(out, *d)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.ResponseCode = responseCode
	if success {
		d.Status = "delivered"
		return nil
	}
	d.Status = "retry"
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = "failed"
	d.LastError = lastError
	d.ResponseCode = responseCode
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, status string, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := []WebhookDelivery{}
	for _, id := range m.delOrder {
		d := m.deliveries[id]
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, *d)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
