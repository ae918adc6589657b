package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"cmdvrp/internal/store"
)

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []MarkRec
	fails []FailRec
}
type MarkRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}
type FailRec struct {
	ID            string
	Code, Latency int
	LastErr       string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, MarkRec{ID: id, Success: success, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}
func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, FailRec{ID: id, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	payload := []byte(`{"id":"evt1"}`)
	id, err := rs.Memory.EnqueueWebhook(context.Background(), "", EventRunCompleted, srv.URL, "secret", payload)
	if err != nil || id == "" {
		t.Fatalf("enqueue failed: %v", err)
	}

	w.processOnce()

	if gotType != EventRunCompleted {
		t.Fatalf("missing event type header: %q", gotType)
	}
	if !VerifyHMAC("secret", gotBody, gotSig) {
		t.Fatalf("signature %q does not verify", gotSig)
	}
	if len(rs.marks) == 0 || !rs.marks[0].Success {
		t.Fatalf("expected mark success, got: %+v", rs.marks)
	}
}

func TestWorkerProcessOnce_Retry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(503) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 3}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "", EventRunFailed, srv.URL, "", []byte(`{}`))
	w.processOnce()
	if len(rs.marks) != 1 || rs.marks[0].Success || rs.marks[0].Code != 503 {
		t.Fatalf("expected one retry mark, got %+v", rs.marks)
	}
	if len(rs.fails) != 0 {
		t.Fatalf("should not fail before max attempts: %+v", rs.fails)
	}
}

func TestWorkerProcessOnce_Fail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := &Worker{Store: rs, HTTP: srv.Client(), Stop: make(chan struct{}), MaxAttempts: 1}
	_, _ = rs.Memory.EnqueueWebhook(context.Background(), "", EventRunFailed, srv.URL, "", []byte(`{}`))
	w.processOnce()
	if len(rs.fails) == 0 {
		t.Fatalf("expected fail recorded")
	}
}

func TestNextBackoff(t *testing.T) {
	cases := map[int]time.Duration{-1: time.Second, 0: time.Second, 3: 8 * time.Second, 10: 1024 * time.Second, 40: 1024 * time.Second}
	for in, want := range cases {
		if got := nextBackoff(in); got != want {
			t.Fatalf("nextBackoff(%d) = %v, want %v", in, got, want)
		}
	}
}

func TestPublisherEmit(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	_, _ = mem.CreateSubscription(ctx, store.Subscription{URL: "http://a", Secret: "s"})
	_, _ = mem.CreateSubscription(ctx, store.Subscription{URL: "http://b", Events: []string{EventRunFailed}})

	n, err := NewPublisher(mem).Emit(ctx, EventRunCompleted, map[string]string{"run": "r1"})
	if err != nil || n != 1 {
		t.Fatalf("Emit = %d, %v", n, err)
	}
	due, _ := mem.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].URL != "http://a" || due[0].Secret != "s" {
		t.Fatalf("due = %+v", due)
	}
	var evt Event
	if err := json.Unmarshal(due[0].Payload, &evt); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if evt.Type != EventRunCompleted || evt.ID == "" {
		t.Fatalf("event = %+v", evt)
	}
}
