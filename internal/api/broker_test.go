package api

import (
	"os"
	"testing"
	"time"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	topic := topicFor("cda")
	ch := b.Subscribe(topic)

	evt := Event{Type: "run.completed", Data: map[string]any{"x": 1}}
	b.Publish(topic, evt)
	b.Publish(topicFor(""), Event{Type: "other"})

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data.(map[string]any)["x"].(int) != 1 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}
	select {
	case got := <-ch:
		t.Fatalf("unexpected event from another topic: %+v", got)
	default:
	}

	b.Unsubscribe(topic, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
	// second unsubscribe is a no-op
	b.Unsubscribe(topic, ch)
}

func TestBrokerDropsWhenFull(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("runs")
	for i := 0; i < 20; i++ {
		b.Publish("runs", Event{Type: "run.completed"})
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffer len %d, want %d", len(ch), cap(ch))
	}
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set; skipping redis broker test")
	}
	b, err := NewRedisBroker(url, nil)
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}
	defer b.Close()
	ch := b.Subscribe("runs")
	defer b.Unsubscribe("runs", ch)
	b.Publish("runs", Event{Type: "run.completed", Data: map[string]any{"id": "r1"}})
	select {
	case got := <-ch:
		if got.Type != "run.completed" || got.Data.(map[string]any)["id"] != "r1" {
			t.Fatalf("got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}
}
