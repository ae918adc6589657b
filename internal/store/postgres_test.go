package store

import (
	"encoding/hex"
	"testing"
)

func TestComputeDedupKeyFromID(t *testing.T) {
	body := []byte(`{"id":"evt_123","type":"x"}`)
	got := computeDedupKey(body)
	if got != "evt_123" {
		t.Fatalf("want evt_123, got %s", got)
	}
}

func TestComputeDedupKeyFromHash(t *testing.T) {
	body := []byte(`{"notId":"x"}`)
	got := computeDedupKey(body)
	// hex-encoded first 8 bytes -> 16 hex chars
	b, err := hex.DecodeString(got)
	if err != nil {
		t.Fatalf("invalid hex: %v", err)
	}
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
}

func TestToJSON(t *testing.T) {
	if v := toJSON(nil); v != nil {
		t.Fatalf("nil -> nil expected, got %v", v)
	}
	var m map[string]float64
	if v := toJSON(m); v != nil {
		t.Fatalf("nil map -> nil expected, got %v", v)
	}
	if v := toJSON(map[string]float64{"x_0_1": 1}); v != `{"x_0_1":1}` {
		t.Fatalf("unexpected encoding %v", v)
	}
	var back map[string]float64
	if err := fromJSON([]byte(`{"y_0":0.5}`), &back); err != nil || back["y_0"] != 0.5 {
		t.Fatalf("fromJSON: %v %v", back, err)
	}
	if err := fromJSON(nil, &back); err != nil {
		t.Fatalf("fromJSON(nil): %v", err)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Fatalf("empty -> nil expected")
	}
	if nullIfEmpty("a") != "a" {
		t.Fatalf("non-empty passthrough expected")
	}
}
