package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"cmdvrp/internal/report"
	"cmdvrp/internal/solver"
)

func run(variant string, status solver.Status, obj float64) Run {
	return Run{Metrics: report.Metrics{Variant: variant, Status: status, Objective: obj, SolveSeconds: 1}}
}

func TestMemoryRuns(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for i, r := range []Run{
		run("scf-route", solver.StatusOptimal, 2),
		run("cda", solver.StatusOptimal, 3),
		run("scf-route", solver.StatusOptimal, 4),
		run("scf-route", solver.StatusInfeasible, 0),
	} {
		saved, err := m.SaveRun(ctx, r)
		if err != nil {
			t.Fatalf("SaveRun %d: %v", i, err)
		}
		if saved.ID == "" || saved.CreatedAt.IsZero() {
			t.Fatalf("SaveRun did not assign id/time: %+v", saved)
		}
		ids = append(ids, saved.ID)
	}

	got, err := m.GetRun(ctx, ids[1])
	if err != nil || got.Metrics.Variant != "cda" {
		t.Fatalf("GetRun: %+v %v", got, err)
	}
	if _, err := m.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	page, next, err := m.ListRuns(ctx, "scf-route", "", 2)
	if err != nil || len(page) != 2 || next != ids[2] {
		t.Fatalf("first page: %d items next=%q err=%v", len(page), next, err)
	}
	page, next, _ = m.ListRuns(ctx, "scf-route", next, 2)
	if len(page) != 1 || page[0].ID != ids[3] || next != "" {
		t.Fatalf("second page: %+v next=%q", page, next)
	}

	stats, err := m.RunStats(ctx)
	if err != nil {
		t.Fatalf("RunStats: %v", err)
	}
	want := []VariantStats{
		{Variant: "cda", Status: "optimal", Runs: 1, AvgObjective: 3, AvgSolveSeconds: 1},
		{Variant: "scf-route", Status: "infeasible", Runs: 1, AvgObjective: 0, AvgSolveSeconds: 1},
		{Variant: "scf-route", Status: "optimal", Runs: 2, AvgObjective: 3, AvgSolveSeconds: 1},
	}
	if len(stats) != len(want) {
		t.Fatalf("stats = %+v", stats)
	}
	for i := range want {
		if stats[i] != want[i] {
			t.Fatalf("stats[%d] = %+v, want %+v", i, stats[i], want[i])
		}
	}
}

func TestMemorySubscriptions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	all, _ := m.CreateSubscription(ctx, Subscription{URL: "http://a"})
	only, _ := m.CreateSubscription(ctx, Subscription{URL: "http://b", Events: []string{"run.failed"}})

	subs, _ := m.GetSubscriptionsForEvent(ctx, "run.completed")
	if len(subs) != 1 || subs[0].ID != all.ID {
		t.Fatalf("run.completed subscribers = %+v", subs)
	}
	subs, _ = m.GetSubscriptionsForEvent(ctx, "run.failed")
	if len(subs) != 2 {
		t.Fatalf("run.failed subscribers = %+v", subs)
	}
	if err := m.DeleteSubscription(ctx, only.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.DeleteSubscription(ctx, only.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	list, _ := m.ListSubscriptions(ctx)
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
}

func TestMemoryWebhookQueue(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	id, _ := m.EnqueueWebhook(ctx, "", "run.completed", "http://x", "s", []byte(`{}`))

	due, _ := m.FetchDueWebhookDeliveries(ctx, 10)
	if len(due) != 1 || due[0].ID != id {
		t.Fatalf("due = %+v", due)
	}
	later := time.Now().Add(time.Hour)
	if err := m.MarkWebhookDelivery(ctx, id, false, &later, "boom", 500, 3); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if due, _ := m.FetchDueWebhookDeliveries(ctx, 10); len(due) != 0 {
		t.Fatalf("retry scheduled in the future should not be due: %+v", due)
	}
	if err := m.FailWebhookDelivery(ctx, id, "boom", 500, 3); err != nil {
		t.Fatalf("fail: %v", err)
	}
	failed, _ := m.ListWebhookDeliveries(ctx, "failed", 0)
	if len(failed) != 1 || failed[0].Attempts != 2 || failed[0].LastError != "boom" {
		t.Fatalf("failed = %+v", failed)
	}
}
