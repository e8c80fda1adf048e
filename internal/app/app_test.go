package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"voicelens/internal/config"
	"voicelens/internal/events"
	"voicelens/vcp"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Config{
		InboxDir:      t.TempDir(),
		DBPath:        filepath.Join(t.TempDir(), "test.db"),
		HTTPPort:      "0",
		SchemaVersion: "0.5",
		WorkerCount:   2,
		QueueSize:     8,
		JobTimeoutSec: 5,
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestProcessPersistsAndSequences(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	payload := map[string]any{"call_id": "app_call_1", "user_sentiment": "positive"}

	first, _, err := a.Process(ctx, "assistable", payload)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	second, _, err := a.Process(ctx, "assistable", payload)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if *first.Audit.SequenceNumber != 1 || *second.Audit.SequenceNumber != 2 {
		t.Fatalf("sequences = %d, %d", *first.Audit.SequenceNumber, *second.Audit.SequenceNumber)
	}

	rec, err := a.store.LatestRecord(ctx, "app_call_1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rec == nil || rec.Sequence != 2 {
		t.Fatalf("latest record = %+v", rec)
	}
}

func TestProcessQuarantinesFatalPayloads(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	payload := map[string]any{
		"call_id":         "app_bad_1",
		"start_timestamp": float64(1735700120),
		"end_timestamp":   float64(1735700000),
	}
	_, _, err := a.Process(ctx, "assistable", payload)
	if !errors.Is(err, vcp.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	entries, err := a.store.ListQuarantine(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Vendor != "assistable" {
		t.Fatalf("expected quarantined payload, got %+v", entries)
	}
}

func TestProcessPublishesEvents(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	sub := a.Bus().Subscribe()

	_, _, err := a.Process(ctx, "vapi", map[string]any{
		"message": map[string]any{"call": map[string]any{"id": "evt_call_1"}},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	select {
	case ev := <-sub:
		processed, ok := ev.(events.RecordProcessed)
		if !ok {
			t.Fatalf("unexpected event %T", ev)
		}
		if processed.Vendor != "vapi" || processed.CallID != "evt_call_1" {
			t.Fatalf("unexpected event %+v", processed)
		}
	default:
		t.Fatalf("expected a published event")
	}
}

func TestSubmitFileRejectsUnprefixedName(t *testing.T) {
	a := newTestApp(t)
	err := a.SubmitFile(context.Background(), "/tmp/payload.json")
	if err == nil {
		t.Fatalf("expected error for file without vendor prefix")
	}
}
