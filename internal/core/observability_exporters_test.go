package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"testing"
	"time"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "resolve", true, 40*time.Millisecond)
	rec.Observe(ctx, "resolve", true, 60*time.Millisecond)
	rec.Observe(ctx, "resolve", false, 10*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if got := snap.DurationsMS["resolve"]; got != 110 {
		t.Fatalf("durations = %v, want 110", got)
	}
	if snap.Results["resolve"]["success"] != 2 || snap.Results["resolve"]["error"] != 1 {
		t.Fatalf("results = %+v", snap.Results["resolve"])
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be dropped")
	}
}

func TestExpvarMetricsRecorderPublishes(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "decide_next_brood", true, time.Millisecond)

	v := expvar.Get(rec.Name())
	if v == nil {
		t.Fatalf("recorder not published under %q", rec.Name())
	}
	var snap ExpvarMetricsSnapshot
	if err := json.Unmarshal([]byte(v.String()), &snap); err != nil {
		t.Fatalf("expvar payload not JSON: %v", err)
	}
	if snap.Results["decide_next_brood"]["success"] != 1 {
		t.Fatalf("published snapshot = %+v", snap.Results)
	}
}

func TestExpvarMetricsRecorderSnapshotIsCopy(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "resolve", true, time.Millisecond)

	snap := rec.Snapshot()
	snap.DurationsMS["resolve"] = 9999
	snap.Results["resolve"]["success"] = 9999

	if again := rec.Snapshot(); again.DurationsMS["resolve"] == 9999 ||
		again.Results["resolve"]["success"] == 9999 {
		t.Fatalf("snapshot mutation leaked into the recorder")
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)

	_, sp := tracer.Start(context.Background(), "resolve")
	sp.End(nil)
	_, sp = tracer.Start(context.Background(), "resolve")
	sp.End(errors.New("no such specimen"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("statuses = %q, %q", entries[0].Status, entries[1].Status)
	}
	if entries[1].Error != "no such specimen" {
		t.Fatalf("error message = %q", entries[1].Error)
	}
	if entries[0].EndedAt.Before(entries[0].StartedAt) {
		t.Fatalf("span ended before it started: %+v", entries[0])
	}

	dec := json.NewDecoder(&buf)
	var lines int
	for dec.More() {
		var entry JSONTraceEntry
		if err := dec.Decode(&entry); err != nil {
			t.Fatalf("decode trace line: %v", err)
		}
		lines++
	}
	if lines != 2 {
		t.Fatalf("wrote %d trace lines, want 2", lines)
	}
}

func TestJSONTracerNilWriterRetainsOnly(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, sp := tracer.Start(context.Background(), "snapshot_rebuild")
	sp.End(nil)
	if len(tracer.Entries()) != 1 {
		t.Fatalf("entries = %d, want 1", len(tracer.Entries()))
	}
}

func TestNoopLoggerIsSilent(t *testing.T) {
	var l Logger = noopLogger{}
	l.Debug("ignored", "k", "v")
	l.Info("ignored")
	l.Warn("ignored", "odd-key")
	l.Error("ignored", "err", errors.New("x"))
}
