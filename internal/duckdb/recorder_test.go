package duckdb

import (
	"sync"
	"testing"

	"github.com/tinytelemetry/pulse/internal/model"
)

func TestRecorder_RecordAndStop(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store)

	for i := 0; i < 10; i++ {
		rec.Record(&model.Event{Kind: model.EventBeat, Mode: "normal", Active: true, Frame: uint64(i), BPM: 36, RRFrames: 100})
	}

	rec.Stop()

	counts, err := store.TableRowCounts()
	if err != nil {
		t.Fatalf("TableRowCounts: %v", err)
	}
	if counts["events"] != 10 {
		t.Errorf("after Stop, events = %d, want 10", counts["events"])
	}
	if rec.Recorded() != 10 {
		t.Errorf("Recorded() = %d, want 10", rec.Recorded())
	}
}

func TestRecorder_BatchThreshold(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store, RecorderConfig{BatchSize: 16, FlushQueueSize: 1})

	for i := 0; i < 100; i++ {
		rec.Record(&model.Event{Kind: model.EventConfigure, Mode: "stutter", Frame: uint64(i)})
	}
	rec.Stop()

	counts, _ := store.TableRowCounts()
	if counts["events"] != 100 {
		t.Errorf("events = %d, want 100", counts["events"])
	}
}

func TestRecorder_ConcurrentRecord(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store, RecorderConfig{BatchSize: 8})

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				rec.Record(&model.Event{Kind: model.EventBeat, Mode: "noisy", BPM: 40, RRFrames: 90})
			}
		}()
	}
	wg.Wait()
	rec.Stop()

	counts, _ := store.TableRowCounts()
	if counts["events"] != 100 {
		t.Errorf("events = %d, want 100", counts["events"])
	}
}

func TestRecorder_DropsAfterStop(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store)
	rec.Stop()
	rec.Stop()

	rec.Record(&model.Event{Kind: model.EventConfigure, Mode: "normal"})
	counts, _ := store.TableRowCounts()
	if counts["events"] != 0 {
		t.Errorf("events = %d, want 0", counts["events"])
	}
}
