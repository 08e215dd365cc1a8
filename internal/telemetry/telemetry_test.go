package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(line), &evt); err != nil {
			t.Fatalf("invalid JSON line: %v\nline: %s", err, line)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner: %v", err)
	}
	return events
}

func TestNewEmitter_ErrorOnBadPath(t *testing.T) {
	t.Parallel()
	_, err := NewEmitter("/nonexistent/dir/evlog.jsonl")
	if err == nil {
		t.Fatal("expected error for bad path, got nil")
	}
	if !strings.Contains(err.Error(), "telemetry: open") {
		t.Errorf("expected wrapped error, got: %v", err)
	}
}

func TestWriter_StampsNamespaceAndRun(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "evlog.jsonl")

	em, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	if em.RunID() == "" {
		t.Fatal("RunID() is empty")
	}

	w := em.Writer("build.reports.failed_node_info")
	if err := w("node-failed", map[string]any{"uid": "u1", "exit_code": 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := em.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.Namespace != "build.reports.failed_node_info" || got.Kind != "node-failed" {
		t.Errorf("event = %+v, want namespace/kind set", got)
	}
	if got.RunID != em.RunID() {
		t.Errorf("run = %q, want %q", got.RunID, em.RunID())
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not filled in")
	}
	if got.Data["uid"] != "u1" || got.Data["exit_code"] != float64(2) {
		t.Errorf("data = %v", got.Data)
	}
}

func TestEmit_KeepsExplicitFields(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "evlog.jsonl")
	em, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := em.Emit(Event{Timestamp: ts, RunID: "other", Kind: "k"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	em.Close()

	got := readEvents(t, path)[0]
	if !got.Timestamp.Equal(ts) || got.RunID != "other" {
		t.Errorf("event = %+v, want explicit timestamp and run kept", got)
	}
}

func TestEmit_ConcurrentSafety(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "concurrent.jsonl")

	em, err := NewEmitter(path)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}

	const n = 100
	w := em.Writer("ns")
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if err := w("tick", map[string]any{"i": i}); err != nil {
				t.Errorf("write: %v", err)
			}
		}(i)
	}
	wg.Wait()
	em.Close()

	if got := len(readEvents(t, path)); got != n {
		t.Errorf("expected %d events, got %d", n, got)
	}
}

func TestNilEmitter_NoOp(t *testing.T) {
	t.Parallel()
	var em *Emitter

	if err := em.Emit(Event{Kind: "k"}); err != nil {
		t.Errorf("nil Emit: %v", err)
	}
	if err := em.Writer("ns")("k", nil); err != nil {
		t.Errorf("nil Writer: %v", err)
	}
	if em.RunID() != "" {
		t.Errorf("nil RunID() = %q, want empty", em.RunID())
	}
	if err := em.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestEmit_AppendsToExistingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "append.jsonl")

	for i := 0; i < 2; i++ {
		em, err := NewEmitter(path)
		if err != nil {
			t.Fatalf("NewEmitter: %v", err)
		}
		if err := em.Emit(Event{Kind: "k"}); err != nil {
			t.Fatalf("Emit: %v", err)
		}
		em.Close()
	}

	events := readEvents(t, path)
	if len(events) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(events))
	}
	if events[0].RunID == events[1].RunID {
		t.Error("separate emitters share a run id")
	}
}

func TestEvent_OmitsEmptyData(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(Event{Kind: "k"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), `"data"`) {
		t.Errorf("expected data to be omitted, got: %s", data)
	}
}
