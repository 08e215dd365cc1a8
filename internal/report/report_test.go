package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMemory_ResultsSortedByUID(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	m.AddBuildResult(Result{UID: "c", Name: "C"})
	m.AddBuildResult(Result{UID: "a", Name: "A", Errors: []string{"boom"}, ExitCode: 1})
	m.AddBuildResult(Result{UID: "b", Name: "B"})

	got := m.Results()
	var uids []string
	for _, r := range got {
		uids = append(uids, r.UID)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, uids); diff != "" {
		t.Errorf("uids mismatch (-want +got):\n%s", diff)
	}

	succeeded, broken := m.Counts()
	if succeeded != 2 || broken != 1 {
		t.Errorf("Counts() = (%d, %d), want (2, 1)", succeeded, broken)
	}
}

func TestMemory_Stages(t *testing.T) {
	t.Parallel()
	m := NewMemory()
	m.AddStage("configure")
	m.AddStage("build")
	if diff := cmp.Diff([]string{"configure", "build"}, m.Stages()); diff != "" {
		t.Errorf("stages mismatch (-want +got):\n%s", diff)
	}
}

func TestMemory_Concurrent(t *testing.T) {
	t.Parallel()
	m := NewMemory()

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.AddBuildResult(Result{UID: fmt.Sprintf("u%03d", i)})
		}(i)
	}
	wg.Wait()

	if got := len(m.Results()); got != n {
		t.Errorf("len(Results()) = %d, want %d", got, n)
	}
}

func TestStream_WritesJSONLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	s := NewStream(&buf)

	s.AddStage("build")
	s.AddBuildResult(Result{UID: "m1", Name: "A", Errors: []string{"boom"}, Links: [][]string{{"l"}}, ExitCode: 1})
	if err := s.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var v map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &v); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, v)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["stage"] != "build" {
		t.Errorf("stage line = %v", lines[0])
	}
	if lines[1]["uid"] != "m1" || lines[1]["exit_code"] != float64(1) {
		t.Errorf("result line = %v", lines[1])
	}
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestStream_RemembersFirstError(t *testing.T) {
	t.Parallel()
	w := &failingWriter{}
	s := NewStream(w)
	s.AddBuildResult(Result{UID: "a"})
	s.AddBuildResult(Result{UID: "b"})

	if err := s.Err(); err == nil {
		t.Fatal("Err() = nil, want write error")
	}
	if w.calls != 1 {
		t.Errorf("writer called %d times, want 1", w.calls)
	}
}

func TestTee(t *testing.T) {
	t.Parallel()
	a, b := NewMemory(), NewMemory()
	var buf bytes.Buffer
	tee := NewTee(a, b, NewStream(&buf))

	tee.AddBuildResult(Result{UID: "x"})
	tee.AddStage("s1")

	for i, m := range []*Memory{a, b} {
		if len(m.Results()) != 1 {
			t.Errorf("sink %d: %d results, want 1", i, len(m.Results()))
		}
		if diff := cmp.Diff([]string{"s1"}, m.Stages()); diff != "" {
			t.Errorf("sink %d stages mismatch (-want +got):\n%s", i, diff)
		}
	}
	if buf.Len() == 0 {
		t.Error("stream sink received nothing")
	}
}
