// Package report holds the per-target build result record and the sinks
// that aggregate or stream those records.
package report

import (
	"sort"
	"sync"
)

// Result is the outcome reported for one module target. A target is broken
// when Errors is non-empty.
type Result struct {
	UID       string             `json:"uid"`
	Name      string             `json:"name"`
	Platform  string             `json:"platform,omitempty"`
	Errors    []string           `json:"errors,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	ModuleTag string             `json:"module_tag,omitempty"`
	Links     [][]string         `json:"links,omitempty"`
	ExitCode  int                `json:"exit_code"`
}

// Broken reports whether the result describes a failed target.
func (r Result) Broken() bool {
	return len(r.Errors) > 0
}

// Memory collects results and stages in memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	results []Result
	stages  []string
}

// NewMemory returns an empty Memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// AddBuildResult records r.
func (m *Memory) AddBuildResult(r Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
}

// AddStage records a build-stage marker.
func (m *Memory) AddStage(stage string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

// Results returns a copy of the recorded results sorted by uid. Results
// with the same uid keep their arrival order.
func (m *Memory) Results() []Result {
	m.mu.Lock()
	out := make([]Result, len(m.results))
	copy(out, m.results)
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out
}

// Stages returns the recorded stage markers in arrival order.
func (m *Memory) Stages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.stages))
	copy(out, m.stages)
	return out
}

// Counts returns the number of succeeded and broken results.
func (m *Memory) Counts() (succeeded, broken int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.results {
		if r.Broken() {
			broken++
		} else {
			succeeded++
		}
	}
	return succeeded, broken
}
