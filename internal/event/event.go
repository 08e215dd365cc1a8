// Package event defines the per-node completion records produced by build
// workers, along with helpers to decode them from JSONL streams and to
// normalize their stderr output.
package event

// DefaultExitCode is reported for failures whose record carries no exit code.
const DefaultExitCode = -99

// ProcessResult describes one process run on behalf of a node.
type ProcessResult struct {
	SlotTime int64 `json:"slot_time,omitempty"` // milliseconds
}

// Result is a completion record for one graph node. A nil Status means the
// record carried no status; a non-zero Status is a failure.
type Result struct {
	UID            string          `json:"uid"`
	Status         *int            `json:"status,omitempty"`
	ExitCode       *int            `json:"exit_code,omitempty"`
	Stderrs        []string        `json:"stderrs,omitempty"`
	ErrorLinks     []string        `json:"error_links,omitempty"`
	Files          []string        `json:"files,omitempty"`
	BuildRoot      string          `json:"build_root,omitempty"`
	ProcessResults []ProcessResult `json:"process_results,omitempty"`
}

// Finished reports whether the record describes a finished node: it either
// carries a status or lists produced files.
func (r *Result) Finished() bool {
	return r != nil && (r.Status != nil || len(r.Files) > 0)
}

// Failed reports whether the record carries a non-zero status.
func (r *Result) Failed() bool {
	return r != nil && r.Status != nil && *r.Status != 0
}

// Exit returns the record's exit code, or DefaultExitCode when absent.
func (r *Result) Exit() int {
	if r == nil || r.ExitCode == nil {
		return DefaultExitCode
	}
	return *r.ExitCode
}

// Record is one line of an event stream: an optional result and an
// optional build-stage marker.
type Record struct {
	Result *Result
	Stage  string
}

// Int returns a pointer to v, for building records in code.
func Int(v int) *int {
	return &v
}
