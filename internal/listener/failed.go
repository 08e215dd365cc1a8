package listener

import (
	"io"
	"log/slog"

	"github.com/papapumpkin/cascade/internal/event"
	"github.com/papapumpkin/cascade/internal/telemetry"
)

// Event-log coordinates of failed-node records.
const (
	FailedNodeNamespace = "build.reports.failed_node_info"
	FailedNodeEvent     = "node-failed"
)

// FailedNodes writes one event-log record for every failing node whose
// record carries an exit code.
type FailedNodes struct {
	write telemetry.WriterFunc
	log   *slog.Logger
}

// NewFailedNodes returns a FailedNodes writing to the failed-node namespace
// of em. A nil em discards.
func NewFailedNodes(em *telemetry.Emitter, log *slog.Logger) *FailedNodes {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FailedNodes{write: em.Writer(FailedNodeNamespace), log: log}
}

// Handle records res when it failed with an explicit exit code.
func (f *FailedNodes) Handle(res *event.Result, _ string) {
	if !res.Failed() || res.ExitCode == nil {
		return
	}
	data := map[string]any{"uid": res.UID, "exit_code": *res.ExitCode}
	if err := f.write(FailedNodeEvent, data); err != nil {
		f.log.Warn("writing failed-node event", "uid", res.UID, "error", err)
	}
}
