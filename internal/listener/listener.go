// Package listener turns a stream of per-node completion records into
// per-target build results. BuildResults is the core: it classifies each
// record by node kind, reports completed modules, and walks reverse
// dependencies from a failed node so that every module it breaks is
// reported exactly once.
package listener

import (
	"io"
	"log/slog"

	"github.com/papapumpkin/cascade/internal/event"
	"github.com/papapumpkin/cascade/internal/graph"
	"github.com/papapumpkin/cascade/internal/report"
)

// Sink receives build results. Implementations must not call back into the
// listener: results are delivered while the run state lock is held.
type Sink interface {
	AddBuildResult(r report.Result)
}

// StageRecorder is implemented by sinks that trace build stages.
type StageRecorder interface {
	AddStage(stage string)
}

// MetricsSource supplies the metric snapshot attached to a target's result.
type MetricsSource interface {
	Lookup(uid string) map[string]float64
}

// BuildResults reports module targets as they complete or break.
// It is safe for concurrent use; Handle may be called from many workers.
type BuildResults struct {
	idx     *graph.Index
	sink    Sink
	state   *State
	metrics MetricsSource
	extract event.Extractor
	log     *slog.Logger
}

// Option configures a BuildResults.
type Option func(*BuildResults)

// WithLogger sets the logger used for diagnostics. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(b *BuildResults) { b.log = l }
}

// WithMetrics sets the metric snapshots attached to results.
func WithMetrics(m MetricsSource) Option {
	return func(b *BuildResults) { b.metrics = m }
}

// WithExtractor sets how stderr is normalized for failed nodes.
func WithExtractor(x event.Extractor) Option {
	return func(b *BuildResults) { b.extract = x }
}

// WithState shares run state with the caller. Without it each BuildResults
// owns a fresh State.
func WithState(s *State) Option {
	return func(b *BuildResults) { b.state = s }
}

// NewBuildResults returns a listener over idx reporting to sink.
func NewBuildResults(idx *graph.Index, sink Sink, opts ...Option) *BuildResults {
	b := &BuildResults{
		idx:  idx,
		sink: sink,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(b)
	}
	if b.state == nil {
		b.state = NewState()
	}
	return b
}

// State returns the run state shared by the propagator and notifier.
func (b *BuildResults) State() *State {
	return b.state
}

// Handle processes one record. A nil res is treated as an empty record; a
// non-empty stage is forwarded to the sink when it records stages.
func (b *BuildResults) Handle(res *event.Result, stage string) {
	if res.Finished() {
		if res.Failed() {
			text, links := b.extract.Extract(res)
			b.onFailed(res.UID, text, links, res.Exit())
		} else {
			b.onCompleted(res.UID)
		}
	}
	if stage != "" {
		if sr, ok := b.sink.(StageRecorder); ok {
			sr.AddStage(stage)
		}
	}
}

func (b *BuildResults) onCompleted(uid string) {
	n, ok := b.idx.Node(uid)
	if !ok {
		b.log.Debug("completed node is not in the graph", "uid", uid)
		return
	}
	switch n.Kind() {
	case graph.KindBuild:
		b.complete(uid)
	default:
		b.log.Debug("non-build node completed", "uid", uid, "kind", n.Kind())
	}
}

func (b *BuildResults) onFailed(uid, text string, links []string, exitCode int) {
	n, ok := b.idx.Node(uid)
	if !ok {
		b.log.Debug("failed node is not in the graph", "uid", uid)
		return
	}
	switch n.Kind() {
	case graph.KindBuild:
		b.propagate(uid, text, links, exitCode)
	case graph.KindMerge:
		b.log.Debug("merge node failed", "uid", uid)
	case graph.KindTest:
		b.log.Debug("test node failed", "uid", uid)
	default:
		b.log.Debug("unknown node failed", "uid", uid, "node_type", n.NodeType)
	}
}
