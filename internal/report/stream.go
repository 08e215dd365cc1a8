package report

import (
	"encoding/json"
	"io"
	"sync"
)

// Stream writes each result as one JSON line. Write errors are remembered
// and returned by Err; later writes are skipped. Stream is safe for
// concurrent use.
type Stream struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

// NewStream returns a Stream writing to w.
func NewStream(w io.Writer) *Stream {
	return &Stream{enc: json.NewEncoder(w)}
}

// AddBuildResult writes r as a JSON line.
func (s *Stream) AddBuildResult(r Result) {
	s.write(r)
}

// AddStage writes a {"stage": ...} line.
func (s *Stream) AddStage(stage string) {
	s.write(struct {
		Stage string `json:"stage"`
	}{stage})
}

// Err returns the first write error, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) write(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = s.enc.Encode(v)
}

// resultAdder is the subset of a sink that Tee fans out to.
type resultAdder interface {
	AddBuildResult(Result)
}

type stageAdder interface {
	AddStage(string)
}

// Tee forwards results and stages to several sinks in order.
type Tee []resultAdder

// NewTee returns a Tee over the given sinks.
func NewTee(sinks ...resultAdder) Tee {
	return Tee(sinks)
}

// AddBuildResult forwards r to every sink.
func (t Tee) AddBuildResult(r Result) {
	for _, s := range t {
		s.AddBuildResult(r)
	}
}

// AddStage forwards stage to every sink that records stages.
func (t Tee) AddStage(stage string) {
	for _, s := range t {
		if sa, ok := s.(stageAdder); ok {
			sa.AddStage(stage)
		}
	}
}
