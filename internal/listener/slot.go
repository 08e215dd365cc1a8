package listener

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/papapumpkin/cascade/internal/event"
)

// SlotTimeFile is the name of the slot-time report inside the stats directory.
const SlotTimeFile = "slot_time.json"

// SlotTime sums the slot time of every process run reported by the build.
type SlotTime struct {
	dir   string
	total atomic.Int64
	log   *slog.Logger
}

// NewSlotTime returns a SlotTime that reports into statsDir. With an empty
// statsDir nothing is written on Finish.
func NewSlotTime(statsDir string, log *slog.Logger) *SlotTime {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SlotTime{dir: statsDir, log: log}
}

// Handle adds the slot time of res's process runs.
func (s *SlotTime) Handle(res *event.Result, _ string) {
	if res == nil {
		return
	}
	for _, pr := range res.ProcessResults {
		s.total.Add(pr.SlotTime)
	}
}

// Total returns the accumulated slot time in milliseconds.
func (s *SlotTime) Total() int64 {
	return s.total.Load()
}

// Finish writes the total to the stats directory. Failures are logged.
func (s *SlotTime) Finish() {
	if s.dir == "" {
		return
	}
	if err := s.save(); err != nil {
		s.log.Error("saving slot time", "error", err)
	}
}

func (s *SlotTime) save() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(map[string]int64{"slot_time": s.Total()})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, SlotTimeFile), data, 0o644)
}
