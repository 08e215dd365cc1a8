package event

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxLineBytes bounds a single JSONL record; stderr payloads can be large.
const maxLineBytes = 16 << 20

// line is the wire shape of one JSONL record.
type line struct {
	Result
	Stage string `json:"build_stage,omitempty"`
}

// ParseLine decodes a single JSONL record. A record without a uid carries
// no result and is only meaningful when it has a stage marker.
func ParseLine(data string) (Record, error) {
	var l line
	if err := json.Unmarshal([]byte(data), &l); err != nil {
		return Record{}, err
	}
	rec := Record{Stage: l.Stage}
	if l.UID != "" {
		res := l.Result
		rec.Result = &res
	}
	return rec, nil
}

// Decoder reads records from a JSONL stream.
type Decoder struct {
	scanner *bufio.Scanner
	lineNo  int
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Decoder{scanner: s}
}

// Next returns the next record, skipping blank lines. It returns io.EOF
// when the stream is exhausted.
func (d *Decoder) Next() (Record, error) {
	for d.scanner.Scan() {
		d.lineNo++
		text := strings.TrimSpace(d.scanner.Text())
		if text == "" {
			continue
		}
		rec, err := ParseLine(text)
		if err != nil {
			return Record{}, fmt.Errorf("event: line %d: %w", d.lineNo, err)
		}
		return rec, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Record{}, fmt.Errorf("event: read: %w", err)
	}
	return Record{}, io.EOF
}

// StreamReader decodes r into out and closes out when r is exhausted or
// ctx is cancelled.
func StreamReader(ctx context.Context, r io.Reader, out chan<- Record) error {
	defer close(out)

	d := NewDecoder(r)
	for {
		rec, err := d.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		select {
		case out <- rec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
