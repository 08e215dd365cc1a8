package event

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Source streams the records of a JSONL file.
type Source struct {
	Path string
	// Follow keeps watching the file for appended records after EOF,
	// until the context is cancelled.
	Follow bool
}

// Stream decodes the file into out and closes out when done. In follow
// mode it only returns once ctx is cancelled; the context error is not
// reported as a failure.
func (s Source) Stream(ctx context.Context, out chan<- Record) error {
	defer close(out)

	err := s.stream(ctx, out)
	if s.Follow && ctx.Err() != nil {
		return nil
	}
	return err
}

func (s Source) stream(ctx context.Context, out chan<- Record) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("event: open %s: %w", s.Path, err)
	}
	defer f.Close()

	t := &tail{reader: bufio.NewReaderSize(f, 64*1024), out: out}
	if err := t.drain(ctx); err != nil {
		return err
	}
	if !s.Follow {
		return t.flush(ctx)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("event: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.Path); err != nil {
		return fmt.Errorf("event: watch %s: %w", s.Path, err)
	}

	// Catch anything appended between the first drain and watcher.Add.
	if err := t.drain(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return t.flush(ctx)
			}
			if !ev.Has(fsnotify.Write) {
				continue
			}
			if err := t.drain(ctx); err != nil {
				return err
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return t.flush(ctx)
			}
			return fmt.Errorf("event: watch %s: %w", s.Path, werr)
		}
	}
}

// tail reads complete lines from a growing file, holding back a trailing
// partial line until its newline arrives.
type tail struct {
	reader  *bufio.Reader
	out     chan<- Record
	pending strings.Builder
	lineNo  int
}

func (t *tail) drain(ctx context.Context) error {
	for {
		chunk, err := t.reader.ReadString('\n')
		t.pending.WriteString(chunk)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("event: read: %w", err)
		}
		if err := t.emit(ctx); err != nil {
			return err
		}
	}
}

// flush emits a final record that has no trailing newline.
func (t *tail) flush(ctx context.Context) error {
	return t.emit(ctx)
}

func (t *tail) emit(ctx context.Context) error {
	text := strings.TrimSpace(t.pending.String())
	t.pending.Reset()
	t.lineNo++
	if text == "" {
		return nil
	}
	rec, err := ParseLine(text)
	if err != nil {
		return fmt.Errorf("event: line %d: %w", t.lineNo, err)
	}
	select {
	case t.out <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
