package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papapumpkin/cascade/internal/telemetry"
)

var evlogCmd = &cobra.Command{
	Use:   "evlog [path]",
	Short: "View the JSONL event log written by replay",
	Long: `Reads and formats the event log. The path defaults to the configured evlog.

With --follow (-f), watches the file for new events (like tail -f).
--namespace and --run restrict the output to matching events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvlog,
}

func init() {
	evlogCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	evlogCmd.Flags().String("namespace", "", "only show events in this namespace")
	evlogCmd.Flags().String("run", "", "only show events of this run id")
	rootCmd.AddCommand(evlogCmd)
}

// evlogFilter selects the events printed by evlog. Empty fields match all.
type evlogFilter struct {
	namespace string
	run       string
}

func (f evlogFilter) match(evt telemetry.Event) bool {
	return (f.namespace == "" || evt.Namespace == f.namespace) &&
		(f.run == "" || evt.RunID == f.run)
}

func runEvlog(cmd *cobra.Command, args []string) error {
	path := viper.GetString("evlog")
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("evlog: no event log path; pass one or set evlog in config")
	}
	follow, _ := cmd.Flags().GetBool("follow")
	filter := evlogFilter{}
	filter.namespace, _ = cmd.Flags().GetString("namespace")
	filter.run, _ = cmd.Flags().GetString("run")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("evlog: open %s: %w", path, err)
	}
	defer f.Close()

	w := cmd.OutOrStdout()
	lines := &eventLines{reader: bufio.NewReader(f)}
	if err := lines.printAvailable(w, filter); err != nil {
		return fmt.Errorf("evlog: read %s: %w", path, err)
	}
	if !follow {
		lines.flush(w, filter)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return tailFollow(ctx, w, lines, path, filter)
}

// eventLines reads newline-terminated events from a log that may still be
// growing. A trailing partial line is held back until its newline arrives.
type eventLines struct {
	reader  *bufio.Reader
	pending strings.Builder
}

// printAvailable prints every complete line currently readable.
func (l *eventLines) printAvailable(w io.Writer, filter evlogFilter) error {
	for {
		chunk, err := l.reader.ReadString('\n')
		l.pending.WriteString(chunk)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		l.flush(w, filter)
	}
}

// flush prints the held-back text, if any, as one event.
func (l *eventLines) flush(w io.Writer, filter evlogFilter) {
	line := strings.TrimSpace(l.pending.String())
	l.pending.Reset()
	if line != "" {
		printEvent(w, line, filter)
	}
}

// tailFollow watches the file for new data using fsnotify and prints new events.
func tailFollow(ctx context.Context, w io.Writer, lines *eventLines, path string, filter evlogFilter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("evlog: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("evlog: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			if err := lines.printAvailable(w, filter); err != nil {
				return fmt.Errorf("evlog: read %s: %w", path, err)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("evlog: watch %s: %w", path, werr)
		}
	}
}

// printEvent decodes a JSONL line and prints a human-readable representation.
func printEvent(w io.Writer, line string, filter evlogFilter) {
	var evt telemetry.Event
	if err := json.Unmarshal([]byte(line), &evt); err != nil {
		fmt.Fprintf(w, "??? %s\n", line)
		return
	}
	if !filter.match(evt) {
		return
	}

	parts := []string{
		fmt.Sprintf("[%s]", evt.Timestamp.Format(time.TimeOnly)),
		evt.Namespace,
		evt.Kind,
	}
	if evt.RunID != "" {
		parts = append(parts, fmt.Sprintf("run=%s", evt.RunID))
	}
	if len(evt.Data) > 0 {
		parts = append(parts, formatDataMap(evt.Data))
	}

	fmt.Fprintln(w, strings.Join(parts, " "))
}

// formatDataMap formats a data map as key=value pairs sorted by key.
func formatDataMap(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, m[k])
	}
	return b.String()
}
