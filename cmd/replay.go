package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/cascade/internal/config"
	"github.com/papapumpkin/cascade/internal/dispatch"
	"github.com/papapumpkin/cascade/internal/event"
	"github.com/papapumpkin/cascade/internal/graph"
	"github.com/papapumpkin/cascade/internal/listener"
	"github.com/papapumpkin/cascade/internal/metrics"
	"github.com/papapumpkin/cascade/internal/report"
	"github.com/papapumpkin/cascade/internal/telemetry"
)

// replayNamespace groups the run-level records cascade itself writes to the
// event log.
const replayNamespace = "cascade.replay"

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay build events against a graph and print per-target results",
	Long: `Reads a build graph snapshot and a JSONL stream of node completion records
(a file, or stdin when --events is empty or "-"), and prints one JSON result
per module target on stdout. A summary line goes to stderr.

With --follow (-f), keeps watching the events file for appended records
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.String("graph", "", "build graph snapshot (.json or .toml)")
	f.String("events", "", `JSONL event stream (default stdin, or "-")`)
	f.BoolP("follow", "f", false, "watch the events file for appended records")
	f.Int("workers", 0, "concurrent event handlers (default number of CPUs)")
	f.String("source-root", "", "source root replaced by $(SOURCE_ROOT) in error text")
	f.String("evlog", "", "append failed-node events to this JSONL event log")
	f.String("stats-dir", "", "write slot_time.json into this directory")
	f.Bool("allow-dangling-deps", false, "drop edges to nodes missing from the graph")
	f.Bool("betweenness", false, "include betweenness centrality in target metrics")

	for key, flag := range map[string]string{
		"graph":               "graph",
		"events":              "events",
		"follow":              "follow",
		"workers":             "workers",
		"source_root":         "source-root",
		"evlog":               "evlog",
		"stats_dir":           "stats-dir",
		"allow_dangling_deps": "allow-dangling-deps",
		"betweenness":         "betweenness",
	} {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return replay(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// replay runs one build replay: results go to stdout as JSON lines and the
// summary and logs go to stderr.
func replay(ctx context.Context, cfg config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	log := newLogger(stderr, cfg.Verbose)

	idx, err := graph.Load(cfg.Graph, graph.Options{AllowDanglingDeps: cfg.AllowDanglingDeps})
	if err != nil {
		return err
	}
	if n := idx.Dangling(); n > 0 {
		log.Warn("dropped edges to unknown nodes", "count", n)
	}
	log.Debug("graph loaded", "nodes", idx.Len(), "modules", len(idx.Modules()))
	table := metrics.Compute(idx, metrics.Options{Betweenness: cfg.Betweenness})

	var em *telemetry.Emitter
	if cfg.EventLog != "" {
		em, err = telemetry.NewEmitter(cfg.EventLog)
		if err != nil {
			return err
		}
		defer em.Close()
		log.Debug("event log opened", "path", cfg.EventLog, "run", em.RunID())
	}

	mem := report.NewMemory()
	stream := report.NewStream(stdout)
	build := listener.NewBuildResults(idx, report.NewTee(mem, stream),
		listener.WithLogger(log),
		listener.WithMetrics(table),
		listener.WithExtractor(event.Extractor{SourceRoot: cfg.SourceRoot}),
	)
	slots := listener.NewSlotTime(cfg.StatsDir, log)
	handlers := listener.NewComposite(build, listener.NewFailedNodes(em, log), slots)

	start := time.Now()
	records := make(chan event.Record, cfg.Workers*4)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return streamEvents(gctx, cfg, stdin, records)
	})
	g.Go(func() error {
		return dispatch.Run(gctx, records, handlers, cfg.Workers)
	})
	err = g.Wait()
	if cfg.Follow && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		err = nil
	}
	slots.Finish()
	if err != nil {
		return err
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("writing results: %w", err)
	}

	succeeded, broken := mem.Counts()
	writeSummary(stderr, succeeded, broken, slots.Total(), time.Since(start))
	recordRun(em, log, succeeded, broken, slots.Total())
	return nil
}

// streamEvents feeds records from the configured events file, or stdin.
func streamEvents(ctx context.Context, cfg config.Config, stdin io.Reader, out chan<- event.Record) error {
	if cfg.Events == "" || cfg.Events == "-" {
		return event.StreamReader(ctx, stdin, out)
	}
	return event.Source{Path: cfg.Events, Follow: cfg.Follow}.Stream(ctx, out)
}

func writeSummary(w io.Writer, succeeded, broken int, slotMillis int64, elapsed time.Duration) {
	fmt.Fprintf(w, "%s targets: %s succeeded, %s broken; slot time %s; replayed in %s\n",
		humanize.Comma(int64(succeeded+broken)),
		humanize.Comma(int64(succeeded)),
		humanize.Comma(int64(broken)),
		time.Duration(slotMillis)*time.Millisecond,
		elapsed.Round(time.Millisecond),
	)
}

func recordRun(em *telemetry.Emitter, log *slog.Logger, succeeded, broken int, slotMillis int64) {
	err := em.Writer(replayNamespace)("replay-finished", map[string]any{
		"succeeded": succeeded,
		"broken":    broken,
		"slot_time": slotMillis,
	})
	if err != nil {
		log.Warn("writing replay summary event", "error", err)
	}
}
