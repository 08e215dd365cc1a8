package cmd

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/cascade/internal/graph"
	"github.com/papapumpkin/cascade/internal/metrics"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect build graph snapshots (validate, show)",
}

var graphValidateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Check that a graph snapshot indexes cleanly",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraphValidate,
}

var graphShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "List the module targets of a graph snapshot with their metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraphShow,
}

func init() {
	graphCmd.PersistentFlags().Bool("allow-dangling-deps", false, "drop edges to nodes missing from the graph")
	graphShowCmd.Flags().Bool("betweenness", false, "include betweenness centrality")

	graphCmd.AddCommand(graphValidateCmd)
	graphCmd.AddCommand(graphShowCmd)
	rootCmd.AddCommand(graphCmd)
}

func loadGraphArg(cmd *cobra.Command, path string) (*graph.Index, error) {
	allow, _ := cmd.Flags().GetBool("allow-dangling-deps")
	return graph.Load(path, graph.Options{AllowDanglingDeps: allow})
}

func runGraphValidate(cmd *cobra.Command, args []string) error {
	idx, err := loadGraphArg(cmd, args[0])
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	writeValidation(cmd.OutOrStdout(), args[0], idx)
	return nil
}

func writeValidation(w io.Writer, path string, idx *graph.Index) {
	fmt.Fprintf(w, "%s: ok, %s nodes, %s modules", path,
		humanize.Comma(int64(idx.Len())), humanize.Comma(int64(len(idx.Modules()))))
	if n := idx.Dangling(); n > 0 {
		fmt.Fprintf(w, ", %s dangling edges dropped", humanize.Comma(int64(n)))
	}
	fmt.Fprintln(w)
}

func runGraphShow(cmd *cobra.Command, args []string) error {
	idx, err := loadGraphArg(cmd, args[0])
	if err != nil {
		return err
	}
	betweenness, _ := cmd.Flags().GetBool("betweenness")
	table := metrics.Compute(idx, metrics.Options{Betweenness: betweenness})
	return writeModules(cmd.OutOrStdout(), idx, table)
}

// writeModules prints one row per module: identity columns, then metric
// values in key order.
func writeModules(w io.Writer, idx *graph.Index, table metrics.Table) error {
	var keys []string
	for _, uid := range idx.Modules() {
		for k := range table[uid] {
			keys = append(keys, k)
		}
		break
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "UID\tNAME\tPLATFORM\tTAG")
	for _, k := range keys {
		fmt.Fprintf(tw, "\t%s", k)
	}
	fmt.Fprintln(tw)

	for _, uid := range idx.Modules() {
		n, _ := idx.Node(uid)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s", uid, n.Name(), dash(n.Platform), dash(n.ModuleTag()))
		snap := table[uid]
		for _, k := range keys {
			fmt.Fprintf(tw, "\t%s", humanize.FtoaWithDigits(snap[k], 4))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
