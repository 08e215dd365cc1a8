package listener

import (
	"github.com/papapumpkin/cascade/internal/graph"
	"github.com/papapumpkin/cascade/internal/report"
)

// BrokenByPrefix starts the message reported for a module broken by a
// failing module upstream. The anchor's target name follows on a new line.
const BrokenByPrefix = "Depends on broken targets:\n"

// walkItem is one pending visit of the failure walk. anchor is the uid of
// the nearest failed module above uid on this path, empty at the root.
type walkItem struct {
	uid    string
	anchor string
}

// propagate reports root and every module reachable from it through reverse
// dependencies. The first module met on a path anchors the message of every
// module below it. Already-visited nodes are skipped, so a node shared by
// several paths keeps whichever anchor reached it first in uid order.
func (b *BuildResults) propagate(root, text string, links []string, exitCode int) {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	stack := []walkItem{{uid: root}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if b.state.processed[it.uid] {
			continue
		}
		b.state.processed[it.uid] = true
		b.log.Debug("node broken", "uid", it.uid, "root", root)

		anchor := it.anchor
		if n, ok := b.idx.Node(it.uid); ok && n.IsModule() {
			if anchor == "" {
				b.notify(n, []string{text}, [][]string{links}, exitCode)
				anchor = it.uid
			} else {
				b.notify(n, []string{BrokenByPrefix + b.name(anchor)}, nil, 0)
			}
		}

		// Pushed in reverse so that dependents pop in ascending uid order.
		deps := b.idx.ReverseDeps(it.uid)
		for i := len(deps) - 1; i >= 0; i-- {
			stack = append(stack, walkItem{uid: deps[i], anchor: anchor})
		}
	}
}

// complete reports a successfully built module unless it was already
// reported.
func (b *BuildResults) complete(uid string) {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()

	n, ok := b.idx.Node(uid)
	if !ok || !n.IsModule() {
		return
	}
	b.notify(n, nil, nil, 0)
}

// notify emits one result for n unless one was already emitted. No errors
// marks a success. The caller holds the state lock.
func (b *BuildResults) notify(n *graph.Node, errs []string, links [][]string, exitCode int) {
	if b.state.notified[n.UID] {
		return
	}
	r := report.Result{
		UID:       n.UID,
		Name:      n.Name(),
		Platform:  n.Platform,
		ModuleTag: n.ModuleTag(),
		Errors:    errs,
		Links:     links,
		ExitCode:  exitCode,
	}
	if b.metrics != nil {
		r.Metrics = b.metrics.Lookup(n.UID)
	} else {
		r.Metrics = map[string]float64{}
	}
	b.sink.AddBuildResult(r)
	b.state.notified[n.UID] = true
}

func (b *BuildResults) name(uid string) string {
	if n, ok := b.idx.Node(uid); ok {
		return n.Name()
	}
	return uid
}
