// Package graph provides an immutable index over a build-graph snapshot:
// node lookup by uid, module classification, and the reverse-dependency
// index used to walk from a failed node to everything that depends on it.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrDuplicateNode is returned when two nodes share a uid.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrUnknownDep is returned when a node depends on a uid that is not in the snapshot.
var ErrUnknownDep = errors.New("dependency on unknown node")

// ErrEmptyUID is returned when a node has no uid.
var ErrEmptyUID = errors.New("node has empty uid")

// Options controls how New treats malformed snapshots.
type Options struct {
	// AllowDanglingDeps drops edges to unknown uids instead of failing.
	AllowDanglingDeps bool
}

// Index is a read-only view of a build graph. It is safe for concurrent
// use once New returns.
type Index struct {
	nodes map[string]*Node
	// reverse maps uid → set of uids that directly depend on it.
	reverse  map[string]map[string]bool
	uids     []string
	modules  []string
	dangling int
}

// New indexes the given nodes. Nodes are copied; later changes to the
// input slice do not affect the index.
func New(nodes []Node, opts Options) (*Index, error) {
	idx := &Index{
		nodes:   make(map[string]*Node, len(nodes)),
		reverse: make(map[string]map[string]bool, len(nodes)),
	}
	for i := range nodes {
		n := nodes[i]
		if n.UID == "" {
			return nil, fmt.Errorf("%w (position %d)", ErrEmptyUID, i)
		}
		if _, exists := idx.nodes[n.UID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, n.UID)
		}
		n.Deps = append([]string(nil), n.Deps...)
		if n.Target != nil {
			t := *n.Target
			n.Target = &t
		}
		idx.nodes[n.UID] = &n
	}

	for _, uid := range sortedKeys(idx.nodes) {
		n := idx.nodes[uid]
		kept := n.Deps[:0]
		for _, dep := range n.Deps {
			if _, ok := idx.nodes[dep]; !ok {
				if !opts.AllowDanglingDeps {
					return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownDep, uid, dep)
				}
				idx.dangling++
				continue
			}
			kept = append(kept, dep)
			if idx.reverse[dep] == nil {
				idx.reverse[dep] = make(map[string]bool)
			}
			idx.reverse[dep][uid] = true
		}
		n.Deps = kept
		idx.uids = append(idx.uids, uid)
		if n.IsModule() {
			idx.modules = append(idx.modules, uid)
		}
	}
	return idx, nil
}

// Node returns the node with the given uid. The node is shared by every
// reader of the index and must not be modified.
func (idx *Index) Node(uid string) (*Node, bool) {
	n, ok := idx.nodes[uid]
	return n, ok
}

// Kind returns the kind of the node, or KindUnknown when uid is not indexed.
func (idx *Index) Kind(uid string) Kind {
	n, ok := idx.nodes[uid]
	if !ok {
		return KindUnknown
	}
	return n.Kind()
}

// IsModule reports whether uid names a module node.
func (idx *Index) IsModule(uid string) bool {
	n, ok := idx.nodes[uid]
	return ok && n.IsModule()
}

// ReverseDeps returns the uids that directly depend on uid, sorted
// ascending. It returns nil when nothing depends on uid.
func (idx *Index) ReverseDeps(uid string) []string {
	set := idx.reverse[uid]
	if len(set) == 0 {
		return nil
	}
	return sortedKeys(set)
}

// Deps returns a copy of the direct dependencies of uid in declaration
// order.
func (idx *Index) Deps(uid string) []string {
	n, ok := idx.nodes[uid]
	if !ok {
		return nil
	}
	return slices.Clone(n.Deps)
}

// UIDs returns a copy of every indexed uid, sorted.
func (idx *Index) UIDs() []string {
	return slices.Clone(idx.uids)
}

// Modules returns a copy of the uids of all module nodes, sorted.
func (idx *Index) Modules() []string {
	return slices.Clone(idx.modules)
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int {
	return len(idx.nodes)
}

// Dangling returns how many edges to unknown uids were dropped.
func (idx *Index) Dangling() int {
	return idx.dangling
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
