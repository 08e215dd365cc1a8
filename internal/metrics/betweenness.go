package metrics

import "github.com/papapumpkin/cascade/internal/graph"

// betweenness computes normalized betweenness centrality for all nodes
// using Brandes' algorithm. Edges follow build order (from a dependency to
// its dependents), so a target that sits on many paths from low-level
// libraries to final programs scores high: its failure breaks the most.
//
// Scores are normalized to [0, 1] by the directed-graph factor (n-1)*(n-2).
func betweenness(idx *graph.Index) map[string]float64 {
	uids := idx.UIDs()
	cb := make(map[string]float64, len(uids))
	for _, id := range uids {
		cb[id] = 0
	}

	n := len(uids)
	if n < 3 {
		return cb
	}

	for _, s := range uids {
		stack, sigma, pred := brandesBFS(idx, s)
		brandesAccumulate(s, stack, sigma, pred, cb)
	}

	norm := float64((n - 1) * (n - 2))
	for id := range cb {
		cb[id] /= norm
	}
	return cb
}

// brandesBFS runs the shortest-path phase from source s. It returns the
// visit stack, shortest-path counts, and predecessor lists.
func brandesBFS(idx *graph.Index, s string) ([]string, map[string]float64, map[string][]string) {
	stack := make([]string, 0, idx.Len())
	pred := make(map[string][]string)
	sigma := map[string]float64{s: 1}
	dist := map[string]int{s: 0}

	queue := []string{s}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		stack = append(stack, v)

		for _, w := range idx.ReverseDeps(v) {
			if _, seen := dist[w]; !seen {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				pred[w] = append(pred[w], v)
			}
		}
	}
	return stack, sigma, pred
}

// brandesAccumulate back-propagates pair dependencies into cb.
func brandesAccumulate(s string, stack []string, sigma map[string]float64, pred map[string][]string, cb map[string]float64) {
	delta := make(map[string]float64, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		w := stack[i]
		for _, v := range pred[w] {
			delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
		}
		if w != s {
			cb[w] += delta[w]
		}
	}
}
