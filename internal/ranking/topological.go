package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/mr1hm/go-evac-priority/internal/geo"
	"github.com/mr1hm/go-evac-priority/internal/models"
)

const noAnchor = -1

// dependencyGraph links every vulnerable family to its nearest non-vulnerable
// anchor. Nodes are positions in the scored slice.
type dependencyGraph struct {
	dependents [][]int // anchor -> vulnerable families waiting on it, input order
	anchor     []int   // vulnerable family -> anchor, noAnchor if none
	inDegree   []int
}

func newDependencyGraph(n int) *dependencyGraph {
	g := &dependencyGraph{
		dependents: make([][]int, n),
		anchor:     make([]int, n),
		inDegree:   make([]int, n),
	}
	for i := range g.anchor {
		g.anchor[i] = noAnchor
	}
	return g
}

func (g *dependencyGraph) addEdge(from, to int) {
	g.dependents[from] = append(g.dependents[from], to)
	g.anchor[to] = from
	g.inDegree[to]++
}

// buildDependencyGraph gives each vulnerable family at most one incoming edge,
// from the nearest non-vulnerable family. Equal distances keep the earlier anchor.
func buildDependencyGraph(scored []ScoredFamily) *dependencyGraph {
	g := newDependencyGraph(len(scored))

	var anchors []int
	for i := range scored {
		if !scored[i].Vulnerable {
			anchors = append(anchors, i)
		}
	}

	for v := range scored {
		if !scored[v].Vulnerable || len(anchors) == 0 {
			continue
		}

		from := scored[v].Family.Location.Point()
		best := anchors[0]
		bestDist := geo.Distance(from, scored[best].Family.Location.Point())
		for _, n := range anchors[1:] {
			if d := geo.Distance(from, scored[n].Family.Location.Point()); d < bestDist {
				best, bestDist = n, d
			}
		}
		g.addEdge(best, v)
	}

	return g
}

// byProximity orders node positions by descending proximity score, then by
// input position.
func byProximity(scored []ScoredFamily) func(a, b int) int {
	return func(a, b int) int {
		if c := cmp.Compare(scored[b].ProximityScore, scored[a].ProximityScore); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	}
}

// orderTopologically runs Kahn's algorithm with a ready queue kept sorted by
// proximity. ok is false when some node was never released, i.e. the graph
// has a cycle.
func orderTopologically(g *dependencyGraph, scored []ScoredFamily) (order []int, ok bool) {
	inDegree := slices.Clone(g.inDegree)
	less := byProximity(scored)

	var ready []int
	for i, d := range inDegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	slices.SortFunc(ready, less)

	order = make([]int, 0, len(scored))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		for _, dep := range g.dependents[next] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		slices.SortFunc(ready, less)
	}

	return order, len(order) == len(scored)
}

// RankByTopologicalDependency orders families so that every anchor precedes
// the vulnerable families depending on it; among families that are free to
// go, the one closest to the disaster goes first.
func (r *Ranker) RankByTopologicalDependency(disaster models.Coordinates, families []models.FamilyRecord) (*TopologicalResult, error) {
	start := time.Now()

	scored, excluded, err := r.prepare(disaster, families)
	if err != nil {
		r.observe(StrategyTopological, len(families), start, err)
		return nil, err
	}

	g := buildDependencyGraph(scored)
	res := r.assemble(g, scored)
	res.Excluded = excluded

	r.observe(StrategyTopological, len(scored), start, nil)
	return res, nil
}

// assemble orders the graph, falling back to plain proximity order if the
// ordering is incomplete, and annotates each family with its edges.
func (r *Ranker) assemble(g *dependencyGraph, scored []ScoredFamily) *TopologicalResult {
	order, ok := orderTopologically(g, scored)
	if !ok {
		r.log.Warn("dependency graph invariant violated, falling back to proximity order",
			"family_count", len(scored),
			"ordered", len(order),
		)
		if r.opts.Observer != nil {
			r.opts.Observer.ObserveInvariantViolation(string(StrategyTopological))
		}

		order = make([]int, len(scored))
		for i := range order {
			order[i] = i
		}
		slices.SortFunc(order, byProximity(scored))
	}

	out := make([]DependentFamily, len(order))
	for rank, idx := range order {
		df := DependentFamily{ScoredFamily: scored[idx]}
		df.Rank = rank + 1
		if a := g.anchor[idx]; a != noAnchor {
			df.DependsOn = scored[a].Family.ID
		}
		for _, dep := range g.dependents[idx] {
			df.Dependents = append(df.Dependents, scored[dep].Family.ID)
		}
		out[rank] = df
	}

	return &TopologicalResult{Families: out, InvariantViolation: !ok}
}
