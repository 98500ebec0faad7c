package graphx

import (
	"sort"

	"github.com/hasan-ston/catalogx/internal/catalog"
)

// Rank is one row of the ranks table.
type Rank struct {
	Course    catalog.CourseCode
	Level     int
	InDegree  int
	OutDegree int
	PageRank  float64
	SCCID     int
	SCCSize   int
}

// TopoRow is one row of the flattened topological order table.
type TopoRow struct {
	Course catalog.CourseCode
	Order  int
}

// Analysis bundles every derived quantity the ranks/topo tables need.
type Analysis struct {
	Ranks []Rank
	Topo  []TopoRow
}

// Analyze runs the full pipeline: SCC condensation, longest-path levels,
// centrality, and topological flattening.
func Analyze(g *Graph) Analysis {
	nodes := g.Nodes()
	sccOf, sccs := tarjanSCC(g, nodes)
	condOut, condIn := buildCondensation(g, sccOf, len(sccs))
	levels := sccLevels(condOut, condIn, len(sccs))
	pr := pageRank(g, nodes)
	sccTopoOrder := topoSortCondensation(condOut, len(sccs))

	ranks := make([]Rank, 0, len(nodes))
	for _, n := range nodes {
		id := sccOf[n]
		ranks = append(ranks, Rank{
			Course:    n,
			Level:     levels[id],
			InDegree:  g.InDegree(n),
			OutDegree: g.OutDegree(n),
			PageRank:  pr[n],
			SCCID:     id,
			SCCSize:   len(sccs[id]),
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.PageRank != b.PageRank {
			return a.PageRank > b.PageRank
		}
		return a.Course < b.Course
	})

	var topo []TopoRow
	order := 0
	for _, sccID := range sccTopoOrder {
		members := append([]catalog.CourseCode(nil), sccs[sccID]...)
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		for _, m := range members {
			topo = append(topo, TopoRow{Course: m, Order: order})
			order++
		}
	}

	return Analysis{Ranks: ranks, Topo: topo}
}

// tarjanSCC computes strongly connected components, returning a node ->
// SCC-index map and the list of SCCs (each a slice of member codes),
// indexed 0..k in discovery order.
func tarjanSCC(g *Graph, nodes []catalog.CourseCode) (map[catalog.CourseCode]int, [][]catalog.CourseCode) {
	index := 0
	indices := make(map[catalog.CourseCode]int)
	lowlink := make(map[catalog.CourseCode]int)
	onStack := make(map[catalog.CourseCode]bool)
	var stack []catalog.CourseCode
	sccOf := make(map[catalog.CourseCode]int)
	var sccs [][]catalog.CourseCode

	var strongconnect func(v catalog.CourseCode)
	strongconnect = func(v catalog.CourseCode) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.OutNeighbors(v) {
			if _, seen := indices[w]; !seen {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var comp []catalog.CourseCode
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
			id := len(sccs)
			sccs = append(sccs, comp)
			for _, m := range comp {
				sccOf[m] = id
			}
		}
	}

	for _, v := range nodes {
		if _, seen := indices[v]; !seen {
			strongconnect(v)
		}
	}
	return sccOf, sccs
}

// buildCondensation builds the SCC-index DAG: edge i->j exists iff some
// G edge crosses from an SCC-i member to an SCC-j member with i != j.
func buildCondensation(g *Graph, sccOf map[catalog.CourseCode]int, k int) (out, in []map[int]bool) {
	out = make([]map[int]bool, k)
	in = make([]map[int]bool, k)
	for i := range out {
		out[i] = make(map[int]bool)
		in[i] = make(map[int]bool)
	}
	for node := range sccOf {
		i := sccOf[node]
		for _, nb := range g.OutNeighbors(node) {
			j := sccOf[nb]
			if i != j {
				out[i][j] = true
				in[j][i] = true
			}
		}
	}
	return out, in
}

// topoSortCondensation returns a topological order of the SCC indices.
// The condensation is always acyclic.
func topoSortCondensation(out []map[int]bool, k int) []int {
	indeg := make([]int, k)
	for i := 0; i < k; i++ {
		for j := range out[i] {
			indeg[j]++
		}
	}

	var queue []int
	for i := 0; i < k; i++ {
		if indeg[i] == 0 {
			queue = append(queue, i)
		}
	}
	sort.Ints(queue)

	var order []int
	for len(queue) > 0 {
		sort.Ints(queue)
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		var next []int
		for j := range out[v] {
			indeg[j]--
			if indeg[j] == 0 {
				next = append(next, j)
			}
		}
		sort.Ints(next)
		queue = append(queue, next...)
	}
	return order
}

// sccLevels computes longest-path depth in the condensation: sources
// (no predecessors) are level 0; every other SCC is one more than the
// max level of its condensation predecessors.
func sccLevels(out, in []map[int]bool, k int) []int {
	order := topoSortCondensation(out, k)
	levels := make([]int, k)
	for _, v := range order {
		maxPred := -1
		for p := range in[v] {
			if levels[p] > maxPred {
				maxPred = levels[p]
			}
		}
		levels[v] = maxPred + 1
	}
	return levels
}

const (
	dampingFactor  = 0.85
	maxIterations  = 100
	convergenceEps = 1e-9
)

// pageRank computes PageRank over g with the standard damping factor,
// falling back to 0.0 for every node on numerical failure (a NaN rank).
// An empty graph yields an empty map.
func pageRank(g *Graph, nodes []catalog.CourseCode) map[catalog.CourseCode]float64 {
	n := len(nodes)
	ranks := make(map[catalog.CourseCode]float64, n)
	if n == 0 {
		return ranks
	}
	for _, v := range nodes {
		ranks[v] = 1.0 / float64(n)
	}

	for iter := 0; iter < maxIterations; iter++ {
		next := make(map[catalog.CourseCode]float64, n)
		danglingSum := 0.0
		for _, v := range nodes {
			if g.OutDegree(v) == 0 {
				danglingSum += ranks[v]
			}
		}
		base := (1-dampingFactor)/float64(n) + dampingFactor*danglingSum/float64(n)
		for _, v := range nodes {
			next[v] = base
		}
		for _, v := range nodes {
			outDeg := g.OutDegree(v)
			if outDeg == 0 {
				continue
			}
			share := dampingFactor * ranks[v] / float64(outDeg)
			for _, w := range g.OutNeighbors(v) {
				next[w] += share
			}
		}

		delta := 0.0
		for _, v := range nodes {
			d := next[v] - ranks[v]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		ranks = next
		if delta < convergenceEps {
			break
		}
	}

	for _, v := range nodes {
		r := ranks[v]
		if r != r { // NaN check: numerical failure
			for _, u := range nodes {
				ranks[u] = 0.0
			}
			return ranks
		}
	}
	return ranks
}
