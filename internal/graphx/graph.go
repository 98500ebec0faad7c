// Package graphx builds the prerequisite DAG from the crawl's edge set
// and derives SCC condensation, longest-path levels, centrality, and a
// flattened topological order.
package graphx

import (
	"sort"

	"github.com/hasan-ston/catalogx/internal/catalog"
)

// Graph is a directed graph of course codes. Edge p -> c means p is a
// prerequisite of c.
type Graph struct {
	nodes map[catalog.CourseCode]bool
	out   map[catalog.CourseCode]map[catalog.CourseCode]bool
	in    map[catalog.CourseCode]map[catalog.CourseCode]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[catalog.CourseCode]bool),
		out:   make(map[catalog.CourseCode]map[catalog.CourseCode]bool),
		in:    make(map[catalog.CourseCode]map[catalog.CourseCode]bool),
	}
}

// AddNode registers a node with no edges, if not already present.
func (g *Graph) AddNode(c catalog.CourseCode) {
	if c.IsLevel7() {
		return
	}
	if !g.nodes[c] {
		g.nodes[c] = true
		g.out[c] = make(map[catalog.CourseCode]bool)
		g.in[c] = make(map[catalog.CourseCode]bool)
	}
}

// AddEdge adds prereq -> course. Self-loops and level-7 endpoints are
// rejected at insertion time; the edge set is implicitly deduplicated by
// map semantics.
func (g *Graph) AddEdge(course, prereq catalog.CourseCode) {
	if course == prereq || course == "" || prereq == "" {
		return
	}
	if course.IsLevel7() || prereq.IsLevel7() {
		return
	}
	g.AddNode(course)
	g.AddNode(prereq)
	g.out[prereq][course] = true
	g.in[course][prereq] = true
}

// BuildFromEdges constructs a Graph from the final, deduplicated edge set
// accumulated during the crawl.
func BuildFromEdges(edges []catalog.Edge) *Graph {
	g := New()
	for _, e := range edges {
		g.AddEdge(e.Course, e.Prereq)
	}
	return g
}

// Nodes returns all node codes, sorted for deterministic iteration.
func (g *Graph) Nodes() []catalog.CourseCode {
	out := make([]catalog.CourseCode, 0, len(g.nodes))
	for c := range g.nodes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OutNeighbors returns the sorted successors of c.
func (g *Graph) OutNeighbors(c catalog.CourseCode) []catalog.CourseCode {
	return sortedKeys(g.out[c])
}

// InNeighbors returns the sorted predecessors of c.
func (g *Graph) InNeighbors(c catalog.CourseCode) []catalog.CourseCode {
	return sortedKeys(g.in[c])
}

// InDegree and OutDegree report edge counts for ranking.
func (g *Graph) InDegree(c catalog.CourseCode) int  { return len(g.in[c]) }
func (g *Graph) OutDegree(c catalog.CourseCode) int { return len(g.out[c]) }

func sortedKeys(m map[catalog.CourseCode]bool) []catalog.CourseCode {
	out := make([]catalog.CourseCode, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IncompatGraph is an undirected graph of conflict pairs, used to derive
// incompatibility connected components.
type IncompatGraph struct {
	adj map[catalog.CourseCode]map[catalog.CourseCode]bool
}

// BuildIncompatGraph constructs an undirected graph from the conflict
// pair set, excluding level-7 endpoints.
func BuildIncompatGraph(pairs []catalog.ConflictPair) *IncompatGraph {
	ig := &IncompatGraph{adj: make(map[catalog.CourseCode]map[catalog.CourseCode]bool)}
	add := func(a, b catalog.CourseCode) {
		if ig.adj[a] == nil {
			ig.adj[a] = make(map[catalog.CourseCode]bool)
		}
		ig.adj[a][b] = true
	}
	for _, p := range pairs {
		if p.Min.IsLevel7() || p.Max.IsLevel7() {
			continue
		}
		add(p.Min, p.Max)
		add(p.Max, p.Min)
	}
	return ig
}

// ConnectedComponents assigns each node a dense component index, 0-based,
// in order of first encounter over sorted node order.
func (ig *IncompatGraph) ConnectedComponents() map[catalog.CourseCode]int {
	nodes := make([]catalog.CourseCode, 0, len(ig.adj))
	for n := range ig.adj {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	comp := make(map[catalog.CourseCode]int)
	next := 0
	for _, start := range nodes {
		if _, ok := comp[start]; ok {
			continue
		}
		stack := []catalog.CourseCode{start}
		comp[start] = next
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for nb := range ig.adj[cur] {
				if _, ok := comp[nb]; !ok {
					comp[nb] = next
					stack = append(stack, nb)
				}
			}
		}
		next++
	}
	return comp
}
