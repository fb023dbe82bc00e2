package systems

import (
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Network is the customers' social graph. Node IDs are customer indices.
type Network struct {
	graph     *simple.UndirectedGraph
	neighbors [][]int64 // sorted, built once after rewiring
}

// BuildNetwork creates a Watts-Strogatz small world: a ring lattice where
// every node links to degree/2 neighbours on each side, after which each
// lattice edge is rewired to a random non-neighbour with probability rewire.
// degree must be even and below n.
func BuildNetwork(n, degree int, rewire float64, rng *rand.Rand) *Network {
	g := simple.NewUndirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}

	half := degree / 2
	for i := 0; i < n; i++ {
		for j := 1; j <= half; j++ {
			k := (i + j) % n
			if k != i && !g.HasEdgeBetween(int64(i), int64(k)) {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(k)})
			}
		}
	}

	for j := 1; j <= half; j++ {
		for i := 0; i < n; i++ {
			k := (i + j) % n
			if rng.Float64() >= rewire {
				continue
			}
			if g.From(int64(i)).Len() >= n-1 || !g.HasEdgeBetween(int64(i), int64(k)) {
				continue
			}
			m := rng.Intn(n)
			for m == i || g.HasEdgeBetween(int64(i), int64(m)) {
				m = rng.Intn(n)
			}
			g.RemoveEdge(int64(i), int64(k))
			g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(m)})
		}
	}

	nw := &Network{graph: g, neighbors: make([][]int64, n)}
	for i := 0; i < n; i++ {
		nodes := graph.NodesOf(g.From(int64(i)))
		ids := make([]int64, len(nodes))
		for x, node := range nodes {
			ids[x] = node.ID()
		}
		slices.Sort(ids)
		nw.neighbors[i] = ids
	}
	return nw
}

// Graph returns the underlying gonum graph.
func (nw *Network) Graph() *simple.UndirectedGraph { return nw.graph }

// Len returns the number of customers.
func (nw *Network) Len() int { return len(nw.neighbors) }

// Neighbors returns the sorted neighbour IDs of node.
func (nw *Network) Neighbors(node int64) []int64 { return nw.neighbors[node] }

// MeanDegree returns the average number of neighbours.
func (nw *Network) MeanDegree() float64 {
	if len(nw.neighbors) == 0 {
		return 0
	}
	total := 0
	for _, ns := range nw.neighbors {
		total += len(ns)
	}
	return float64(total) / float64(len(nw.neighbors))
}

// Components returns the number of connected components.
func (nw *Network) Components() int {
	return len(topo.ConnectedComponents(nw.graph))
}
