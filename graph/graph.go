// Package graph implements the locus sequence graph: a
// directed graph of typed nodes, each carrying a fragment of reference
// DNA and optional reference-coordinate provenance. Repeats are modeled
// as self-loops; these are the only cycles the graph ever contains.
//
// The adjacency structure is backed by gonum/graph/simple; self-loops,
// which simple.DirectedGraph rejects, are tracked alongside it, so the
// reachability and cycle checks walk this package's own adjacency
// answers.
package graph

import (
	"fmt"
	"sort"

	"github.com/grailbio/base/errors"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// RefInterval is a half-open, 0-based reference interval [Start, End) on
// a named contig.
type RefInterval struct {
	Contig string
	Start  int64
	End    int64
}

// Len returns the number of reference bases the interval covers.
func (r RefInterval) Len() int64 { return r.End - r.Start }

// Node is one node of the sequence graph. Nodes are immutable once their
// sequence has been set; id ordering is dense and 0-based, and is the
// graph's sole mechanism for distinguishing the left flank (id 0) from
// the right flank (the last id).
type Node struct {
	id  int64
	seq []byte
	ref *RefInterval
}

// ID implements gonum/graph.Node.
func (n *Node) ID() int64 { return n.id }

// Sequence returns the node's DNA sequence (uppercase IUPAC).
func (n *Node) Sequence() []byte { return n.seq }

// RefInterval returns the node's reference interval, or nil if the node
// does not correspond to reference sequence (e.g. an inserted-allele
// node with no reference counterpart).
func (n *Node) RefInterval() *RefInterval { return n.ref }

// Graph is a sequence graph: a fixed set of nodes (0..N-1), predecessor
// and successor adjacency, with a self-loop as the sole representation
// of a repeating motif.
type Graph struct {
	g     *simple.DirectedGraph
	nodes []*Node // dense, indexed by id
	// gonum's simple.DirectedGraph rejects self-loop edges, so repeat
	// markers are tracked separately and folded back into the adjacency
	// answers.
	selfLoop []bool
}

// New creates a graph with exactly n nodes (ids 0..n-1), no edges, and no
// sequence assigned yet. It is undefined behavior to call any other
// graph method with a node id outside [0, n).
func New(n int) *Graph {
	if n <= 0 {
		panic("graph: node count must be positive")
	}
	g := &Graph{g: simple.NewDirectedGraph(), nodes: make([]*Node, n), selfLoop: make([]bool, n)}
	for i := 0; i < n; i++ {
		nd := &Node{id: int64(i)}
		g.nodes[i] = nd
		g.g.AddNode(nd)
	}
	return g
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) mustNode(id int) *Node {
	if id < 0 || id >= len(g.nodes) {
		panic(fmt.Sprintf("graph: invalid node id %d", id))
	}
	return g.nodes[id]
}

// SetNodeSequence assigns the DNA sequence for node u. Sequences should
// be set once, before the graph is shared across goroutines.
func (g *Graph) SetNodeSequence(u int, s string) {
	g.mustNode(u).seq = []byte(s)
}

// SetNodeRefInterval attaches a reference interval to node u.
func (g *Graph) SetNodeRefInterval(u int, ref RefInterval) {
	r := ref
	g.mustNode(u).ref = &r
}

// NodeSequence returns node u's sequence.
func (g *Graph) NodeSequence(u int) []byte { return g.mustNode(u).Sequence() }

// Node returns node u.
func (g *Graph) Node(u int) *Node { return g.mustNode(u) }

// AddEdge adds a directed edge u->v. Self-loops (u==v) are permitted and
// are the sole mechanism for representing a repeat motif.
func (g *Graph) AddEdge(u, v int) {
	fromNode, toNode := g.mustNode(u), g.mustNode(v)
	if u == v {
		g.selfLoop[u] = true
		return
	}
	g.g.SetEdge(simple.Edge{F: fromNode, T: toNode})
}

// HasEdge reports whether there's an edge u->v.
func (g *Graph) HasEdge(u, v int) bool {
	if u == v {
		return g.selfLoop[g.mustNode(u).id]
	}
	return g.g.HasEdgeFromTo(int64(u), int64(v))
}

// Successors returns the node ids u has an outgoing edge to (u itself
// included for a self-loop), sorted ascending for determinism.
func (g *Graph) Successors(u int) []int {
	return g.withSelfLoop(u, sortedIDs(g.g.From(int64(u))))
}

// Predecessors returns the node ids with an outgoing edge to u (u
// itself included for a self-loop), sorted ascending for determinism.
func (g *Graph) Predecessors(u int) []int {
	return g.withSelfLoop(u, sortedIDs(g.g.To(int64(u))))
}

func (g *Graph) withSelfLoop(u int, ids []int) []int {
	if !g.selfLoop[g.mustNode(u).id] {
		return ids
	}
	at := sort.SearchInts(ids, u)
	ids = append(ids, 0)
	copy(ids[at+1:], ids[at:])
	ids[at] = u
	return ids
}

// IsSelfLoop reports whether u has a self-loop, the graph's sole repeat
// marker.
func (g *Graph) IsSelfLoop(u int) bool {
	return g.selfLoop[g.mustNode(u).id]
}

// LeftFlank returns the id of the left-flank node (always 0).
func (g *Graph) LeftFlank() int { return 0 }

// RightFlank returns the id of the right-flank node (always NodeCount()-1).
func (g *Graph) RightFlank() int { return len(g.nodes) - 1 }

func sortedIDs(it gonumgraph.Nodes) []int {
	var ids []int
	for it.Next() {
		ids = append(ids, int(it.Node().ID()))
	}
	sort.Ints(ids)
	return ids
}

// CheckInvariants verifies that every node is reachable
// from the left flank and reaches the right flank, and the only cycles
// are node self-loops.
func (g *Graph) CheckInvariants() error {
	n := g.NodeCount()
	reachFromLeft := g.reachableFrom(g.LeftFlank())
	reachesRight := g.reachesTo(g.RightFlank())
	for i := 0; i < n; i++ {
		if !reachFromLeft[i] {
			return errors.E(fmt.Sprintf("node %d is not reachable from the left flank", i))
		}
		if !reachesRight[i] {
			return errors.E(fmt.Sprintf("node %d cannot reach the right flank", i))
		}
	}
	if err := g.checkOnlySelfLoopCycles(); err != nil {
		return err
	}
	return nil
}

func (g *Graph) reachableFrom(start int) []bool {
	seen := make([]bool, g.NodeCount())
	stack := []int{start}
	seen[start] = true
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, v := range g.Successors(u) {
			if !seen[v] {
				seen[v] = true
				stack = append(stack, v)
			}
		}
	}
	return seen
}

func (g *Graph) reachesTo(target int) []bool {
	seen := make([]bool, g.NodeCount())
	stack := []int{target}
	seen[target] = true
	for len(stack) > 0 {
		u := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, v := range g.Predecessors(u) {
			if !seen[v] {
				seen[v] = true
				stack = append(stack, v)
			}
		}
	}
	return seen
}

// checkOnlySelfLoopCycles performs a DFS-based cycle check that allows
// self-loops but rejects any longer cycle.
func (g *Graph) checkOnlySelfLoopCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, g.NodeCount())
	var visit func(u int) error
	visit = func(u int) error {
		color[u] = gray
		for _, v := range g.Successors(u) {
			if v == u {
				continue // self-loop: permitted
			}
			switch color[v] {
			case gray:
				return errors.E(fmt.Sprintf("cycle detected through node %d -> %d", u, v))
			case white:
				if err := visit(v); err != nil {
					return err
				}
			}
		}
		color[u] = black
		return nil
	}
	for u := 0; u < g.NodeCount(); u++ {
		if color[u] == white {
			if err := visit(u); err != nil {
				return err
			}
		}
	}
	return nil
}
