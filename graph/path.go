package graph

import "github.com/grailbio/base/errors"

// Path is an ordered, non-empty sequence of node ids, together with a
// start offset into its first node's sequence and an end offset into
// its last node's sequence. A path may revisit the same self-loop node
// multiple consecutive times, once per repeat copy.
type Path struct {
	Nodes    []int
	StartOfs int // offset into Nodes[0]'s sequence where the path begins
	EndOfs   int // offset into Nodes[len-1]'s sequence where the path ends (exclusive)
}

// NewPath builds a path and validates node-adjacency.
func NewPath(g *Graph, nodes []int, startOfs, endOfs int) (Path, error) {
	p := Path{Nodes: append([]int(nil), nodes...), StartOfs: startOfs, EndOfs: endOfs}
	if err := p.validate(g); err != nil {
		return Path{}, err
	}
	return p, nil
}

func (p Path) validate(g *Graph) error {
	if len(p.Nodes) == 0 {
		return errors.E("path: must contain at least one node")
	}
	for i := 1; i < len(p.Nodes); i++ {
		u, v := p.Nodes[i-1], p.Nodes[i]
		if u == v {
			if !g.IsSelfLoop(u) {
				return errors.E("path: repeated node", u, "has no self-loop")
			}
			continue
		}
		if !g.HasEdge(u, v) {
			return errors.E("path: nodes", u, "and", v, "are not graph neighbors")
		}
	}
	return nil
}

// visibleLen returns the number of bases of node at position idx in the
// path that are "visible" (i.e. between StartOfs/EndOfs bounds where
// applicable).
func (p Path) visibleLen(g *Graph, idx int) int {
	nodeLen := len(g.NodeSequence(p.Nodes[idx]))
	lo, hi := 0, nodeLen
	if idx == 0 {
		lo = p.StartOfs
	}
	if idx == len(p.Nodes)-1 {
		hi = p.EndOfs
	}
	if hi < lo {
		return 0
	}
	return hi - lo
}

// Length returns the path length in bases: the sum of the visible
// prefixes/suffixes of each visited node.
func (p Path) Length(g *Graph) int {
	total := 0
	for i := range p.Nodes {
		total += p.visibleLen(g, i)
	}
	return total
}

// Sequence concatenates the visible bases of each node the path visits,
// in path order.
func (p Path) Sequence(g *Graph) []byte {
	out := make([]byte, 0, p.Length(g))
	for i, id := range p.Nodes {
		seq := g.NodeSequence(id)
		lo, hi := 0, len(seq)
		if i == 0 {
			lo = p.StartOfs
		}
		if i == len(p.Nodes)-1 {
			hi = p.EndOfs
		}
		if hi > lo {
			out = append(out, seq[lo:hi]...)
		}
	}
	return out
}

// VisitsNode reports whether the path visits node id anywhere.
func (p Path) VisitsNode(id int) bool {
	for _, n := range p.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// VisitsAny reports whether the path visits any node in ids.
func (p Path) VisitsAny(ids []int) bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, n := range p.Nodes {
		if set[n] {
			return true
		}
	}
	return false
}

// CountVisits returns the number of times the path visits node id (the
// number of repeat-motif copies traversed, for a self-loop node).
func (p Path) CountVisits(id int) int {
	c := 0
	for _, n := range p.Nodes {
		if n == id {
			c++
		}
	}
	return c
}
