package align

import (
	"fmt"
	"strings"

	"github.com/grailbio/strgraph/graph"
)

// DefaultPadding is the seed extension padding (default 10bp). Align
// does not extend seeds, so nothing in this package reads it.
const DefaultPadding = 10

// DefaultSeedAffixTrim is the seed-affix trim length (default 14). Align
// does not use seeds, so nothing in this package reads it.
const DefaultSeedAffixTrim = 14

// Mode names the two aligner variants. Both return the same contract (a
// tied-for-top-score list of graph alignments, or empty for
// "unalignable"). Align ignores the mode: both names run the same
// unrolled-graph DP (unrolled.align), which replaces each self-loop
// with a bounded chain of virtual node copies and aligns through the
// resulting DAG.
type Mode int

const (
	ModeDAG Mode = iota
	ModePath
)

// Aligner aligns query reads against one locus graph. Align runs a
// graph-generalized Gotoh local alignment with affine gaps over every
// cell of the unrolled graph (unrolled.align); it does no k-mer seeding,
// and Index, though built, is not consulted by Align. Callers pass the
// result through Softclip to trim uncertain flanks.
type Aligner struct {
	Graph             *graph.Graph
	Index             *KmerIndex
	MaxCopiesOverride int // 0 => derive from query length
}

// NewAligner builds an Aligner over g, indexing k-mers with the
// seeding default (k=14).
func NewAligner(g *graph.Graph) *Aligner {
	return &Aligner{Graph: g, Index: BuildKmerIndex(g, 14)}
}

// Align returns every graph alignment tied for the top integer score
// under the default scoring scheme, or nil if query does not align
// anywhere in the graph. mode is accepted for interface symmetry with
// the two named aligner variants; see the Mode doc comment.
func (al *Aligner) Align(query []byte, mode Mode) []GraphAlignment {
	if len(query) == 0 {
		return nil
	}
	maxCopies := al.MaxCopiesOverride
	if maxCopies == 0 {
		maxCopies = maxMotifCopies(al.Graph, len(query))
	}
	u := unroll(al.Graph, maxCopies)
	tied := u.align(query)
	if len(tied) == 0 {
		return nil
	}
	// Distinct winning cells in the unrolled DAG can describe the same
	// placement (a pure in-repeat read fits at any copy offset), so the
	// tied set is deduplicated on its rendered form.
	seen := make(map[string]bool, len(tied))
	out := make([]GraphAlignment, 0, len(tied))
	for _, b := range tied {
		ga := b.toGraphAlignment(query)
		key := alignmentKey(ga)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ga)
	}
	return out
}

func alignmentKey(a GraphAlignment) string {
	var sb strings.Builder
	for _, na := range a.Nodes {
		fmt.Fprintf(&sb, "%d@%d[", na.Node, na.StartOfs)
		for _, op := range na.Ops {
			fmt.Fprintf(&sb, "%d%s", op.Len, op.Kind)
		}
		sb.WriteByte(']')
	}
	return sb.String()
}

// maxMotifCopies bounds self-loop unrolling: enough repeat copies that
// a read entirely inside the repeat could still be fully explained,
// plus slack.
func maxMotifCopies(g *graph.Graph, queryLen int) int {
	maxCopies := 4
	for n := 0; n < g.NodeCount(); n++ {
		if !g.IsSelfLoop(n) {
			continue
		}
		motifLen := len(g.NodeSequence(n))
		if motifLen == 0 {
			continue
		}
		c := queryLen/motifLen + 2
		if c > maxCopies {
			maxCopies = c
		}
	}
	if maxCopies > 600 {
		maxCopies = 600
	}
	return maxCopies
}

// virtualNode is one copy of an original graph node in the unrolled DAG.
type virtualNode struct {
	orig int
	copy int // 0-based repeat-copy index (always 0 for non-self-loop nodes)
}

// unrolled is a bounded acyclic expansion of a locus graph: every
// self-loop node is replicated maxCopies times and chained copy(i) ->
// copy(i+1); non-loop structure is preserved as-is. Because the
// original graph's only cycles are node self-loops, this expansion is guaranteed acyclic.
type unrolled struct {
	g         *graph.Graph
	maxCopies int
	nodes     []virtualNode   // topological order
	index     map[virtualNode]int // virtualNode -> index into nodes
	preds     [][]int         // predecessor indices per node index
}

func unroll(g *graph.Graph, maxCopies int) *unrolled {
	u := &unrolled{g: g, maxCopies: maxCopies, index: make(map[virtualNode]int)}
	add := func(vn virtualNode) int {
		if idx, ok := u.index[vn]; ok {
			return idx
		}
		idx := len(u.nodes)
		u.nodes = append(u.nodes, vn)
		u.index[vn] = idx
		u.preds = append(u.preds, nil)
		return idx
	}
	// visit original nodes in id order: edges in a compiled locus graph
	// always point from a lower-context atom to a later one except
	// self-loops, so id order is already topological.
	for orig := 0; orig < g.NodeCount(); orig++ {
		copies := 1
		if g.IsSelfLoop(orig) {
			copies = maxCopies
		}
		for c := 0; c < copies; c++ {
			add(virtualNode{orig: orig, copy: c})
		}
	}
	// wire predecessor links.
	vnIdx := func(orig, copy int) (int, bool) {
		idx, ok := u.index[virtualNode{orig: orig, copy: copy}]
		return idx, ok
	}
	for orig := 0; orig < g.NodeCount(); orig++ {
		copies := 1
		if g.IsSelfLoop(orig) {
			copies = maxCopies
		}
		for c := 0; c < copies; c++ {
			idx, _ := vnIdx(orig, c)
			if c > 0 {
				if p, ok := vnIdx(orig, c-1); ok {
					u.preds[idx] = append(u.preds[idx], p)
				}
				continue // internal repeat copies have exactly one predecessor
			}
			for _, pred := range g.Predecessors(orig) {
				if pred == orig {
					continue // self-loop handled by the copy chain above
				}
				pc := 1
				if g.IsSelfLoop(pred) {
					pc = maxCopies
				}
				if p, ok := vnIdx(pred, pc-1); ok {
					u.preds[idx] = append(u.preds[idx], p)
				}
			}
		}
	}
	return u
}

func (u *unrolled) seq(idx int) []byte {
	vn := u.nodes[idx]
	return u.g.NodeSequence(vn.orig)
}

// cellState is the Gotoh affine-gap triple (diag/ref-gap/query-gap)
// best score at one DP cell, each floored at 0 for local alignment.
type cellState struct {
	m, d, iq int
}

func best3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// traceKind tags how a cell's best score was reached, for backtracking.
type traceKind int

const (
	traceNone traceKind = iota
	traceDiagMatch
	traceDiagMismatch
	traceUp   // reference-only advance (deletion)
	traceLeft // query-only advance (insertion)
	traceZero // local-alignment restart
)

type traceCell struct {
	kind      traceKind
	fromNode  int // predecessor virtual-node index, when crossing a node boundary
	fromState int // 0=m,1=d,2=iq in the predecessor's border column
}

// alignResult is the winning cell found during DP: which virtual node,
// which (k, i) position, and its score.
type alignResult struct {
	node  int
	k, i  int
	score int
}

// maxTiedAlignments bounds how many score-tied winning cells are
// retained for backtracking; ties beyond this deterministic prefix
// (cells are scanned in topological node order) are dropped.
const maxTiedAlignments = 8

// align runs the graph-generalized Gotoh local alignment DP and
// reconstructs every graph alignment tied for the top score, in the
// deterministic order their winning cells were reached.
func (u *unrolled) align(query []byte) []*bestAlignment {
	n := len(u.nodes)
	qlen := len(query)

	// border[i] holds the (m,d,iq) triple at k = len(node) for the
	// previous node in topological order, i.e. what successors inherit
	// at their own k=0 column.
	borders := make([][]cellState, n)
	traces := make([][][]traceCell, n) // per node: [k+1][i+1]

	bestScore := 0
	var wins []alignResult

	for idx := 0; idx < n; idx++ {
		seq := u.seq(idx)
		L := len(seq)
		table := make([][]cellState, L+1)
		tr := make([][]traceCell, L+1)
		for k := range table {
			table[k] = make([]cellState, qlen+1)
			tr[k] = make([]traceCell, qlen+1)
		}
		// k=0 column: inherited from predecessors' border rows (max over
		// predecessors), or zero if this is a true source node.
		for i := 0; i <= qlen; i++ {
			var best cellState
			var bestPred = -1
			for _, p := range u.preds[idx] {
				pb := borders[p][i]
				if bestPred == -1 || better(pb, best) {
					best, bestPred = pb, p
				}
			}
			table[0][i] = best
			tr[0][i] = traceCell{kind: traceNone, fromNode: bestPred, fromState: -1}
		}
		for k := 1; k <= L; k++ {
			for i := 0; i <= qlen; i++ {
				var cs cellState
				var ct traceCell
				// diagonal: match/mismatch, needs i>0
				if i > 0 {
					prevBest := maxOfState(table[k-1][i-1])
					qb, rb := query[i-1], seq[k-1]
					var sc int
					var kind traceKind
					if baseEq(qb, rb) {
						sc = prevBest + MatchScore
						kind = traceDiagMatch
					} else {
						sc = prevBest + MismatchScore
						kind = traceDiagMismatch
					}
					if sc > cs.m {
						cs.m = sc
						ct = traceCell{kind: kind}
					}
				}
				// reference-only advance (deletion): k-1 -> k, i unchanged
				openD := table[k-1][i].m + GapOpen + GapExtend
				extD := table[k-1][i].d + GapExtend
				cs.d = best3(openD, extD, 0)
				// query-only advance (insertion): i-1 -> i, k unchanged
				if i > 0 {
					openI := table[k][i-1].m + GapOpen + GapExtend
					extI := table[k][i-1].iq + GapExtend
					cs.iq = best3(openI, extI, 0)
				}
				if cs.m < 0 {
					cs.m = 0
				}
				// Pick the trace kind matching whichever of (m, d, iq) is the
				// overall winner at this cell, preferring match/mismatch on ties.
				switch {
				case cs.m > 0 && cs.m >= cs.d && cs.m >= cs.iq:
					// ct already set to the diagonal kind above.
				case cs.d > 0 && cs.d >= cs.iq:
					ct = traceCell{kind: traceUp}
				case cs.iq > 0:
					ct = traceCell{kind: traceLeft}
				default:
					ct = traceCell{kind: traceZero}
				}
				table[k][i] = cs
				tr[k][i] = ct

				sc := maxOfState(cs)
				if sc > bestScore {
					bestScore = sc
					wins = append(wins[:0], alignResult{node: idx, k: k, i: i, score: sc})
				} else if sc > 0 && sc == bestScore && len(wins) < maxTiedAlignments {
					wins = append(wins, alignResult{node: idx, k: k, i: i, score: sc})
				}
			}
		}
		borders[idx] = table[L]
		traces[idx] = tr
	}

	out := make([]*bestAlignment, 0, len(wins))
	for _, w := range wins {
		if b := u.backtrack(query, borders, traces, w); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func better(a, b cellState) bool { return maxOfState(a) > maxOfState(b) }

func maxOfState(c cellState) int { return best3(c.m, c.d, c.iq) }

func baseEq(a, b byte) bool {
	if a == b {
		return true
	}
	return iupacCompatible(a, b)
}

// bestAlignment is the reconstructed winning alignment, grouped by
// virtual node, ready for conversion into a GraphAlignment.
type bestAlignment struct {
	score int
	segs  []segAlign
}

type segAlign struct {
	node     int // original node id
	startOfs int
	ops      []Op
}

func (b *bestAlignment) toGraphAlignment(query []byte) GraphAlignment {
	nodes := make([]NodeAlignment, len(b.segs))
	for i, s := range b.segs {
		nodes[i] = NodeAlignment{Node: s.node, StartOfs: s.startOfs, Ops: s.ops}
	}
	return GraphAlignment{Query: query, Nodes: nodes}
}

// backtrack walks traceback pointers from the winning cell back to a
// local-alignment start (a traceZero cell or a true source node's
// k=0 column), emitting one segAlign per distinct virtual node visited
// and coalescing consecutive equal-kind ops into runs.
func (u *unrolled) backtrack(query []byte, borders [][]cellState, traces [][][]traceCell, win alignResult) *bestAlignment {
	type step struct {
		node int
		k, i int
		op   OpKind
	}
	var steps []step
	node, k, i := win.node, win.k, win.i
	for {
		if k == 0 {
			ct := traces[node][0][i]
			if ct.fromNode < 0 {
				break
			}
			node = ct.fromNode
			k = len(u.seq(node))
			continue
		}
		ct := traces[node][k][i]
		switch ct.kind {
		case traceZero:
			goto done
		case traceDiagMatch:
			steps = append(steps, step{node: node, k: k, i: i, op: OpMatch})
			k--
			i--
		case traceDiagMismatch:
			steps = append(steps, step{node: node, k: k, i: i, op: OpMismatch})
			k--
			i--
		case traceUp:
			steps = append(steps, step{node: node, k: k, i: i, op: OpDeletion})
			k--
		case traceLeft:
			steps = append(steps, step{node: node, k: k, i: i, op: OpInsertion})
			i--
		default:
			goto done
		}
	}
done:
	// steps are in reverse order (end -> start); reverse and group by node.
	for a, bI := 0, len(steps)-1; a < bI; a, bI = a+1, bI-1 {
		steps[a], steps[bI] = steps[bI], steps[a]
	}
	if len(steps) == 0 {
		return nil
	}
	startOfsForNode := func(firstStep step) int {
		switch firstStep.op {
		case OpMatch, OpMismatch, OpDeletion:
			return firstStep.k - 1
		default:
			return firstStep.k
		}
	}
	var segs []segAlign
	curNode := steps[0].node
	curStart := startOfsForNode(steps[0])
	var curOps []Op
	flush := func() {
		if len(curOps) == 0 {
			return
		}
		coalesced := coalesce(curOps)
		segs = append(segs, segAlign{node: u.nodes[curNode].orig, startOfs: curStart, ops: coalesced})
	}
	for _, s := range steps {
		if s.node != curNode {
			flush()
			curNode = s.node
			curOps = nil
			curStart = startOfsForNode(s)
		}
		curOps = append(curOps, Op{Kind: s.op, Len: 1})
	}
	flush()

	// Query bases the local alignment left unconsumed become softclips
	// on the outermost nodes, so op lengths account for the whole query.
	startI := i
	if startI > 0 {
		segs[0].ops = append([]Op{{Kind: OpSoftclip, Len: startI}}, segs[0].ops...)
	}
	if win.i < len(query) {
		last := &segs[len(segs)-1]
		last.ops = append(last.ops, Op{Kind: OpSoftclip, Len: len(query) - win.i})
	}

	// segs already has one entry per repeat-copy visit (consecutive
	// segments may share the same original node id for a multi-copy
	// repeat traversal), matching graph.Path's "one visit per repeat
	// copy" contract.
	return &bestAlignment{score: win.score, segs: segs}
}

func coalesce(ops []Op) []Op {
	if len(ops) == 0 {
		return nil
	}
	out := make([]Op, 0, len(ops))
	cur := ops[0]
	for _, op := range ops[1:] {
		if op.Kind == cur.Kind {
			cur.Len += op.Len
		} else {
			out = append(out, cur)
			cur = op
		}
	}
	out = append(out, cur)
	return out
}

// iupacCode expands a degenerate IUPAC base into the set of bases it
// matches, used to let flank/literal sequences carrying ambiguity
// codes still score as a match.
var iupacCode = map[byte]string{
	'A': "A", 'C': "C", 'G': "G", 'T': "T",
	'R': "AG", 'Y': "CT", 'S': "GC", 'W': "AT",
	'K': "GT", 'M': "AC", 'B': "CGT", 'D': "AGT",
	'H': "ACT", 'V': "ACG", 'N': "ACGT",
}

func iupacCompatible(a, b byte) bool {
	as, aok := iupacCode[a]
	bs, bok := iupacCode[b]
	if !aok || !bok {
		return false
	}
	for i := 0; i < len(as); i++ {
		for j := 0; j < len(bs); j++ {
			if as[i] == bs[j] {
				return true
			}
		}
	}
	return false
}
