package align

// Softclip trims uncertain leading/trailing regions from a graph
// alignment. For each query prefix (and suffix) length l, Softclip
// re-aligns that query segment against the same graph and looks only
// at the first tied alignment returned: the segment is uncertain when
// that alignment scores at most half of match*l, or scores above it but
// ends (for a suffix: starts) on a different node than the chosen
// alignment. The longest uncertain prefix and the longest uncertain
// suffix are softclipped whole; no common suffix among alternative
// placements is computed to keep part of an uncertain region, and
// other tied alternatives are not examined.
func Softclip(al *Aligner, a GraphAlignment) GraphAlignment {
	// Low-quality read tails (lowercase bases) outside the first good
	// high-quality run are clipped before the uncertainty analysis, so
	// uncertain-region probing only ever considers trustworthy bases.
	if start, end := HighQualityRun(a.Query); end > start && (start > 0 || end < len(a.Query)) {
		if start > 0 {
			a = clipQueryPrefix(a, start)
		}
		if tail := len(a.Query) - end; tail > 0 {
			a = clipQuerySuffix(a, tail)
		}
	}
	a = softclipPrefix(al, a)
	a = softclipSuffix(al, a)
	return a
}

// uncertainPrefixLen returns how many leading query bases of a are
// "uncertain": the longest prefix length l such that the best
// re-alignment of query[:l] against the graph from scratch either
// scores at most half of match*l, or scores above that but ends on a
// different node than a's path does after l query bases.
func uncertainPrefixLen(al *Aligner, a GraphAlignment) int {
	maxProbe := a.QueryLen()
	if maxProbe > len(a.Query) {
		maxProbe = len(a.Query)
	}
	uncertain := 0
	for l := 1; l <= maxProbe; l++ {
		threshold := float64(MatchScore*l) / 2
		probe := al.Align(a.Query[:l], ModeDAG)
		if len(probe) == 0 {
			continue
		}
		if float64(probe[0].Score()) > threshold && probe[0].LastNode() != canonicalNodeAt(a, l) {
			uncertain = l
			continue
		}
		if float64(probe[0].Score()) <= threshold {
			// Below threshold: the whole probed region is uncertain per the
			// "no valid extensions" failure mode.
			uncertain = l
		}
	}
	return uncertain
}

// canonicalNodeAt returns which node the chosen alignment's path is at
// after consuming l query bases, used to detect whether an alternative
// prefix explanation actually diverges from the chosen path.
func canonicalNodeAt(a GraphAlignment, l int) int {
	consumed := 0
	for _, na := range a.Nodes {
		consumed += na.QueryLen()
		if consumed >= l {
			return na.Node
		}
	}
	return a.LastNode()
}

func softclipPrefix(al *Aligner, a GraphAlignment) GraphAlignment {
	l := uncertainPrefixLen(al, a)
	if l <= 0 {
		return a
	}
	return clipQueryPrefix(a, l)
}

func softclipSuffix(al *Aligner, a GraphAlignment) GraphAlignment {
	l := uncertainSuffixLen(al, a)
	if l <= 0 {
		return a
	}
	return clipQuerySuffix(a, l)
}

// uncertainSuffixLen mirrors uncertainPrefixLen for the trailing end:
// each query suffix is realigned from scratch, and a suffix whose best
// alternative placement starts on a different node than the chosen
// path (or scores below threshold) is uncertain.
func uncertainSuffixLen(al *Aligner, a GraphAlignment) int {
	qlen := len(a.Query)
	maxProbe := a.QueryLen()
	if maxProbe > qlen {
		maxProbe = qlen
	}
	uncertain := 0
	for l := 1; l <= maxProbe; l++ {
		threshold := float64(MatchScore*l) / 2
		probe := al.Align(a.Query[qlen-l:], ModeDAG)
		if len(probe) == 0 {
			continue
		}
		if float64(probe[0].Score()) > threshold && probe[0].FirstNode() != canonicalNodeAt(a, qlen-l+1) {
			uncertain = l
			continue
		}
		if float64(probe[0].Score()) <= threshold {
			uncertain = l
		}
	}
	return uncertain
}

// clipQueryPrefix removes the leading l query bases from a, converting
// whatever nodes/ops covered them into a single leading softclip op on
// the (possibly new) first node.
func clipQueryPrefix(a GraphAlignment, l int) GraphAlignment {
	remaining := l
	var nodes []NodeAlignment
	for i, na := range a.Nodes {
		if remaining <= 0 {
			nodes = append(nodes, a.Nodes[i:]...)
			break
		}
		ops, consumedQ, consumedR := dropLeadingQuery(na.Ops, remaining)
		remaining -= consumedQ
		newStart := na.StartOfs + consumedR
		if len(ops) == 0 {
			continue
		}
		nodes = append(nodes, NodeAlignment{Node: na.Node, StartOfs: newStart, Ops: ops})
	}
	if len(nodes) == 0 {
		return a
	}
	clip := Op{Kind: OpSoftclip, Len: l}
	nodes[0].Ops = prependOp(nodes[0].Ops, clip)
	return GraphAlignment{Query: a.Query, Nodes: nodes}
}

// clipQuerySuffix removes the trailing l query bases from a, converting
// whatever ops covered them into a single trailing softclip op on the
// (possibly new) last node. Node start offsets are unaffected by
// trimming from the tail.
func clipQuerySuffix(a GraphAlignment, l int) GraphAlignment {
	remaining := l
	var nodes []NodeAlignment
	for i := len(a.Nodes) - 1; i >= 0; i-- {
		if remaining <= 0 {
			nodes = append(append([]NodeAlignment(nil), a.Nodes[:i+1]...), nodes...)
			break
		}
		na := a.Nodes[i]
		ops, consumedQ := dropTrailingQuery(na.Ops, remaining)
		remaining -= consumedQ
		if len(ops) == 0 {
			continue
		}
		nodes = append([]NodeAlignment{{Node: na.Node, StartOfs: na.StartOfs, Ops: ops}}, nodes...)
	}
	if len(nodes) == 0 {
		return a
	}
	clip := Op{Kind: OpSoftclip, Len: l}
	last := &nodes[len(nodes)-1]
	last.Ops = appendOp(last.Ops, clip)
	return GraphAlignment{Query: a.Query, Nodes: nodes}
}

// dropTrailingQuery strips ops consuming up to `remaining` query bases
// from the back of ops, returning the remainder plus how many query
// bases were consumed.
func dropTrailingQuery(ops []Op, remaining int) ([]Op, int) {
	consumedQ := 0
	out := append([]Op(nil), ops...)
	for remaining > 0 && len(out) > 0 {
		op := out[len(out)-1]
		if !op.Kind.ConsumesQuery() {
			out = out[:len(out)-1]
			continue
		}
		if op.Len <= remaining {
			remaining -= op.Len
			consumedQ += op.Len
			out = out[:len(out)-1]
			continue
		}
		out[len(out)-1].Len -= remaining
		consumedQ += remaining
		remaining = 0
	}
	return out, consumedQ
}

func appendOp(ops []Op, op Op) []Op {
	if len(ops) > 0 && ops[len(ops)-1].Kind == op.Kind {
		ops[len(ops)-1].Len += op.Len
		return ops
	}
	return append(ops, op)
}

// dropLeadingQuery strips ops consuming up to `remaining` query bases
// from the front of ops, returning the remainder plus how many query
// and reference bases were consumed in the process.
func dropLeadingQuery(ops []Op, remaining int) ([]Op, int, int) {
	var consumedQ, consumedR int
	out := append([]Op(nil), ops...)
	for remaining > 0 && len(out) > 0 {
		op := out[0]
		if !op.Kind.ConsumesQuery() {
			if op.Kind.ConsumesRef() {
				consumedR += op.Len
			}
			out = out[1:]
			continue
		}
		if op.Len <= remaining {
			remaining -= op.Len
			consumedQ += op.Len
			if op.Kind.ConsumesRef() {
				consumedR += op.Len
			}
			out = out[1:]
			continue
		}
		// Partial consumption of this op.
		out[0].Len -= remaining
		consumedQ += remaining
		if op.Kind.ConsumesRef() {
			consumedR += remaining
		}
		remaining = 0
	}
	return out, consumedQ, consumedR
}

func prependOp(ops []Op, op Op) []Op {
	if len(ops) > 0 && ops[0].Kind == op.Kind {
		ops[0].Len += op.Len
		return ops
	}
	return append([]Op{op}, ops...)
}

