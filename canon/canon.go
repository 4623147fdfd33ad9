// Package canon implements canonical-alignment selection:
// among a set of equal-scoring graph alignments, deterministically
// pick one for downstream variant evidence, after applying the
// alignment-quality filters that can reject a read's evidence
// entirely.
package canon

import (
	"sort"

	"github.com/grailbio/strgraph/align"
)

// MinMatchFraction is the alignment filter threshold.
const MinMatchFraction = 0.80

// Label is the classifier label 4.D orders alignments by preference
// for canonicalization ("inside repeat" > "flanking" > "spanning").
// It mirrors classify.Class's three coarse buckets without importing
// package classify (which itself depends on a chosen canonical
// alignment), so labelOf is supplied by the caller (package locus)
// as a thin adapter over classify.Classify.
type Label int

const (
	LabelOther Label = iota
	LabelSpanning
	LabelFlanking
	LabelInsideRepeat
)

func rank(l Label) int {
	switch l {
	case LabelInsideRepeat:
		return 3
	case LabelFlanking:
		return 2
	case LabelSpanning:
		return 1
	default:
		return 0
	}
}

// Select picks one alignment from equal-scoring alternatives per the
// preference rule: "inside repeat" over "flanking" over
// "spanning"; break remaining ties lexicographically on path then
// start offset, for determinism across runs.
// labelOf classifies one alignment against the variant of interest (it
// may return LabelOther when the read touches no variant node at all,
// which ranks below every other label in the preference order).
//
// Select does not apply the match-fraction filters; call Accept on the
// result to find out whether it should contribute variant evidence.
func Select(alignments []align.GraphAlignment, labelOf func(align.GraphAlignment) Label) align.GraphAlignment {
	best := alignments[0]
	bestLabel := labelOf(best)
	for _, a := range alignments[1:] {
		l := labelOf(a)
		if rank(l) > rank(bestLabel) || (rank(l) == rank(bestLabel) && lessPath(a, best)) {
			best, bestLabel = a, l
		}
	}
	return best
}

// FirstTied returns the first alignment in the tied set without regard
// to classification, for the realigned-BAM sink.
func FirstTied(alignments []align.GraphAlignment) align.GraphAlignment {
	return alignments[0]
}

// lessPath orders two alignments lexicographically on path node ids,
// then on start offset, giving a stable deterministic tie-break.
func lessPath(a, b align.GraphAlignment) bool {
	pa, pb := a.PathNodeIDs(), b.PathNodeIDs()
	n := len(pa)
	if len(pb) < n {
		n = len(pb)
	}
	for i := 0; i < n; i++ {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	if len(pa) != len(pb) {
		return len(pa) < len(pb)
	}
	return a.Nodes[0].StartOfs < b.Nodes[0].StartOfs
}

// Accept applies 4.D's alignment filters: clipped-query match fraction
// and reference match fraction must both be >= 80%. A rejected
// canonical alignment contributes no variant evidence but may still
// contribute to locus stats.
func Accept(a align.GraphAlignment) bool {
	return a.ClippedQueryMatchFraction() >= MinMatchFraction && a.ReferenceMatchFraction() >= MinMatchFraction
}

// SortByScoreDesc orders alignments by score descending; used by
// callers that want the top-scoring subset before calling Select when
// an aligner implementation does not already guarantee a tied set.
func SortByScoreDesc(alignments []align.GraphAlignment) {
	sort.SliceStable(alignments, func(i, j int) bool {
		return alignments[i].Score() > alignments[j].Score()
	})
}
