// Package classify implements the per-variant alignment classifier
//: mapping a graph alignment to a variant-relative class
// (spanning / left-flanking / right-flanking / in-repeat / bypassing /
// outside), scoring it, and applying per-class quality filters.
package classify

import (
	"github.com/grailbio/strgraph/align"
	"github.com/grailbio/strgraph/blueprint"
	"github.com/grailbio/strgraph/canon"
	"github.com/grailbio/strgraph/graph"
)

// Class is the closed sum of variant-relative alignment classes.
type Class int

const (
	Outside Class = iota
	Spanning
	LeftFlanking
	RightFlanking
	InRepeat
	Bypassing
)

// VariantNodes is the precomputed neighbor-set context the classifier
// needs for one variant, R(V)).
type VariantNodes struct {
	Variant  blueprint.VariantSpec
	Left     []int // L(V): immediate left-flank nodes (excluding variant nodes)
	Right    []int // R(V): immediate right-flank nodes (excluding variant nodes)
	MotifLen int   // repeat variants only: length of the self-loop node's motif
}

// BuildVariantNodes precomputes L(V)/R(V) for every variant at a locus.
func BuildVariantNodes(g *graph.Graph, variants []blueprint.VariantSpec) []VariantNodes {
	out := make([]VariantNodes, len(variants))
	for i, v := range variants {
		vn := VariantNodes{
			Variant: v,
			Left:    neighborsExcluding(g.Predecessors, v.NodeIDs),
			Right:   neighborsExcluding(g.Successors, v.NodeIDs),
		}
		if v.Kind.IsRepeat() {
			vn.MotifLen = len(g.NodeSequence(v.MotifNodeID()))
		}
		out[i] = vn
	}
	return out
}

func neighborsExcluding(adj func(int) []int, variantNodes []int) []int {
	isVariant := make(map[int]bool, len(variantNodes))
	for _, n := range variantNodes {
		isVariant[n] = true
	}
	seen := make(map[int]bool)
	var out []int
	for _, n := range variantNodes {
		for _, nb := range adj(n) {
			if isVariant[nb] || seen[nb] {
				continue
			}
			seen[nb] = true
			out = append(out, nb)
		}
	}
	return out
}

func touchesAny(a align.GraphAlignment, ids []int) bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, na := range a.Nodes {
		if set[na.Node] {
			return true
		}
	}
	return false
}

func touchesOnly(a align.GraphAlignment, ids []int) bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, na := range a.Nodes {
		if !set[na.Node] {
			return false
		}
	}
	return true
}

// Classify maps a to its class against vn.
func Classify(a align.GraphAlignment, vn VariantNodes) Class {
	touchesVariant := touchesAny(a, vn.Variant.NodeIDs)
	touchesLeft := touchesAny(a, vn.Left)
	touchesRight := touchesAny(a, vn.Right)

	switch {
	case touchesLeft && touchesRight && !touchesVariant:
		return Bypassing
	case touchesLeft && touchesRight:
		return Spanning
	case touchesLeft && touchesVariant:
		return LeftFlanking
	case touchesRight && touchesVariant:
		return RightFlanking
	case touchesVariant && touchesOnly(a, vn.Variant.NodeIDs):
		return InRepeat
	default:
		return Outside
	}
}

// ToCanonLabel adapts a classify.Class into package canon's coarse
// preference label.
func ToCanonLabel(c Class) canon.Label {
	switch c {
	case InRepeat:
		return canon.LabelInsideRepeat
	case LeftFlanking, RightFlanking:
		return canon.LabelFlanking
	case Spanning:
		return canon.LabelSpanning
	default:
		return canon.LabelOther
	}
}

// NumMotifCopies returns the number of times the alignment visits the
// variant's self-loop node (repeat variants only): the observed allele
// size contribution of this one read.
func NumMotifCopies(a align.GraphAlignment, v blueprint.VariantSpec) int {
	if !v.Kind.IsRepeat() {
		return 0
	}
	motifNode := v.MotifNodeID()
	n := 0
	for _, na := range a.Nodes {
		if na.Node == motifNode {
			n++
		}
	}
	return n
}

// Score scores a by class: a spanning alignment scores over its
// full extent; a flanking alignment scores only its flank portion; an
// in-repeat alignment scores only its repeat portion.
func Score(a align.GraphAlignment, c Class, vn VariantNodes) int {
	switch c {
	case Spanning, Outside, Bypassing:
		return a.Score()
	case LeftFlanking, RightFlanking:
		return scoreFlankPortion(a, vn)
	case InRepeat:
		return a.Score()
	default:
		return a.Score()
	}
}

func scoreFlankPortion(a align.GraphAlignment, vn VariantNodes) int {
	isVariant := make(map[int]bool, len(vn.Variant.NodeIDs))
	for _, n := range vn.Variant.NodeIDs {
		isVariant[n] = true
	}
	score := 0
	for _, na := range a.Nodes {
		if isVariant[na.Node] {
			continue
		}
		score += opsScore(na.Ops)
	}
	return score
}

func opsScore(ops []align.Op) int {
	score := 0
	for _, op := range ops {
		switch op.Kind {
		case align.OpMatch:
			score += align.MatchScore * op.Len
		case align.OpMismatch:
			score += align.MismatchScore * op.Len
		case align.OpInsertion, align.OpDeletion:
			score += align.GapOpen + align.GapExtend*(op.Len-1)
		}
	}
	return score
}

// QualityFilters carries the per-class quality thresholds.
type QualityFilters struct {
	MinFlankScore int     // spanning: both flanks >= 8*match; flanking: >= 1 flank
	MinPurity     float64 // in-repeat: weighted purity >= 0.80
}

// DefaultQualityFilters returns the default thresholds.
func DefaultQualityFilters() QualityFilters {
	return QualityFilters{MinFlankScore: 8 * align.MatchScore, MinPurity: 0.80}
}

// PassesSpanning checks that both the upstream and downstream flank
// subalignments score >= the threshold.
func PassesSpanning(a align.GraphAlignment, vn VariantNodes, f QualityFilters) bool {
	upScore, downScore := flankSubscores(a, vn)
	return upScore >= f.MinFlankScore && downScore >= f.MinFlankScore
}

// PassesFlanking checks that at least one flank subalignment scores
// >= the threshold.
func PassesFlanking(a align.GraphAlignment, vn VariantNodes, f QualityFilters) bool {
	upScore, downScore := flankSubscores(a, vn)
	return upScore >= f.MinFlankScore || downScore >= f.MinFlankScore
}

func flankSubscores(a align.GraphAlignment, vn VariantNodes) (up, down int) {
	left := make(map[int]bool, len(vn.Left))
	for _, n := range vn.Left {
		left[n] = true
	}
	right := make(map[int]bool, len(vn.Right))
	for _, n := range vn.Right {
		right[n] = true
	}
	for _, na := range a.Nodes {
		switch {
		case left[na.Node]:
			up += opsScore(na.Ops)
		case right[na.Node]:
			down += opsScore(na.Ops)
		}
	}
	return up, down
}

// PassesInRepeat checks weighted motif purity against the 0.80 default
// threshold.
func PassesInRepeat(purity float64, f QualityFilters) bool {
	return purity >= f.MinPurity
}

// BreakpointCoverage tallies, per variant, how many alignments have
// >= minFlankBases reference bases on each side of the left/right
// breakpoint.
type BreakpointCoverage struct {
	Left, Right int
}

// DefaultBreakpointMinBases is the default breakpoint overlap (10bp).
const DefaultBreakpointMinBases = 10

// Observe updates bc with one alignment's contribution to left/right
// breakpoint coverage.
func (bc *BreakpointCoverage) Observe(a align.GraphAlignment, vn VariantNodes, minBases int) {
	leftRef := refBasesIn(a, vn.Left)
	rightRef := refBasesIn(a, vn.Right)
	variantRef := refBasesIn(a, vn.Variant.NodeIDs)
	if leftRef >= minBases && (variantRef > 0 || rightRef >= minBases) {
		bc.Left++
	}
	if rightRef >= minBases && (variantRef > 0 || leftRef >= minBases) {
		bc.Right++
	}
}

func refBasesIn(a align.GraphAlignment, ids []int) int {
	set := make(map[int]bool, len(ids))
	for _, n := range ids {
		set[n] = true
	}
	n := 0
	for _, na := range a.Nodes {
		if set[na.Node] {
			n += na.RefLen()
		}
	}
	return n
}
