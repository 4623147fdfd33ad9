package classify

import "github.com/grailbio/strgraph/align"

// HypothesisResult is the outcome of testing a read's alignment
// against a candidate repeat-allele size: the winning
// companion operation's resulting class, observed motif count, score,
// and indel bases charged.
type HypothesisResult struct {
	Class      Class
	NumMotifs  int
	Score      int
	IndelBases int
}

// EvaluateHypothesis computes the highest-scoring of clip-from-left,
// clip-from-right, and remove-stutter against candidate allele size k
//, called once per (read, candidate-allele-size).
func EvaluateHypothesis(a align.GraphAlignment, vn VariantNodes, k int) HypothesisResult {
	results := []HypothesisResult{
		clipFromLeft(a, vn, k),
		clipFromRight(a, vn, k),
		removeStutter(a, vn, k),
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	return best
}

func motifIndices(a align.GraphAlignment, motifNode int) []int {
	var idxs []int
	for i, na := range a.Nodes {
		if na.Node == motifNode {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// clipFromLeft keeps up to k motif copies counted from the leftmost
// copy, discarding everything after (excess copies and anything past
// them, including the right flank).
func clipFromLeft(a align.GraphAlignment, vn VariantNodes, k int) HypothesisResult {
	motifNode := vn.Variant.MotifNodeID()
	idxs := motifIndices(a, motifNode)
	keep := k
	if keep > len(idxs) {
		keep = len(idxs)
	}
	var cutAt int
	if keep == len(idxs) {
		cutAt = len(a.Nodes)
	} else {
		cutAt = idxs[keep] // first node-index beyond the kept copies
	}
	sub := align.GraphAlignment{Query: a.Query, Nodes: a.Nodes[:cutAt]}
	return scoreHypothesisAlignment(sub, vn, keep)
}

// clipFromRight is the symmetric right-anchored hypothesis test.
func clipFromRight(a align.GraphAlignment, vn VariantNodes, k int) HypothesisResult {
	motifNode := vn.Variant.MotifNodeID()
	idxs := motifIndices(a, motifNode)
	keep := k
	if keep > len(idxs) {
		keep = len(idxs)
	}
	var cutFrom int
	if keep == len(idxs) {
		cutFrom = 0
	} else {
		cutFrom = idxs[len(idxs)-keep]
	}
	sub := align.GraphAlignment{Query: a.Query, Nodes: a.Nodes[cutFrom:]}
	return scoreHypothesisAlignment(sub, vn, keep)
}

// removeStutter keeps the whole alignment (both flanks, if present)
// but charges a single indel event for the difference between the
// observed motif count and the hypothesis, rather than discarding any
// flank evidence.
func removeStutter(a align.GraphAlignment, vn VariantNodes, k int) HypothesisResult {
	motifLen := vn.MotifLen
	if motifLen == 0 {
		motifLen = 1
	}
	observed := NumMotifCopies(a, vn.Variant)
	c := Classify(a, vn)
	score := Score(a, c, vn)
	delta := observed - k
	indelBases := 0
	if delta != 0 {
		if delta < 0 {
			delta = -delta
		}
		indelBases = delta * motifLen
		score += align.GapOpen + align.GapExtend*(indelBases-1)
		if c == Spanning {
			// The full-alignment score credited the actual (wrong) copy
			// count; remove that credit so the hypothesis is scored at k.
			score -= align.MatchScore * motifLen * (observed - k)
		}
	}
	return HypothesisResult{Class: c, NumMotifs: k, Score: score, IndelBases: indelBases}
}

func scoreHypothesisAlignment(sub align.GraphAlignment, vn VariantNodes, numMotifs int) HypothesisResult {
	if len(sub.Nodes) == 0 {
		return HypothesisResult{Class: Outside, NumMotifs: numMotifs}
	}
	c := Classify(sub, vn)
	return HypothesisResult{Class: c, NumMotifs: numMotifs, Score: Score(sub, c, vn)}
}
