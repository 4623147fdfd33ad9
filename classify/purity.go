package classify

import "github.com/grailbio/strgraph/align"

// WeightedPurity scores seq against every circular permutation of motif
// and its reverse complement, returning the best length-normalized
// score. A base matching its motif position scores 1.0 regardless of
// case; a mismatching uppercase base scores -1.0; a mismatching
// lowercase base scores 0.5 (lowercase marks low-confidence bases,
// which are weak evidence either way).
func WeightedPurity(seq []byte, motif []byte) float64 {
	if len(seq) == 0 || len(motif) == 0 {
		return 0
	}
	best := purityAgainstRotations(seq, motif)
	rc := align.ReverseComplement(upper(motif))
	if rcBest := purityAgainstRotations(seq, rc); rcBest > best {
		best = rcBest
	}
	return best
}

func purityAgainstRotations(seq, motif []byte) float64 {
	m := upper(motif)
	best := -1.0
	for rot := 0; rot < len(m); rot++ {
		if s := purityAgainstPhase(seq, m, rot); s > best {
			best = s
		}
	}
	return best
}

// purityAgainstPhase scores seq against the infinite repetition of
// motif starting at rotation offset `rot`, length-normalized.
func purityAgainstPhase(seq, motif []byte, rot int) float64 {
	total := 0.0
	for i, b := range seq {
		m := motif[(rot+i)%len(motif)]
		total += baseScore(b, m)
	}
	return total / float64(len(seq))
}

func baseScore(observed, motifBase byte) float64 {
	ou, mu := upperByte(observed), upperByte(motifBase)
	if ou == mu || mu == 'N' {
		return 1.0
	}
	if isLower(observed) {
		return 0.5
	}
	return -1.0
}

func isLower(b byte) bool { return b >= 'a' && b <= 'z' }

func upperByte(b byte) byte {
	if isLower(b) {
		return b - ('a' - 'A')
	}
	return b
}

func upper(s []byte) []byte {
	out := make([]byte, len(s))
	for i, b := range s {
		out[i] = upperByte(b)
	}
	return out
}
