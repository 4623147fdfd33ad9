package align

import "github.com/grailbio/strgraph/biosimd"

// Orientation is the verdict of the orientation predictor.
type Orientation int

const (
	// Unaligned means the read's k-mer hit count fell short of the
	// minimum in both orientations: "does not align".
	Unaligned Orientation = iota
	Forward
	Reverse
)

// DefaultOrientMinHits is the minimum k-mer hit count required in
// either orientation before the predictor commits (default 3).
const DefaultOrientMinHits = 3

// DefaultOrientK is the k-mer length the orientation predictor uses
// (default 10), distinct from the seeding index's default K
// of 14.
const DefaultOrientK = 10

// PredictOrientation counts forward and reverse-complement k-mer hits
// of seq against idx (built with k = DefaultOrientK) and returns
// whichever orientation has more hits, or Unaligned if the winning
// count is below minHits.
func PredictOrientation(idx *KmerIndex, seq []byte, minHits int) Orientation {
	fwdHits := idx.CountHits(seq)
	rc := make([]byte, len(seq))
	copy(rc, seq)
	biosimd.ReverseComp8Inplace(rc)
	revHits := idx.CountHits(rc)

	// A read shorter than k+minHits-1 cannot reach minHits no matter how
	// well it matches; cap the requirement at the read's k-mer count.
	if avail := len(seq) - idx.k + 1; avail < minHits {
		minHits = avail
	}
	if minHits < 1 {
		minHits = 1
	}
	if fwdHits < minHits && revHits < minHits {
		return Unaligned
	}
	if revHits > fwdHits {
		return Reverse
	}
	return Forward
}

// ReverseComplement returns the reverse complement of seq without
// mutating it, using the same table-driven technique as
// biosimd.ReverseComp8Inplace.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	copy(out, seq)
	biosimd.ReverseComp8Inplace(out)
	return out
}
