package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeightedPurityPerfectRCRotation(t *testing.T) {
	// GGCCCC is a circular permutation of the reverse complement of
	// GGCCGG, so a query tiled by it is perfectly pure.
	got := WeightedPurity([]byte("GGCCCCGGCCCC"), []byte("GGCCGG"))
	assert.InDelta(t, 1.0, got, 0.005)
}

func TestWeightedPurityLowercaseMismatches(t *testing.T) {
	// Lowercase mismatching bases score +0.5 instead of -1.0, so the
	// masked interruptions pull purity down to 0.75, not further.
	got := WeightedPurity([]byte("tCCCCttCCCCttCCCCttCCCCtTCCCCttCCCCT"), []byte("AACCCC"))
	assert.InDelta(t, 0.75, got, 0.005)
}

func TestWeightedPurityPureMotifRun(t *testing.T) {
	assert.InDelta(t, 1.0, WeightedPurity([]byte("CAGCAGCAGCAG"), []byte("CAG")), 1e-9)
	// Phase-shifted runs are covered by circular permutations.
	assert.InDelta(t, 1.0, WeightedPurity([]byte("AGCAGCAGCA"), []byte("CAG")), 1e-9)
}

func TestWeightedPurityMismatchPenalty(t *testing.T) {
	// One uppercase mismatch in 12 bases: (11 - 1) / 12.
	got := WeightedPurity([]byte("CAGCAGCATCAG"), []byte("CAG"))
	assert.InDelta(t, 10.0/12.0, got, 1e-9)
}

func TestWeightedPurityEmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, WeightedPurity(nil, []byte("CAG")))
	assert.Equal(t, 0.0, WeightedPurity([]byte("CAG"), nil))
}
