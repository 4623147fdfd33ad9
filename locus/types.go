// Package locus implements the locus analyzer: the
// per-pair pipeline that drives the aligner, canonical selector,
// classifier and evidence tabulator, plus the locus-stats accumulator
// and the genotyper finalization step.
package locus

import (
	"github.com/grailbio/strgraph/align"
	"github.com/grailbio/strgraph/genotype"
)

// Provenance identifies whether a read pair was pulled from a locus'
// target region or one of its off-target regions.
type Provenance int

const (
	ProvenanceTarget Provenance = iota
	ProvenanceOffTarget
)

// Read is one mate of a read pair as delivered by the outer pipeline
//. The core never parses BAM/CRAM
// itself; this is a pure data record.
type Read struct {
	FragmentID string
	MateNum    int // 1 or 2
	Sequence   []byte
	IsReverse  bool // true if originally reverse-mapped upstream
	Provenance Provenance
}

// Pair is one fragment's two mates.
type Pair struct {
	Read Read
	Mate Read
}

// RealignedSink receives each accepted mate's first tied graph alignment
// (canon.FirstTied) for realigned-BAM output. Implementations must serialize
// writes internally; analyzers on different loci may call Write
// concurrently.
type RealignedSink interface {
	Write(locusID, fragmentID string, seq []byte, isFirstMate, isReadReversed, isMateReversed bool, a align.GraphAlignment) error
}

// LocusStats is the per-locus summary reported with findings.
type LocusStats struct {
	MeanReadLength    float64
	MedianFragmentLen float64
	EstimatedDepth    float64
	AlleleCount       int
}

// FilterFlag names the currently-defined findings filter flags.
type FilterFlag int

const (
	FilterNone FilterFlag = iota
	FilterLowDepth
)

func (f FilterFlag) String() string {
	if f == FilterLowDepth {
		return "LowDepth"
	}
	return ""
}

// VariantGenotype bundles whichever genotyper result kind applies to a
// variant: STR genotype for repeats, categorical genotype plus allele
// presence for small variants.
type VariantGenotype struct {
	STR      *genotype.Genotype
	Small    genotype.SmallVariantGenotype
	Presence *genotype.PresenceResult
}

// IsNone reports whether no genotype call was made at all.
func (g VariantGenotype) IsNone() bool {
	return g.STR == nil && g.Small == genotype.GenotypeNone
}

// VariantFindings is one variant's entry in a locus' findings record.
type VariantFindings struct {
	VariantID string
	Spanning  map[int]int
	Flanking  map[int]int
	InRepeat  map[int]int
	Genotype  VariantGenotype
	Filter    FilterFlag

	// Small-variant-only fields.
	RefCount int
	AltCount int
}

// Findings is the complete per-locus output.
type Findings struct {
	LocusID  string
	Variants []VariantFindings
	Stats    LocusStats
}
