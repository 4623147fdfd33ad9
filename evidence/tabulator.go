package evidence

import (
	"github.com/grailbio/strgraph/classify"
)

// OffTargetPurityThreshold is the weighted-purity threshold an
// off-target pair's both mates must clear to count as a fully
// off-target in-repeat read pair.
const OffTargetPurityThreshold = 0.90

// VariantTabulator accumulates one variant's evidence across a locus
// analysis: spanning/flanking/in-repeat count tables, breakpoint
// coverage, and (common-repeat pass-through of) off-target IRR pairs
//. It is owned exclusively by one locus analyzer goroutine
//; no locking is needed.
type VariantTabulator struct {
	Spanning   CountTable
	Flanking   CountTable
	InRepeat   CountTable
	Breakpoint classify.BreakpointCoverage

	// OffTargetIRRPairs counts fully off-target read pairs whose both
	// mates have weighted purity >= 0.90 against the motif.
	OffTargetIRRPairs int
	// sawLongInRepeatRead records whether the locus-internal evidence
	// already includes an in-repeat read at least 0.90*maxMotifsPerRead
	// long, the gate that makes OffTargetIRRPairs contribute artificial
	// IRR evidence to the genotyper.
	sawLongInRepeatRead bool
}

// NewVariantTabulator allocates empty tables for one variant.
func NewVariantTabulator() *VariantTabulator {
	return &VariantTabulator{
		Spanning: NewCountTable(),
		Flanking: NewCountTable(),
		InRepeat: NewCountTable(),
	}
}

// Record folds one classified, quality-filtered alignment into the
// appropriate count table.
func (vt *VariantTabulator) Record(class classify.Class, numMotifs int) {
	switch class {
	case classify.Spanning:
		vt.Spanning.Inc(numMotifs)
	case classify.LeftFlanking, classify.RightFlanking:
		vt.Flanking.Inc(numMotifs)
	case classify.InRepeat:
		vt.InRepeat.Inc(numMotifs)
	}
}

// NoteInRepeatReadLength records whether an in-repeat read of queryLen
// bases clears the 0.90*maxMotifsPerRead length gate.
func (vt *VariantTabulator) NoteInRepeatReadLength(queryLen, motifLen, maxMotifsPerRead int) {
	if motifLen <= 0 {
		return
	}
	motifs := queryLen / motifLen
	if float64(motifs) >= 0.90*float64(maxMotifsPerRead) {
		vt.sawLongInRepeatRead = true
	}
}

// RecordOffTargetPair tallies a read pair pulled from an off-target
// region whose both mates score >= OffTargetPurityThreshold weighted
// purity against motif, and neither aligned well enough locally to be
// placed.
func (vt *VariantTabulator) RecordOffTargetPair(read, mate []byte, motif []byte) {
	if classify.WeightedPurity(read, motif) >= OffTargetPurityThreshold &&
		classify.WeightedPurity(mate, motif) >= OffTargetPurityThreshold {
		vt.OffTargetIRRPairs++
	}
}

// EffectiveOffTargetIRRPairs returns the off-target IRR pair count that
// should actually feed the genotyper: only non-zero when the locus
// already saw a sufficiently long in-repeat read.
func (vt *VariantTabulator) EffectiveOffTargetIRRPairs() int {
	if !vt.sawLongInRepeatRead {
		return 0
	}
	return vt.OffTargetIRRPairs
}

// CollapseAll bounds every count table at
// ceil(meanReadLength / motifLength).
func (vt *VariantTabulator) CollapseAll(cap int) {
	vt.Spanning.CollapseTop(cap)
	vt.Flanking.CollapseTop(cap)
	vt.InRepeat.CollapseTop(cap)
}

// CollapseCap computes the count-table bound: ceil(meanReadLength/motifLen).
func CollapseCap(meanReadLength float64, motifLen int) int {
	if motifLen <= 0 {
		motifLen = 1
	}
	cap := int(meanReadLength) / motifLen
	if float64(cap*motifLen) < meanReadLength {
		cap++
	}
	if cap < 1 {
		cap = 1
	}
	return cap
}
