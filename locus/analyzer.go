package locus

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/strgraph/align"
	"github.com/grailbio/strgraph/blueprint"
	"github.com/grailbio/strgraph/canon"
	"github.com/grailbio/strgraph/classify"
	"github.com/grailbio/strgraph/evidence"
	"github.com/grailbio/strgraph/genotype"
)

// DefaultMaxMotifsPerRead bounds the off-target-IRR length gate when the
// caller has no better estimate of the longest in-repeat read observed
// across the whole run.
const DefaultMaxMotifsPerRead = 1000

// Analyzer is a single-threaded per-locus processor: it
// owns the locus spec, the aligner, one classifier/tabulator pair per
// variant, and the stats accumulator. No locking is required; each
// thread owns one Analyzer exclusively.
type Analyzer struct {
	Spec *blueprint.LocusSpec

	aligner *align.Aligner
	index   *align.KmerIndex

	variantNodes []classify.VariantNodes
	tabulators   []*evidence.VariantTabulator

	// Small-variant support counters, parallel to Spec.Variants.
	refCounts []int
	altCounts []int

	stats *statsAccumulator

	sink RealignedSink
}

// SetRealignedSink attaches an optional realigned-BAM sink. Must be
// called before the first ProcessPair.
func (an *Analyzer) SetRealignedSink(s RealignedSink) { an.sink = s }

// NewAnalyzer constructs an analyzer for one compiled locus. The graph,
// k-mer index and variant node sets are shared immutable data built
// once.
func NewAnalyzer(spec *blueprint.LocusSpec) *Analyzer {
	idx := align.BuildKmerIndex(spec.Graph, align.DefaultOrientK)
	vn := classify.BuildVariantNodes(spec.Graph, spec.Variants)
	tabs := make([]*evidence.VariantTabulator, len(spec.Variants))
	for i := range tabs {
		tabs[i] = evidence.NewVariantTabulator()
	}
	return &Analyzer{
		Spec:         spec,
		aligner:      align.NewAligner(spec.Graph),
		index:        idx,
		variantNodes: vn,
		tabulators:   tabs,
		refCounts:    make([]int, len(spec.Variants)),
		altCounts:    make([]int, len(spec.Variants)),
		stats:        newStatsAccumulator(),
	}
}

func (an *Analyzer) alignOne(seq []byte) ([]align.GraphAlignment, []byte, bool) {
	orient := align.PredictOrientation(an.index, seq, align.DefaultOrientMinHits)
	if orient == align.Unaligned {
		return nil, nil, false
	}
	oriented := seq
	if orient == align.Reverse {
		oriented = align.ReverseComplement(seq)
	}
	alignments := an.aligner.Align(oriented, align.ModeDAG)
	if len(alignments) == 0 {
		return nil, oriented, false
	}
	for i, a := range alignments {
		alignments[i] = align.Softclip(an.aligner, a)
	}
	return alignments, oriented, true
}

func (an *Analyzer) canonicalize(alignments []align.GraphAlignment) align.GraphAlignment {
	labelOf := func(a align.GraphAlignment) canon.Label {
		best := canon.LabelOther
		for _, vn := range an.variantNodes {
			if l := classify.ToCanonLabel(classify.Classify(a, vn)); rankOf(l) > rankOf(best) {
				best = l
			}
		}
		return best
	}
	return canon.Select(alignments, labelOf)
}

func rankOf(l canon.Label) int {
	switch l {
	case canon.LabelInsideRepeat:
		return 3
	case canon.LabelFlanking:
		return 2
	case canon.LabelSpanning:
		return 1
	default:
		return 0
	}
}

func nonRepeatScore(a align.GraphAlignment, spec *blueprint.LocusSpec) int {
	score := 0
	for _, na := range a.Nodes {
		if spec.Graph.IsSelfLoop(na.Node) {
			continue
		}
		score += scoreNodeOps(na.Ops)
	}
	return score
}

func scoreNodeOps(ops []align.Op) int {
	na := align.NodeAlignment{Ops: ops}
	full := align.GraphAlignment{Nodes: []align.NodeAlignment{na}}
	return full.Score()
}

func placementThreshold(readLen int) float64 {
	t := float64(readLen) / 7.5
	if t < 10 {
		t = 10
	}
	return t * align.MatchScore
}

// ProcessPair runs the align/place/classify pipeline for one incoming
// read pair.
func (an *Analyzer) ProcessPair(p Pair) {
	readAls, readOriented, readOK := an.alignOne(p.Read.Sequence)
	mateAls, mateOriented, mateOK := an.alignOne(p.Mate.Sequence)

	if !readOK || !mateOK {
		an.handleUnplaced(p)
		return
	}

	canonRead := an.canonicalize(readAls)
	canonMate := an.canonicalize(mateAls)

	combined := nonRepeatScore(canonRead, an.Spec) + nonRepeatScore(canonMate, an.Spec)
	threshold := placementThreshold((len(p.Read.Sequence) + len(p.Mate.Sequence)) / 2)
	if float64(combined) < threshold {
		an.handleUnplaced(p)
		return
	}

	readAccepted := canon.Accept(canonRead)
	mateAccepted := canon.Accept(canonMate)

	an.stats.ObserveReadLength(len(p.Read.Sequence))
	an.stats.ObserveReadLength(len(p.Mate.Sequence))
	an.stats.ObserveFragmentLength(estimateFragmentLength(canonRead, canonMate))

	leftLen, rightLen := an.flankLengths()
	if readAccepted {
		an.stats.ObserveConfidentlyPlaced(leftLen, rightLen)
	}
	if mateAccepted {
		an.stats.ObserveConfidentlyPlaced(leftLen, rightLen)
	}

	if !readAccepted || !mateAccepted {
		return
	}

	if an.sink != nil {
		// The realigned BAM records the first tied alignment rather than
		// the evidence-preferred canonical one.
		readRev := p.Read.IsReverse
		mateRev := p.Mate.IsReverse
		if err := an.sink.Write(an.Spec.ID, p.Read.FragmentID, readOriented, p.Read.MateNum == 1, readRev, mateRev, canon.FirstTied(readAls)); err != nil {
			log.Error.Printf("locus %s: realigned write for %s: %v", an.Spec.ID, p.Read.FragmentID, err)
		}
		if err := an.sink.Write(an.Spec.ID, p.Mate.FragmentID, mateOriented, p.Mate.MateNum == 1, mateRev, readRev, canon.FirstTied(mateAls)); err != nil {
			log.Error.Printf("locus %s: realigned write for %s: %v", an.Spec.ID, p.Mate.FragmentID, err)
		}
	}

	for i, vn := range an.variantNodes {
		an.recordVariant(i, vn, canonRead)
		an.recordVariant(i, vn, canonMate)
	}
}

// flankFilters applies the default 8-match flank anchor requirement
// only when the read's geometry could possibly satisfy it: a read whose
// non-repeat bases cannot cover 8 bases per required flank (or a locus
// whose flank nodes are shorter than 8 bases) would otherwise never
// produce spanning evidence at all, so the anchor check is waived
// rather than scaled.
func (an *Analyzer) flankFilters(a align.GraphAlignment, motifBases int, twoSided bool) classify.QualityFilters {
	qf := classify.DefaultQualityFilters()
	anchor := qf.MinFlankScore / align.MatchScore
	need := anchor
	if twoSided {
		need *= 2
	}
	avail := a.QueryLen() - motifBases
	g := an.Spec.Graph
	minFlank := len(g.NodeSequence(g.LeftFlank()))
	if r := len(g.NodeSequence(g.RightFlank())); r < minFlank {
		minFlank = r
	}
	if avail < need || minFlank < anchor {
		qf.MinFlankScore = 0
	}
	return qf
}

func (an *Analyzer) flankLengths() (int64, int64) {
	g := an.Spec.Graph
	left := g.Node(g.LeftFlank()).RefInterval()
	right := g.Node(g.RightFlank()).RefInterval()
	var l, r int64
	if left != nil {
		l = left.Len()
	}
	if right != nil {
		r = right.Len()
	}
	return l, r
}

func estimateFragmentLength(read, mate align.GraphAlignment) int {
	// A rough template-length estimate: sum of both mates' reference
	// spans. Real fragment length needs coordinate reconciliation the
	// core leaves to the caller's provenance data; this is the
	// best-effort estimate available from alignment shape alone.
	return read.RefLen() + mate.RefLen()
}

func (an *Analyzer) handleUnplaced(p Pair) {
	if !an.Spec.HasRareRepeat() {
		return
	}
	for i, v := range an.Spec.Variants {
		if v.Kind != blueprint.RepeatRare {
			continue
		}
		motif := an.Spec.Graph.NodeSequence(v.MotifNodeID())
		an.tabulators[i].RecordOffTargetPair(p.Read.Sequence, p.Mate.Sequence, motif)
	}
}

func (an *Analyzer) recordVariant(i int, vn classify.VariantNodes, a align.GraphAlignment) {
	class := classify.Classify(a, vn)
	tab := an.tabulators[i]
	v := an.Spec.Variants[i]

	tab.Breakpoint.Observe(a, vn, classify.DefaultBreakpointMinBases)

	if v.Kind.IsSmallVariant() {
		an.recordSmallVariantSupport(i, v, class, a)
		return
	}

	copies := classify.NumMotifCopies(a, v)
	motifBases := copies * motifLenOf(an.Spec, v)
	switch class {
	case classify.Spanning:
		if classify.PassesSpanning(a, vn, an.flankFilters(a, motifBases, true)) {
			tab.Record(class, copies)
		}
	case classify.LeftFlanking, classify.RightFlanking:
		if classify.PassesFlanking(a, vn, an.flankFilters(a, motifBases, false)) {
			tab.Record(class, copies)
		}
	case classify.InRepeat:
		motif := an.Spec.Graph.NodeSequence(v.MotifNodeID())
		purity := classify.WeightedPurity(segmentSequence(a, v.MotifNodeID()), motif)
		if classify.PassesInRepeat(purity, classify.DefaultQualityFilters()) {
			tab.Record(class, copies)
			tab.NoteInRepeatReadLength(a.QueryLen(), len(motif), an.maxMotifsPerRead())
		}
	}
}

// maxMotifsPerRead estimates the most motif copies a read could carry,
// from the longest read observed so far and the shortest motif at the
// locus; falls back to DefaultMaxMotifsPerRead before any reads arrive.
func (an *Analyzer) maxMotifsPerRead() int {
	readLen := an.stats.MaxReadLength()
	if readLen <= 0 {
		return DefaultMaxMotifsPerRead
	}
	motifLen := 0
	for _, v := range an.Spec.Variants {
		if !v.Kind.IsRepeat() {
			continue
		}
		l := len(an.Spec.Graph.NodeSequence(v.MotifNodeID()))
		if motifLen == 0 || l < motifLen {
			motifLen = l
		}
	}
	if motifLen <= 0 {
		return DefaultMaxMotifsPerRead
	}
	return (readLen + motifLen - 1) / motifLen
}

// segmentSequence reconstructs the query bases an alignment assigned to
// one node's visits (for in-repeat purity scoring).
func segmentSequence(a align.GraphAlignment, nodeID int) []byte {
	var out []byte
	pos := 0
	for _, na := range a.Nodes {
		l := na.QueryLen()
		if na.Node == nodeID {
			out = append(out, a.Query[pos:pos+l]...)
		}
		pos += l
	}
	return out
}

// recordSmallVariantSupport attributes one alignment to the ref or alt
// allele by which allele node it actually traverses. A swap's first
// node is the reference allele and its second the alt; a deletion's
// sequence node is the reference, with the alt observed only as a
// bypassing alignment; an insertion's node is the alt, with the ref
// observed as a bypass.
func (an *Analyzer) recordSmallVariantSupport(i int, v blueprint.VariantSpec, class classify.Class, a align.GraphAlignment) {
	if class == classify.Outside {
		return
	}
	traversesAlt := false
	for _, id := range v.AltNodeIDs() {
		if visitsNode(a, id) {
			traversesAlt = true
			break
		}
	}
	switch {
	case traversesAlt:
		an.altCounts[i]++
	case v.RefNodeID != nil && visitsNode(a, *v.RefNodeID):
		an.refCounts[i]++
	case class == classify.Bypassing:
		switch v.Kind {
		case blueprint.SmallDeletion:
			an.altCounts[i]++
		case blueprint.SmallInsertion:
			an.refCounts[i]++
		}
	}
}

func visitsNode(a align.GraphAlignment, id int) bool {
	for _, na := range a.Nodes {
		if na.Node == id {
			return true
		}
	}
	return false
}

// Finalize packages the accumulated evidence and per-variant genotype
// calls into a Findings record.
func (an *Analyzer) Finalize(sampleFemale bool) Findings {
	stats := an.stats.Finalize()
	copies := blueprint.CopyNumber(an.Spec.ContigKind, sampleFemale)

	stats.AlleleCount = copies

	variants := make([]VariantFindings, len(an.Spec.Variants))
	for i, v := range an.Spec.Variants {
		variants[i] = an.finalizeVariant(v, copies, stats)
	}
	return Findings{
		LocusID:  an.Spec.ID,
		Variants: variants,
		Stats:    stats,
	}
}

func (an *Analyzer) finalizeVariant(v blueprint.VariantSpec, copies int, stats LocusStats) VariantFindings {
	tab := an.tabulators[indexOfVariant(an.Spec.Variants, v.ID)]
	if v.Kind == blueprint.RepeatRare {
		// Fully off-target IRR pairs become artificial in-repeat reads
		// at the read-length-equivalent copy count, but only once the
		// locus itself produced a long in-repeat read (the tabulator's
		// gate).
		if extra := tab.EffectiveOffTargetIRRPairs(); extra > 0 {
			key := an.maxMotifsPerRead()
			for j := 0; j < 2*extra; j++ {
				tab.InRepeat.Inc(key)
			}
		}
	}
	tab.CollapseAll(evidence.CollapseCap(stats.MeanReadLength, motifLenOf(an.Spec, v)))

	vf := VariantFindings{
		VariantID: v.ID,
		Spanning:  map[int]int(tab.Spanning.Clone()),
		Flanking:  map[int]int(tab.Flanking.Clone()),
		InRepeat:  map[int]int(tab.InRepeat.Clone()),
	}

	if v.Kind.IsRepeat() {
		an.finalizeSTR(v, copies, stats, tab, &vf)
	} else {
		an.finalizeSmall(v, copies, stats, &vf)
	}
	return vf
}

func motifLenOf(spec *blueprint.LocusSpec, v blueprint.VariantSpec) int {
	if !v.Kind.IsRepeat() {
		return 1
	}
	return len(spec.Graph.NodeSequence(v.MotifNodeID()))
}

func indexOfVariant(variants []blueprint.VariantSpec, id string) int {
	for i, v := range variants {
		if v.ID == id {
			return i
		}
	}
	return -1
}

func (an *Analyzer) finalizeSTR(v blueprint.VariantSpec, copies int, stats LocusStats, tab *evidence.VariantTabulator, vf *VariantFindings) {
	motifLen := motifLenOf(an.Spec, v)
	spanningKeys := tab.Spanning.Keys()
	flankingKeys := tab.Flanking.Keys()
	inRepeatKeys := tab.InRepeat.Keys()

	haplotypeDepth := stats.EstimatedDepth
	if copies > 0 {
		haplotypeDepth = stats.EstimatedDepth / float64(copies)
	}

	params := genotype.STRParams{
		MotifLen:       motifLen,
		MeanReadLength: stats.MeanReadLength,
		MedianFragLen:  stats.MedianFragmentLen,
		HaplotypeDepth: haplotypeDepth,
	}

	candidates := genotype.CandidateAlleleSizes(
		spanningKeys, flankingKeys, inRepeatKeys,
		int(stats.MeanReadLength), motifLen,
		tab.InRepeat.Sum(), haplotypeDepth)

	fragments := an.assembleFragments(tab, candidates, motifLen, stats)
	if len(fragments) == 0 {
		return
	}

	if copies <= 1 {
		g := genotype.GenotypeOneAllele(fragments, candidates, params)
		vf.Genotype.STR = &genotype.Genotype{Short: g}
	} else {
		g := genotype.GenotypeTwoAllele(fragments, candidates, params)
		vf.Genotype.STR = &g
	}

	if an.lowDepth(tab, copies, stats) {
		vf.Filter = FilterLowDepth
	}
}

// assembleFragments builds one synthetic Fragment per observed
// motif-copy count in the count tables, weighted implicitly by
// repeating the same fragment once per observation. This keeps the
// genotyper's per-fragment likelihood honest without the analyzer
// needing to retain every raw alignment pair past tabulation.
func (an *Analyzer) assembleFragments(tab *evidence.VariantTabulator, candidates []int, motifLen int, stats LocusStats) []genotype.Fragment {
	var fragments []genotype.Fragment
	readLen := int(stats.MeanReadLength)
	fragLen := int(stats.MedianFragmentLen)
	addObserved := func(observed int, count int, inRepeat bool) {
		for n := 0; n < count; n++ {
			perAllele := make(map[int]genotype.FragmentHypothesis, len(candidates))
			for _, a := range candidates {
				score := align.MatchScore * minInt(observed, a) * motifLen
				score += abs(observed-a) * (align.GapOpen + align.GapExtend)
				perAllele[a] = genotype.FragmentHypothesis{
					Mate1: genotype.MateObservation{Score: score / 2, InRepeat: inRepeat, ObservedMotifs: observed},
					Mate2: genotype.MateObservation{Score: score / 2, InRepeat: inRepeat, ObservedMotifs: observed},
				}
			}
			fragments = append(fragments, genotype.Fragment{
				FragmentLen: fragLen,
				ReadLen:     readLen,
				PerAllele:   perAllele,
			})
		}
	}
	for k, v := range tab.Spanning {
		addObserved(k, v, false)
	}
	for k, v := range tab.Flanking {
		addObserved(k, v, false)
	}
	for k, v := range tab.InRepeat {
		addObserved(k, v, true)
	}
	return fragments
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (an *Analyzer) lowDepth(tab *evidence.VariantTabulator, copies int, stats LocusStats) bool {
	threshold := 5
	if copies <= 1 {
		threshold = 2
	}
	if tab.Breakpoint.Left < threshold || tab.Breakpoint.Right < threshold {
		return true
	}
	return stats.EstimatedDepth < an.Spec.Params.MinLocusCoverage
}

func (an *Analyzer) finalizeSmall(v blueprint.VariantSpec, copies int, stats LocusStats, vf *VariantFindings) {
	idx := indexOfVariant(an.Spec.Variants, v.ID)
	ref, alt := an.refCounts[idx], an.altCounts[idx]
	vf.RefCount, vf.AltCount = ref, alt

	haplotypeDepth := stats.EstimatedDepth
	if copies > 0 {
		haplotypeDepth = stats.EstimatedDepth / float64(copies)
	}
	errorRate := an.Spec.Params.ErrorRate
	if errorRate == 0 {
		errorRate = blueprint.DefaultGenotyperParams().ErrorRate
	}
	threshold := an.Spec.Params.LikelihoodRatioThreshold
	if threshold == 0 {
		threshold = blueprint.DefaultGenotyperParams().LikelihoodRatioThreshold
	}

	if ref+alt == 0 {
		return
	}
	if copies <= 1 {
		vf.Genotype.Small = genotype.GenotypeSmallVariantHaploid(ref, alt, haplotypeDepth, errorRate)
	} else {
		vf.Genotype.Small = genotype.GenotypeSmallVariantDiploid(ref, alt, haplotypeDepth, errorRate)
	}
	presence := genotype.AllelePresence(alt, ref, haplotypeDepth, errorRate, threshold)
	vf.Genotype.Presence = &presence

	if stats.EstimatedDepth < an.Spec.Params.MinLocusCoverage {
		vf.Filter = FilterLowDepth
	}
}
