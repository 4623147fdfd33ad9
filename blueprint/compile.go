package blueprint

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/strgraph/graph"
)

// Reference is the reference-sequence collaborator: it
// returns uppercase reference bases for a 0-based half-open interval.
// encoding/fasta.Fasta satisfies this interface as-is.
type Reference interface {
	Get(seqName string, start, end uint64) (string, error)
}

// LocusDescription is the catalog wire shape for one locus,
// already decoded from JSON by package catalog.
type LocusDescription struct {
	LocusID          string
	Structure        string
	ReferenceRegions []RefRegion // one per variant atom, in structure order
	TargetRegions    []RefRegion
	OffTargetRegions []RefRegion
	VariantIDs       []string
	VariantTypes     []string
	FlankLength      int // defaults to 1000 if 0
	Overrides        *GenotyperParams
}

const maxFlankNs = 5
const defaultFlankLength = 1000

// Compile builds a LocusSpec from a LocusDescription, fetching flank and
// gap sequence from ref. On any ill-formed input it returns
// a *LocusSpecInvalidError naming the locus and the failing check.
func Compile(desc LocusDescription, ref Reference) (*LocusSpec, error) {
	flankLen := desc.FlankLength
	if flankLen <= 0 {
		flankLen = defaultFlankLength
	}

	atoms, err := parseStructure(desc.Structure)
	if err != nil {
		return nil, invalidLocus(desc.LocusID, err)
	}

	variantAtomIdx := make([]int, 0)
	for i, a := range atoms {
		if a.isVariant() {
			variantAtomIdx = append(variantAtomIdx, i)
		}
	}
	if len(variantAtomIdx) != len(desc.ReferenceRegions) {
		return nil, invalidLocus(desc.LocusID, errors.E(fmt.Sprintf(
			"structure has %d variant atoms but %d reference regions were supplied",
			len(variantAtomIdx), len(desc.ReferenceRegions))))
	}
	if len(desc.VariantIDs) != len(desc.ReferenceRegions) || len(desc.VariantTypes) != len(desc.ReferenceRegions) {
		return nil, invalidLocus(desc.LocusID, errors.E("variant_ids/variant_types must be parallel to reference_regions"))
	}

	contig := desc.ReferenceRegions[0].Contig

	// Determine node count: 1 node per literal/repeat/optional atom, 2 per swap.
	nodeCount := 0
	atomNodes := make([][]int, len(atoms)) // entry==exit node set per atom
	for i, a := range atoms {
		start := nodeCount
		switch a.kind {
		case atomSwap:
			atomNodes[i] = []int{start, start + 1}
			nodeCount += 2
		default:
			atomNodes[i] = []int{start}
			nodeCount++
		}
	}

	g := graph.New(nodeCount)

	// Assign sequences and reference intervals.
	variantSpecs := make([]VariantSpec, 0, len(variantAtomIdx))
	for vi, ai := range variantAtomIdx {
		a := atoms[ai]
		region := desc.ReferenceRegions[vi]
		kind, err := ParseVariantType(desc.VariantTypes[vi])
		if err != nil {
			return nil, invalidLocus(desc.LocusID, err)
		}
		nodes := atomNodes[ai]
		switch a.kind {
		case atomRepeat:
			g.SetNodeSequence(nodes[0], a.literal)
			g.SetNodeRefInterval(nodes[0], region.toGraphInterval())
			g.AddEdge(nodes[0], nodes[0])
		case atomOptional:
			g.SetNodeSequence(nodes[0], a.literal)
			g.SetNodeRefInterval(nodes[0], region.toGraphInterval())
		case atomSwap:
			g.SetNodeSequence(nodes[0], a.literal)
			g.SetNodeSequence(nodes[1], a.altLiteral)
			g.SetNodeRefInterval(nodes[0], region.toGraphInterval())
			g.SetNodeRefInterval(nodes[1], region.toGraphInterval())
		}
		// The reference-allele node, where one exists in the graph: a
		// swap's first literal is the reference sequence, and a deletion
		// allele's sequence node is the reference (the alt is its
		// absence). Insertions and repeats have no reference node.
		var refNode *int
		switch {
		case a.kind == atomSwap:
			r := nodes[0]
			refNode = &r
		case a.kind == atomOptional && kind == SmallDeletion:
			r := nodes[0]
			refNode = &r
		}
		variantSpecs = append(variantSpecs, VariantSpec{
			ID:          desc.VariantIDs[vi],
			Kind:        kind,
			NodeIDs:     append([]int(nil), nodes...),
			RefInterval: region.toGraphInterval(),
			RefNodeID:   refNode,
		})
	}

	// Flank spans: left flank ends where the first variant atom's region
	// starts; right flank begins where the last variant atom's region ends.
	variantSpanStart := desc.ReferenceRegions[0].Start
	variantSpanEnd := desc.ReferenceRegions[len(desc.ReferenceRegions)-1].End
	for _, r := range desc.ReferenceRegions {
		if r.Start < variantSpanStart {
			variantSpanStart = r.Start
		}
		if r.End > variantSpanEnd {
			variantSpanEnd = r.End
		}
	}

	leftFlankStart := variantSpanStart - int64(flankLen)
	if leftFlankStart < 0 {
		leftFlankStart = 0
	}
	leftSeq, err := ref.Get(contig, uint64(leftFlankStart), uint64(variantSpanStart))
	if err != nil {
		return nil, err // ReferenceOutOfRange: fatal, propagated as-is
	}
	rightSeq, err := ref.Get(contig, uint64(variantSpanEnd), uint64(variantSpanEnd)+uint64(flankLen))
	if err != nil {
		return nil, err
	}
	totalNs := countNs(leftSeq) + countNs(rightSeq)
	if totalNs > maxFlankNs {
		return nil, invalidLocus(desc.LocusID, errors.E(fmt.Sprintf("flanks contain %d Ns, exceeding budget of %d", totalNs, maxFlankNs)))
	}

	leftNode := atomNodes[0][0]
	rightNode := atomNodes[len(atoms)-1][0]
	g.SetNodeSequence(leftNode, leftSeq)
	g.SetNodeRefInterval(leftNode, graph.RefInterval{Contig: contig, Start: leftFlankStart, End: variantSpanStart})
	g.SetNodeSequence(rightNode, rightSeq)
	g.SetNodeRefInterval(rightNode, graph.RefInterval{Contig: contig, Start: variantSpanEnd, End: variantSpanEnd + int64(flankLen)})

	// Interrupting literal atoms (neither flank nor variant) get synthesized
	// reference intervals spanning the gap between the adjacent variants.
	for i := 1; i < len(atoms)-1; i++ {
		if atoms[i].isVariant() {
			continue
		}
		prevEnd := prevVariantRefEnd(atoms, desc.ReferenceRegions, variantAtomIdx, i)
		nextStart := nextVariantRefStart(atoms, desc.ReferenceRegions, variantAtomIdx, i)
		seq, err := ref.Get(contig, uint64(prevEnd), uint64(nextStart))
		if err != nil {
			return nil, err
		}
		node := atomNodes[i][0]
		g.SetNodeSequence(node, seq)
		g.SetNodeRefInterval(node, graph.RefInterval{Contig: contig, Start: prevEnd, End: nextStart})
	}

	// Wire edges: every node runs to every successor atom's
	// node(s), and additionally to the node(s) after any run of skippable
	// atoms immediately following it.
	for i := 0; i < len(atoms)-1; i++ {
		targets := successorNodes(atoms, atomNodes, i+1)
		for _, from := range atomNodes[i] {
			for _, to := range targets {
				g.AddEdge(from, to)
			}
		}
	}

	if err := g.CheckInvariants(); err != nil {
		return nil, invalidLocus(desc.LocusID, err)
	}

	params := DefaultGenotyperParams()
	if desc.Overrides != nil {
		if desc.Overrides.ErrorRate > 0 {
			params.ErrorRate = desc.Overrides.ErrorRate
		}
		if desc.Overrides.LikelihoodRatioThreshold > 0 {
			params.LikelihoodRatioThreshold = desc.Overrides.LikelihoodRatioThreshold
		}
		if desc.Overrides.MinLocusCoverage > 0 {
			params.MinLocusCoverage = desc.Overrides.MinLocusCoverage
		}
	}
	params.RareRepeat = false
	for _, v := range variantSpecs {
		if v.Kind == RepeatRare {
			params.RareRepeat = true
		}
	}
	if params.RareRepeat && len(desc.OffTargetRegions) == 0 {
		return nil, invalidLocus(desc.LocusID, errors.E("rare-repeat locus requires offtarget_regions"))
	}

	return &LocusSpec{
		ID:               desc.LocusID,
		ContigKind:       InferContigKind(contig),
		TargetRegions:    desc.TargetRegions,
		OffTargetRegions: desc.OffTargetRegions,
		Graph:            g,
		Variants:         variantSpecs,
		Params:           params,
	}, nil
}

// successorNodes returns the union of node ids reachable as "the next
// thing after atom j-1", recursing through any run of skippable atoms
// starting at atoms[j].
func successorNodes(atoms []atom, atomNodes [][]int, j int) []int {
	if j >= len(atoms) {
		return nil
	}
	out := append([]int(nil), atomNodes[j]...)
	if atoms[j].skippable() {
		out = append(out, successorNodes(atoms, atomNodes, j+1)...)
	}
	return out
}

func prevVariantRefEnd(atoms []atom, regions []RefRegion, variantAtomIdx []int, literalIdx int) int64 {
	for k := len(variantAtomIdx) - 1; k >= 0; k-- {
		if variantAtomIdx[k] < literalIdx {
			return regions[k].End
		}
	}
	return regions[0].Start
}

func nextVariantRefStart(atoms []atom, regions []RefRegion, variantAtomIdx []int, literalIdx int) int64 {
	for k := 0; k < len(variantAtomIdx); k++ {
		if variantAtomIdx[k] > literalIdx {
			return regions[k].Start
		}
	}
	return regions[len(regions)-1].End
}

func countNs(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == 'N' || s[i] == 'n' {
			n++
		}
	}
	return n
}
