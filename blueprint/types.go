// Package blueprint compiles a locus structure description
// into a sequence graph (package graph) plus the variant metadata the
// rest of the core consumes.
package blueprint

import (
	"strings"

	"github.com/grailbio/strgraph/graph"
)

// RefRegion is a 0-based, half-open reference interval on a named contig.
type RefRegion struct {
	Contig string
	Start  int64
	End    int64
}

func (r RefRegion) toGraphInterval() graph.RefInterval {
	return graph.RefInterval{Contig: r.Contig, Start: r.Start, End: r.End}
}

// ContigKind names the sex-chromosome model used for
// per-sample ploidy.
type ContigKind int

const (
	Autosome ContigKind = iota
	ChrX
	ChrY
)

// InferContigKind guesses a contig's copy-number kind from its name.
// Real catalogs name contigs inconsistently ("X", "chrX", "ChrX"); this
// is a deliberately narrow heuristic, not a general contig-naming parser.
func InferContigKind(contig string) ContigKind {
	switch strings.ToLower(strings.TrimPrefix(strings.ToLower(contig), "chr")) {
	case "x":
		return ChrX
	case "y":
		return ChrY
	default:
		return Autosome
	}
}

// CopyNumber returns the number of copies of a contig of the given kind
// a sample of the given sex carries.
func CopyNumber(kind ContigKind, female bool) int {
	switch kind {
	case Autosome:
		return 2
	case ChrX:
		if female {
			return 2
		}
		return 1
	case ChrY:
		if female {
			return 0
		}
		return 1
	default:
		return 2
	}
}

// VariantKind is the closed sum type of variant classifications:
// repeats (common/rare) and small variants (insertion/deletion/
// swap/SMN). Dispatch elsewhere in the core is by tag match.
type VariantKind int

const (
	RepeatCommon VariantKind = iota
	RepeatRare
	SmallInsertion
	SmallDeletion
	SmallSwap
	SmallSMN
)

func (k VariantKind) IsRepeat() bool {
	return k == RepeatCommon || k == RepeatRare
}

func (k VariantKind) IsSmallVariant() bool { return !k.IsRepeat() }

// ParseVariantType maps the catalog wire string
// to a VariantKind.
func ParseVariantType(s string) (VariantKind, error) {
	switch s {
	case "Repeat":
		return RepeatCommon, nil
	case "RareRepeat":
		return RepeatRare, nil
	case "Insertion":
		return SmallInsertion, nil
	case "Deletion":
		return SmallDeletion, nil
	case "Swap":
		return SmallSwap, nil
	case "SMN":
		return SmallSMN, nil
	default:
		return 0, unknownVariantType(s)
	}
}

// GenotyperParams carries the per-locus genotyper parameter overrides.
type GenotyperParams struct {
	ErrorRate                float64
	LikelihoodRatioThreshold float64
	MinLocusCoverage         float64
	MinBreakpointReads       int
	RareRepeat               bool
}

// DefaultGenotyperParams returns the default parameter set.
func DefaultGenotyperParams() GenotyperParams {
	return GenotyperParams{
		ErrorRate:                0.02,
		LikelihoodRatioThreshold: 10000,
		MinLocusCoverage:         10,
		MinBreakpointReads:       5,
	}
}

// VariantSpec is one embedded variant within a locus.
type VariantSpec struct {
	ID          string
	Kind        VariantKind
	NodeIDs     []int // repeat: single self-loop node; small variant: 1-2 alt nodes [+ ref node]
	RefInterval graph.RefInterval
	RefNodeID   *int // optional distinguished reference node
}

// MotifNodeID returns the sole self-loop node id of a repeat variant.
func (v VariantSpec) MotifNodeID() int {
	return v.NodeIDs[0]
}

// AltNodeIDs returns the node ids embodying the alt allele(s): the
// variant's node set minus the distinguished reference node. For a
// deletion the result is empty (the alt allele is the sequence's
// absence, observed as a bypassing alignment).
func (v VariantSpec) AltNodeIDs() []int {
	if v.RefNodeID == nil {
		return v.NodeIDs
	}
	out := make([]int, 0, len(v.NodeIDs))
	for _, id := range v.NodeIDs {
		if id != *v.RefNodeID {
			out = append(out, id)
		}
	}
	return out
}

// LocusSpec is the compiled, read-only representation of one catalog
// locus.
type LocusSpec struct {
	ID               string
	ContigKind       ContigKind
	TargetRegions    []RefRegion
	OffTargetRegions []RefRegion
	Graph            *graph.Graph
	Variants         []VariantSpec
	Params           GenotyperParams
}

// VariantByID looks up a variant by id.
func (l *LocusSpec) VariantByID(id string) (VariantSpec, bool) {
	for _, v := range l.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return VariantSpec{}, false
}

// HasRareRepeat reports whether any variant at the locus is a rare
// repeat, which gates the off-target IRR-counting path.
func (l *LocusSpec) HasRareRepeat() bool {
	for _, v := range l.Variants {
		if v.Kind == RepeatRare {
			return true
		}
	}
	return false
}
