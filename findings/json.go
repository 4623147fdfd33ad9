// Package findings serializes per-locus findings records and provides
// the realigned-BAM sink. Findings are written as one JSON object per
// locus, in the wire shape the external-interface contract names.
package findings

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/strgraph/genotype"
	"github.com/grailbio/strgraph/locus"
)

type alleleJSON struct {
	Size int `json:"size"`
	CILo int `json:"ci_lo"`
	CIHi int `json:"ci_hi"`
}

type strGenotypeJSON struct {
	Short alleleJSON  `json:"short"`
	Long  *alleleJSON `json:"long,omitempty"`
}

type presenceJSON struct {
	Status  string  `json:"status"`
	Log10LR float64 `json:"log10_lr"`
}

type variantJSON struct {
	VariantID string      `json:"variant_id"`
	Spanning  map[int]int `json:"spanning"`
	Flanking  map[int]int `json:"flanking"`
	InRepeat  map[int]int `json:"in_repeat"`
	Genotype  interface{} `json:"genotype"`
	Filters   []string    `json:"filters,omitempty"`

	RefCount *int          `json:"ref_count,omitempty"`
	AltCount *int          `json:"alt_count,omitempty"`
	Presence *presenceJSON `json:"allele_presence,omitempty"`
}

type statsJSON struct {
	MeanReadLength    float64 `json:"mean_read_length"`
	MedianFragmentLen float64 `json:"median_fragment_length"`
	EstimatedDepth    float64 `json:"estimated_depth"`
	AlleleCount       int     `json:"allele_count"`
}

type locusJSON struct {
	LocusID  string        `json:"locus_id"`
	Variants []variantJSON `json:"variants"`
	Stats    statsJSON     `json:"stats"`
}

// Writer emits one JSON line per locus. Safe for concurrent use by
// analyzers finishing on different worker goroutines.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write serializes one locus' findings.
func (w *Writer) Write(f locus.Findings) error {
	rec := toJSON(f)
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		return errors.E(err, "writing findings for locus", f.LocusID)
	}
	return nil
}

func toJSON(f locus.Findings) locusJSON {
	out := locusJSON{
		LocusID: f.LocusID,
		Stats: statsJSON{
			MeanReadLength:    f.Stats.MeanReadLength,
			MedianFragmentLen: f.Stats.MedianFragmentLen,
			EstimatedDepth:    f.Stats.EstimatedDepth,
			AlleleCount:       f.Stats.AlleleCount,
		},
	}
	for _, v := range f.Variants {
		out.Variants = append(out.Variants, variantToJSON(v))
	}
	return out
}

func variantToJSON(v locus.VariantFindings) variantJSON {
	vj := variantJSON{
		VariantID: v.VariantID,
		Spanning:  nonNil(v.Spanning),
		Flanking:  nonNil(v.Flanking),
		InRepeat:  nonNil(v.InRepeat),
		Genotype:  genotypeValue(v.Genotype),
	}
	if v.Filter == locus.FilterLowDepth {
		vj.Filters = []string{v.Filter.String()}
	}
	if v.Genotype.Presence != nil {
		ref, alt := v.RefCount, v.AltCount
		vj.RefCount = &ref
		vj.AltCount = &alt
		vj.Presence = &presenceJSON{
			Status:  v.Genotype.Presence.Status.String(),
			Log10LR: v.Genotype.Presence.LR,
		}
	}
	return vj
}

func genotypeValue(g locus.VariantGenotype) interface{} {
	if g.STR != nil {
		out := strGenotypeJSON{Short: alleleJSON{
			Size: g.STR.Short.Size, CILo: g.STR.Short.CILo, CIHi: g.STR.Short.CIHi,
		}}
		if g.STR.Long != nil {
			out.Long = &alleleJSON{Size: g.STR.Long.Size, CILo: g.STR.Long.CILo, CIHi: g.STR.Long.CIHi}
		}
		return out
	}
	if g.Small != genotype.GenotypeNone {
		return g.Small.String()
	}
	return nil
}

func nonNil(m map[int]int) map[int]int {
	if m == nil {
		return map[int]int{}
	}
	return m
}
