// Package catalog decodes the locus-catalog wire format and drives
// blueprint compilation. The catalog is a JSON array of locus entries;
// unknown fields and missing required fields are hard errors, matching
// the contract in the findings/catalog interface description.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/strgraph/blueprint"
)

// Region is the wire shape of a reference interval.
type Region struct {
	Contig string `json:"contig"`
	Start  int64  `json:"start"`
	End    int64  `json:"end"`
}

func (r Region) toRefRegion() blueprint.RefRegion {
	return blueprint.RefRegion{Contig: r.Contig, Start: r.Start, End: r.End}
}

// Overrides carries the optional per-locus genotyper parameter
// overrides. Zero values mean "use the default".
type Overrides struct {
	ErrorRate                float64 `json:"error_rate,omitempty"`
	LikelihoodRatioThreshold float64 `json:"likelihood_ratio_threshold,omitempty"`
	MinLocusCoverage         float64 `json:"min_locus_coverage,omitempty"`
}

// Entry is one locus on the wire.
type Entry struct {
	LocusID          string     `json:"locus_id"`
	Structure        string     `json:"structure"`
	ReferenceRegions []Region   `json:"reference_regions"`
	TargetRegions    []Region   `json:"target_regions,omitempty"`
	OffTargetRegions []Region   `json:"offtarget_regions,omitempty"`
	VariantIDs       []string   `json:"variant_ids"`
	VariantTypes     []string   `json:"variant_types"`
	FlankLength      int        `json:"flank_length,omitempty"`
	Overrides        *Overrides `json:"overrides,omitempty"`
}

// Load decodes a catalog from r. Unknown fields error out; so do
// entries with missing required fields or with per-variant-type
// requirements unmet (offtarget_regions is required iff any variant is
// a rare repeat).
func Load(r io.Reader) ([]Entry, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var entries []Entry
	if err := dec.Decode(&entries); err != nil {
		return nil, errors.E(err, "decoding locus catalog")
	}
	for i, e := range entries {
		if err := validate(e); err != nil {
			return nil, errors.E(err, fmt.Sprintf("catalog entry %d (locus %q)", i, e.LocusID))
		}
	}
	return entries, nil
}

func validate(e Entry) error {
	if e.LocusID == "" {
		return errors.E("locus_id is required")
	}
	if e.Structure == "" {
		return errors.E("structure is required")
	}
	if len(e.ReferenceRegions) == 0 {
		return errors.E("reference_regions is required")
	}
	if len(e.VariantIDs) != len(e.ReferenceRegions) || len(e.VariantTypes) != len(e.ReferenceRegions) {
		return errors.E("variant_ids and variant_types must be parallel to reference_regions")
	}
	anyRare := false
	for _, t := range e.VariantTypes {
		kind, err := blueprint.ParseVariantType(t)
		if err != nil {
			return err
		}
		if kind == blueprint.RepeatRare {
			anyRare = true
		}
	}
	if anyRare && len(e.OffTargetRegions) == 0 {
		return errors.E("offtarget_regions is required when any variant is a RareRepeat")
	}
	if !anyRare && len(e.OffTargetRegions) > 0 {
		return errors.E("offtarget_regions supplied but no variant is a RareRepeat")
	}
	return nil
}

// Description converts a wire entry into the blueprint compiler's input
// shape, applying parameter defaults and overrides.
func (e Entry) Description() blueprint.LocusDescription {
	desc := blueprint.LocusDescription{
		LocusID:      e.LocusID,
		Structure:    e.Structure,
		VariantIDs:   e.VariantIDs,
		VariantTypes: e.VariantTypes,
		FlankLength:  e.FlankLength,
	}
	for _, r := range e.ReferenceRegions {
		desc.ReferenceRegions = append(desc.ReferenceRegions, r.toRefRegion())
	}
	for _, r := range e.TargetRegions {
		desc.TargetRegions = append(desc.TargetRegions, r.toRefRegion())
	}
	for _, r := range e.OffTargetRegions {
		desc.OffTargetRegions = append(desc.OffTargetRegions, r.toRefRegion())
	}
	if e.Overrides != nil {
		params := blueprint.DefaultGenotyperParams()
		if e.Overrides.ErrorRate != 0 {
			params.ErrorRate = e.Overrides.ErrorRate
		}
		if e.Overrides.LikelihoodRatioThreshold != 0 {
			params.LikelihoodRatioThreshold = e.Overrides.LikelihoodRatioThreshold
		}
		if e.Overrides.MinLocusCoverage != 0 {
			params.MinLocusCoverage = e.Overrides.MinLocusCoverage
		}
		desc.Overrides = &params
	}
	return desc
}

// CompileAll compiles every catalog entry against ref. A locus whose
// description fails blueprint compilation is skipped and reported via
// the onInvalid callback (spec'd failure semantics: surface and skip,
// continue the run). Reference-access failures abort.
func CompileAll(entries []Entry, ref blueprint.Reference, onInvalid func(locusID string, err error)) ([]*blueprint.LocusSpec, error) {
	specs := make([]*blueprint.LocusSpec, 0, len(entries))
	for _, e := range entries {
		spec, err := blueprint.Compile(e.Description(), ref)
		if err != nil {
			if _, ok := err.(*blueprint.LocusSpecInvalidError); ok {
				if onInvalid != nil {
					onInvalid(e.LocusID, err)
				}
				continue
			}
			return nil, errors.E(err, fmt.Sprintf("locus %q", e.LocusID))
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
