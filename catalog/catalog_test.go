package catalog

import (
	"fmt"
	"strings"
	"testing"

	"github.com/grailbio/strgraph/blueprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalCatalog = `[
  {
    "locus_id": "CLOC",
    "structure": "ATTCGA(C)*ATGTCG",
    "reference_regions": [{"contig": "chr1", "start": 6, "end": 7}],
    "variant_ids": ["V1"],
    "variant_types": ["Repeat"],
    "flank_length": 6
  }
]`

func TestLoadMinimalCatalog(t *testing.T) {
	entries, err := Load(strings.NewReader(minimalCatalog))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "CLOC", entries[0].LocusID)
	assert.Equal(t, "ATTCGA(C)*ATGTCG", entries[0].Structure)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader(`[{"locus_id": "X", "structure": "A(C)*G",
		"reference_regions": [{"contig": "chr1", "start": 1, "end": 2}],
		"variant_ids": ["V"], "variant_types": ["Repeat"],
		"bogus_field": true}]`))
	require.Error(t, err)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	cases := []string{
		`[{"structure": "A(C)*G", "reference_regions": [{"contig": "c", "start": 1, "end": 2}], "variant_ids": ["V"], "variant_types": ["Repeat"]}]`,
		`[{"locus_id": "X", "reference_regions": [{"contig": "c", "start": 1, "end": 2}], "variant_ids": ["V"], "variant_types": ["Repeat"]}]`,
		`[{"locus_id": "X", "structure": "A(C)*G", "variant_ids": ["V"], "variant_types": ["Repeat"]}]`,
		`[{"locus_id": "X", "structure": "A(C)*G", "reference_regions": [{"contig": "c", "start": 1, "end": 2}], "variant_ids": [], "variant_types": ["Repeat"]}]`,
	}
	for i, c := range cases {
		_, err := Load(strings.NewReader(c))
		assert.Error(t, err, "case %d", i)
	}
}

func TestLoadRareRepeatRequiresOffTargetRegions(t *testing.T) {
	_, err := Load(strings.NewReader(`[{"locus_id": "X", "structure": "A(C)*G",
		"reference_regions": [{"contig": "c", "start": 1, "end": 2}],
		"variant_ids": ["V"], "variant_types": ["RareRepeat"]}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offtarget_regions")
}

func TestLoadRejectsUnknownVariantType(t *testing.T) {
	_, err := Load(strings.NewReader(`[{"locus_id": "X", "structure": "A(C)*G",
		"reference_regions": [{"contig": "c", "start": 1, "end": 2}],
		"variant_ids": ["V"], "variant_types": ["Mystery"]}]`))
	require.Error(t, err)
}

func TestDescriptionAppliesOverrides(t *testing.T) {
	e := Entry{
		LocusID:          "X",
		Structure:        "A(C)*G",
		ReferenceRegions: []Region{{Contig: "c", Start: 1, End: 2}},
		VariantIDs:       []string{"V"},
		VariantTypes:     []string{"Repeat"},
		Overrides:        &Overrides{ErrorRate: 0.05},
	}
	desc := e.Description()
	require.NotNil(t, desc.Overrides)
	assert.Equal(t, 0.05, desc.Overrides.ErrorRate)
	// Unset overrides keep defaults.
	assert.Equal(t, blueprint.DefaultGenotyperParams().LikelihoodRatioThreshold, desc.Overrides.LikelihoodRatioThreshold)
}

type stubRef map[string]string

func (r stubRef) Get(contig string, start, end uint64) (string, error) {
	s := r[contig]
	if end > uint64(len(s)) {
		return "", fmt.Errorf("reference out of range: %s:[%d,%d)", contig, start, end)
	}
	return s[start:end], nil
}

func TestCompileAllSkipsInvalidLoci(t *testing.T) {
	entries, err := Load(strings.NewReader(minimalCatalog))
	require.NoError(t, err)

	// An entry whose structure fails to parse: surfaced and skipped.
	entries = append(entries, Entry{
		LocusID:          "BROKEN",
		Structure:        "((((",
		ReferenceRegions: []Region{{Contig: "chr1", Start: 6, End: 7}},
		VariantIDs:       []string{"V1"},
		VariantTypes:     []string{"Repeat"},
	})

	var skipped []string
	specs, err := CompileAll(entries, stubRef{"chr1": "ATTCGACATGTCG"}, func(id string, cerr error) {
		skipped = append(skipped, id)
	})
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "CLOC", specs[0].ID)
	assert.Equal(t, []string{"BROKEN"}, skipped)
}
