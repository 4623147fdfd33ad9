package findings

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/grailbio/strgraph/genotype"
	"github.com/grailbio/strgraph/locus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSTRFindings(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	long := genotype.AlleleSizeCI{Size: 3, CILo: 1, CIHi: 4}
	err := w.Write(locus.Findings{
		LocusID: "CLOC",
		Variants: []locus.VariantFindings{{
			VariantID: "V1",
			Spanning:  map[int]int{1: 2, 3: 2},
			Flanking:  map[int]int{},
			InRepeat:  map[int]int{},
			Genotype: locus.VariantGenotype{STR: &genotype.Genotype{
				Short: genotype.AlleleSizeCI{Size: 1, CILo: 1, CIHi: 1},
				Long:  &long,
			}},
			Filter: locus.FilterLowDepth,
		}},
		Stats: locus.LocusStats{MeanReadLength: 9, MedianFragmentLen: 18, EstimatedDepth: 2.5, AlleleCount: 2},
	})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "CLOC", got["locus_id"])

	variants := got["variants"].([]interface{})
	require.Len(t, variants, 1)
	v := variants[0].(map[string]interface{})
	assert.Equal(t, "V1", v["variant_id"])
	assert.Equal(t, map[string]interface{}{"1": 2.0, "3": 2.0}, v["spanning"])
	assert.Equal(t, []interface{}{"LowDepth"}, v["filters"])

	g := v["genotype"].(map[string]interface{})
	short := g["short"].(map[string]interface{})
	assert.Equal(t, 1.0, short["size"])
	longJSON := g["long"].(map[string]interface{})
	assert.Equal(t, 3.0, longJSON["size"])

	stats := got["stats"].(map[string]interface{})
	assert.Equal(t, 2.5, stats["estimated_depth"])
	assert.Equal(t, 2.0, stats["allele_count"])
}

func TestWriteSmallVariantFindings(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.Write(locus.Findings{
		LocusID: "SMN",
		Variants: []locus.VariantFindings{{
			VariantID: "V1",
			Genotype: locus.VariantGenotype{
				Small:    genotype.GenotypeRefAlt,
				Presence: &genotype.PresenceResult{Status: genotype.Present, LR: 7.2},
			},
			RefCount: 12,
			AltCount: 11,
		}},
	})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	v := got["variants"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "REF/ALT", v["genotype"])
	assert.Equal(t, 12.0, v["ref_count"])
	assert.Equal(t, 11.0, v["alt_count"])
	presence := v["allele_presence"].(map[string]interface{})
	assert.Equal(t, "Present", presence["status"])
	assert.InDelta(t, 7.2, presence["log10_lr"].(float64), 1e-9)
}

func TestWriteNoGenotypeIsNull(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(locus.Findings{
		LocusID:  "EMPTY",
		Variants: []locus.VariantFindings{{VariantID: "V1"}},
	}))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	v := got["variants"].([]interface{})[0].(map[string]interface{})
	gval, present := v["genotype"]
	assert.True(t, present)
	assert.Nil(t, gval)
}
