package catalog

import (
	"fmt"
	"strings"

	"github.com/grailbio/strgraph/blueprint"
)

// Sex of the sequenced sample; drives per-contig copy number.
type Sex int

const (
	Female Sex = iota
	Male
)

// ParseSex maps the wire strings "male"/"female" (case-insensitive).
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(s) {
	case "female":
		return Female, nil
	case "male":
		return Male, nil
	default:
		return 0, fmt.Errorf("sex must be 'male' or 'female', got %q", s)
	}
}

// Sample carries the per-sample parameters: the sample id recorded in
// output, and the sex used to determine per-contig copy number
// (autosomes 2; X 2 if female else 1; Y 0 if female else 1).
type Sample struct {
	ID  string
	Sex Sex
}

// CopyNumber returns how many copies of a contig of the given kind this
// sample carries.
func (s Sample) CopyNumber(kind blueprint.ContigKind) int {
	return blueprint.CopyNumber(kind, s.Sex == Female)
}
