package blueprint

import "github.com/grailbio/base/errors"

// LocusSpecInvalidError reports an unusable locus description: the
// structure string is ill-formed, variant counts don't match supplied
// reference intervals, or flanks exceed the N budget. Callers surface
// this and skip the locus; the run continues.
type LocusSpecInvalidError struct {
	LocusID string
	Reason  string
}

func (e *LocusSpecInvalidError) Error() string {
	return "locus " + e.LocusID + ": " + e.Reason
}

func invalidLocus(locusID string, reason error) error {
	return &LocusSpecInvalidError{LocusID: locusID, Reason: reason.Error()}
}

func unknownVariantType(s string) error {
	return errors.E("blueprint: unknown variant type", s)
}
