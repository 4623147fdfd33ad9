package genotype

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// SmallVariantGenotype is the closed set of diploid/haploid small
// variant genotype calls.
type SmallVariantGenotype int

const (
	GenotypeNone SmallVariantGenotype = iota
	GenotypeRefRef
	GenotypeRefAlt
	GenotypeAltAlt
	GenotypeRef
	GenotypeAlt
)

func (g SmallVariantGenotype) String() string {
	switch g {
	case GenotypeRefRef:
		return "REF/REF"
	case GenotypeRefAlt:
		return "REF/ALT"
	case GenotypeAltAlt:
		return "ALT/ALT"
	case GenotypeRef:
		return "REF"
	case GenotypeAlt:
		return "ALT"
	default:
		return "None"
	}
}

// PresenceStatus is the allele-presence verdict.
type PresenceStatus int

const (
	Uncertain PresenceStatus = iota
	Present
	Absent
)

func (s PresenceStatus) String() string {
	switch s {
	case Present:
		return "Present"
	case Absent:
		return "Absent"
	default:
		return "Uncertain"
	}
}

// PresenceResult bundles the verdict with the log10 likelihood ratio
// that produced it.
type PresenceResult struct {
	Status PresenceStatus
	LR     float64
}

// poissonLogPMF returns log(Poisson(mean).PMF(k)) for non-negative
// integer k, handling mean == 0 (degenerate at 0) without invoking
// distuv on an invalid parameter.
func poissonLogPMF(mean float64, k int) float64 {
	if mean <= 0 {
		if k == 0 {
			return 0
		}
		return math.Inf(-1)
	}
	p := distuv.Poisson{Lambda: mean}
	return p.LogProb(float64(k))
}

// GenotypeSmallVariantDiploid picks the maximum-likelihood genotype
// among {REF/REF, REF/ALT, ALT/ALT} for a diploid locus given ref/alt
// supporting read counts and haplotype depth. Zero total
// reads reports GenotypeNone.
func GenotypeSmallVariantDiploid(refCount, altCount int, depth, errorRate float64) SmallVariantGenotype {
	if refCount+altCount == 0 {
		return GenotypeNone
	}
	llRefRef := poissonLogPMF(2*depth, refCount) + poissonLogPMF(errorRate*depth, altCount)
	llAltAlt := poissonLogPMF(errorRate*depth, refCount) + poissonLogPMF(2*depth, altCount)
	llRefAlt := poissonLogPMF(depth, refCount) + poissonLogPMF(depth, altCount)

	best := GenotypeRefRef
	bestLL := llRefRef
	if llRefAlt > bestLL {
		best, bestLL = GenotypeRefAlt, llRefAlt
	}
	if llAltAlt > bestLL {
		best, bestLL = GenotypeAltAlt, llAltAlt
	}
	return best
}

// GenotypeSmallVariantHaploid picks between {REF, ALT} for a haploid
// locus.
func GenotypeSmallVariantHaploid(refCount, altCount int, depth, errorRate float64) SmallVariantGenotype {
	if refCount+altCount == 0 {
		return GenotypeNone
	}
	llRef := poissonLogPMF(depth, refCount) + poissonLogPMF(errorRate*depth, altCount)
	llAlt := poissonLogPMF(errorRate*depth, refCount) + poissonLogPMF(depth, altCount)
	if llAlt > llRef {
		return GenotypeAlt
	}
	return GenotypeRef
}

// binomialLogPMF returns log(Binomial(n, p).PMF(k)).
func binomialLogPMF(n int, p float64, k int) float64 {
	b := distuv.Binomial{N: float64(n), P: p}
	return b.LogProb(float64(k))
}

// AllelePresence runs the independent allele-presence test for
// one allele's supporting count t given the other allele's count o at
// haplotype depth d: log10 LR = (log Poisson(d, t) - log Binomial(t+o,
// error_rate, t)) / ln 10. Present if LR > log10(threshold), Absent if
// LR < -log10(threshold), else Uncertain.
func AllelePresence(t, o int, depth, errorRate, threshold float64) PresenceResult {
	n := t + o
	logPoisson := poissonLogPMF(depth, t)
	logBinomial := binomialLogPMF(n, errorRate, t)
	lr := (logPoisson - logBinomial) / math.Ln10
	logThreshold := math.Log10(threshold)

	switch {
	case lr > logThreshold:
		return PresenceResult{Status: Present, LR: lr}
	case lr < -logThreshold:
		return PresenceResult{Status: Absent, LR: lr}
	default:
		return PresenceResult{Status: Uncertain, LR: lr}
	}
}
