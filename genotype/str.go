// Package genotype implements the STR genotyper and the
// small-variant genotyper / allele-presence check.
package genotype

import (
	"math"
	"sort"
)

// MismapPrior and the interval-walk constants are the genotyper defaults.
const (
	MismapPrior           = 0.001
	CIStopLikelihoodRatio = 0.01
	MaxCIMotifs           = 750
	CICollapseMass        = 0.95
)

// MateObservation is one mate's contribution to a fragment's
// likelihood under a specific candidate allele size: its
// consistent-alignment score (from classify.EvaluateHypothesis) plus
// whether it is an in-repeat read and, if so, how many motifs it
// observed.
type MateObservation struct {
	Score          int
	InRepeat       bool
	ObservedMotifs int
}

// FragmentHypothesis bundles both mates' observations against one
// candidate allele size.
type FragmentHypothesis struct {
	Mate1, Mate2 MateObservation
}

// Fragment is one read-mate pair's evidence, precomputed by the caller
// (package locus) for every candidate allele size it needs to test.
type Fragment struct {
	FragmentLen int // observed template/insert length
	ReadLen     int // mean mate read length
	PerAllele   map[int]FragmentHypothesis
}

// STRParams carries the per-locus parameters the genotyper needs
// beyond the count tables.
type STRParams struct {
	MotifLen       int
	MeanReadLength float64
	MedianFragLen  float64
	HaplotypeDepth float64
}

// AlleleSizeCI is a point estimate with a likelihood-ratio confidence
// interval.
type AlleleSizeCI struct {
	Size int
	CILo int
	CIHi int
}

// Genotype is either one allele (haploid loci) or two (diploid),
// short <= long when both are present.
type Genotype struct {
	Short AlleleSizeCI
	Long  *AlleleSizeCI // nil for haploid genotypes
}

// CandidateAlleleSizes assembles the candidate allele-size set from the
// three count tables plus expansion heuristics.
func CandidateAlleleSizes(spanningKeys, flankingKeys, inRepeatKeys []int, readLen, motifLen int, inRepeatCount int, depth float64) []int {
	set := map[int]bool{}
	maxSpanning := 0
	for _, k := range spanningKeys {
		set[k] = true
		if k > maxSpanning {
			maxSpanning = k
		}
	}
	if len(inRepeatKeys) > 0 && motifLen > 0 {
		set[ceilDiv(readLen, motifLen)] = true
	}
	if depth > 0 && motifLen > 0 {
		expansion := float64(readLen) + float64(inRepeatCount)*float64(readLen)/depth
		a1 := int(math.Ceil(expansion / float64(motifLen)))
		a2 := int(math.Ceil(2 * expansion / float64(motifLen)))
		set[a1] = true
		set[a2] = true
	}
	for _, k := range flankingKeys {
		if k > maxSpanning {
			set[k] = true
		}
	}
	out := make([]int, 0, len(set))
	for k := range set {
		if k < 0 {
			continue
		}
		out = append(out, k)
	}
	sort.Ints(out)
	if len(out) == 0 {
		out = []int{0}
	}
	return out
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}

// fragmentLogLikelihood computes the per-fragment log-likelihood
// for candidate allele size a.
func fragmentLogLikelihood(f Fragment, a int, motifLen int) float64 {
	fh, ok := f.PerAllele[a]
	if !ok {
		return math.Inf(-1)
	}
	alleleLen := a*motifLen + f.FragmentLen + 1
	origins := float64(alleleLen)
	origins += extraOrigins(fh.Mate1, a)
	origins += extraOrigins(fh.Mate2, a)
	if origins < 1 {
		origins = 1
	}
	term := mateTerm(fh.Mate1.Score, f.ReadLen) + mateTerm(fh.Mate2.Score, f.ReadLen)
	return term - math.Log(origins)
}

func extraOrigins(m MateObservation, a int) float64 {
	if !m.InRepeat {
		return 0
	}
	extra := float64(a - m.ObservedMotifs)
	if extra < 0 {
		return 0
	}
	return extra
}

func mateTerm(score, readLen int) float64 {
	return float64(score)*math.Log(1.3) - 2*float64(readLen)*math.Log(2)
}

// topLogLikelihoodCache precomputes, for every fragment, the maximum
// log-likelihood over all of its candidate allele sizes, used as the mismap-hypothesis
// likelihood in the mixture model.
func topLogLikelihoodCache(fragments []Fragment, candidates []int, motifLen int) []float64 {
	tops := make([]float64, len(fragments))
	for i, f := range fragments {
		top := math.Inf(-1)
		for _, a := range candidates {
			if ll := fragmentLogLikelihood(f, a, motifLen); ll > top {
				top = ll
			}
		}
		tops[i] = top
	}
	return tops
}

func mixtureLL(hypothesisLL, mismapLL float64) float64 {
	return logSumExp2(math.Log(1-MismapPrior)+hypothesisLL, math.Log(MismapPrior)+mismapLL)
}

// GenotypeOneAllele maximizes the one-allele mixture log-likelihood
// over the candidate set (haploid loci: Y in male, X in male) and
// expands a confidence interval around the mode.
func GenotypeOneAllele(fragments []Fragment, candidates []int, params STRParams) AlleleSizeCI {
	tops := topLogLikelihoodCache(fragments, candidates, params.MotifLen)
	ll := func(a int) float64 {
		sum := 0.0
		for i, f := range fragments {
			sum += mixtureLL(fragmentLogLikelihood(f, a, params.MotifLen), tops[i])
		}
		return sum
	}
	modeIdx, modeLL := argmax(candidates, ll)
	lo, hi := expandCI(candidates, modeIdx, modeLL, ll)
	return AlleleSizeCI{Size: candidates[modeIdx], CILo: candidates[lo], CIHi: candidates[hi]}
}

func argmax(candidates []int, ll func(int) float64) (int, float64) {
	best := 0
	bestLL := ll(candidates[0])
	for i := 1; i < len(candidates); i++ {
		if v := ll(candidates[i]); v > bestLL {
			best, bestLL = i, v
		}
	}
	return best, bestLL
}

// expandCI walks left/right from modeIdx taking whichever shift
// improves the local likelihood at each step, stopping when the
// cumulative likelihood-ratio to the mode falls below
// CIStopLikelihoodRatio or the interval exceeds MaxCIMotifs, then
// collapses to a window holding >= CICollapseMass of the posterior
// mass among visited candidates.
func expandCI(candidates []int, modeIdx int, modeLL float64, ll func(int) float64) (lo, hi int) {
	lo, hi = modeIdx, modeIdx
	visited := map[int]float64{modeIdx: modeLL}
	for {
		canLeft := lo > 0 && candidates[modeIdx]-candidates[lo-1] <= MaxCIMotifs
		canRight := hi < len(candidates)-1 && candidates[hi+1]-candidates[modeIdx] <= MaxCIMotifs
		if !canLeft && !canRight {
			break
		}
		var leftLL, rightLL float64
		if canLeft {
			leftLL = ll(candidates[lo-1])
		} else {
			leftLL = math.Inf(-1)
		}
		if canRight {
			rightLL = ll(candidates[hi+1])
		} else {
			rightLL = math.Inf(-1)
		}
		var stepLL float64
		if leftLL >= rightLL {
			lo--
			stepLL = leftLL
		} else {
			hi++
			stepLL = rightLL
		}
		visited[boundaryIdx(lo, hi, stepLL, leftLL)] = stepLL
		if math.Exp(stepLL-modeLL) < CIStopLikelihoodRatio {
			break
		}
	}
	return collapseByMass(candidates, lo, hi, modeIdx, visited)
}

// boundaryIdx identifies which side was just extended, for bookkeeping
// in the visited-mass map.
func boundaryIdx(lo, hi int, stepLL, leftLL float64) int {
	if stepLL == leftLL {
		return lo
	}
	return hi
}

func collapseByMass(candidates []int, lo, hi, modeIdx int, visited map[int]float64) (int, int) {
	lls := make([]float64, 0, len(visited))
	for _, v := range visited {
		lls = append(lls, v)
	}
	total := logSumExp(lls)
	// Shrink from the outside in while the remaining window still holds
	// >= CICollapseMass of the visited posterior mass.
	for lo < modeIdx || hi > modeIdx {
		windowLL := make([]float64, 0, hi-lo+1)
		for idx, v := range visited {
			if idx >= lo && idx <= hi {
				windowLL = append(windowLL, v)
			}
		}
		mass := math.Exp(logSumExp(windowLL) - total)
		if mass < CICollapseMass {
			break
		}
		shrunk := false
		if lo < modeIdx {
			if v, ok := visited[lo]; ok {
				massWithoutLo := math.Exp(logSumExp(excluding(windowLL, v)) - total)
				if massWithoutLo >= CICollapseMass {
					lo++
					shrunk = true
				}
			}
		}
		if !shrunk && hi > modeIdx {
			if v, ok := visited[hi]; ok {
				massWithoutHi := math.Exp(logSumExp(excluding(windowLL, v)) - total)
				if massWithoutHi >= CICollapseMass {
					hi--
					shrunk = true
				}
			}
		}
		if !shrunk {
			break
		}
	}
	if lo > modeIdx {
		lo = modeIdx
	}
	if hi < modeIdx {
		hi = modeIdx
	}
	return lo, hi
}

func excluding(xs []float64, v float64) []float64 {
	out := make([]float64, 0, len(xs))
	removed := false
	for _, x := range xs {
		if !removed && x == v {
			removed = true
			continue
		}
		out = append(out, x)
	}
	return out
}

// GenotypeTwoAllele maximizes the two-allele mixture log-likelihood
// over (shorter, longer) candidate pairs with shorter <= longer, then
// computes per-axis confidence intervals, allowing the orthogonal
// coordinate to drift by +-1 at each expansion step.
func GenotypeTwoAllele(fragments []Fragment, candidates []int, params STRParams) Genotype {
	tops := topLogLikelihoodCache(fragments, candidates, params.MotifLen)
	pairLL := func(short, long int) float64 {
		sum := 0.0
		for i, f := range fragments {
			sum += mixtureLL(twoAlleleFragmentLL(f, short, long, params.MotifLen), tops[i])
		}
		return sum
	}

	bestShort, bestLong := candidates[0], candidates[0]
	bestLL := math.Inf(-1)
	for _, s := range candidates {
		for _, l := range candidates {
			if s > l {
				continue
			}
			if v := pairLL(s, l); v > bestLL {
				bestLL, bestShort, bestLong = v, s, l
			}
		}
	}

	shortIdx := indexOf(candidates, bestShort)
	longIdx := indexOf(candidates, bestLong)

	shortLL := func(a int) float64 { return pairLL(a, bestLong) }
	longLL := func(a int) float64 { return pairLL(bestShort, a) }

	// Allow the orthogonal coordinate to drift by +-1 at each step by
	// re-maximizing over a small neighborhood instead of holding it fixed.
	shortLLDrift := func(a int) float64 {
		best := math.Inf(-1)
		for d := -1; d <= 1; d++ {
			l := bestLong + d
			if l < a {
				continue
			}
			if idx := indexOf(candidates, l); idx >= 0 {
				if v := pairLL(a, l); v > best {
					best = v
				}
			}
		}
		if math.IsInf(best, -1) {
			return shortLL(a)
		}
		return best
	}
	longLLDrift := func(a int) float64 {
		best := math.Inf(-1)
		for d := -1; d <= 1; d++ {
			s := bestShort + d
			if s > a || s < 0 {
				continue
			}
			if idx := indexOf(candidates, s); idx >= 0 {
				if v := pairLL(s, a); v > best {
					best = v
				}
			}
		}
		if math.IsInf(best, -1) {
			return longLL(a)
		}
		return best
	}

	sLo, sHi := expandCI(candidates, shortIdx, bestLL, shortLLDrift)
	lLo, lHi := expandCI(candidates, longIdx, bestLL, longLLDrift)

	return Genotype{
		Short: AlleleSizeCI{Size: bestShort, CILo: candidates[sLo], CIHi: candidates[sHi]},
		Long:  &AlleleSizeCI{Size: bestLong, CILo: candidates[lLo], CIHi: candidates[lHi]},
	}
}

func indexOf(candidates []int, v int) int {
	for i, c := range candidates {
		if c == v {
			return i
		}
	}
	return -1
}

// twoAlleleFragmentLL combines a fragment's likelihood under the short
// and long allele templates, weighted by the short template's fragment
// share.
func twoAlleleFragmentLL(f Fragment, short, long, motifLen int) float64 {
	shortLen := float64(short*motifLen + f.FragmentLen + 1)
	longLen := float64(long*motifLen + f.FragmentLen + 1)
	fracShort := shortLen / (shortLen + longLen)
	llShort := fragmentLogLikelihood(f, short, motifLen)
	llLong := fragmentLogLikelihood(f, long, motifLen)
	return logSumExp2(math.Log(fracShort)+llShort, math.Log(1-fracShort)+llLong)
}
