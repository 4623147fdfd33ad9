package locus

import "sort"

// statsAccumulator collects the running per-locus statistics:
// mean read length, a fragment-length sample set (summarized as
// a median at finalization), and an aligned-read depth estimator.
type statsAccumulator struct {
	readLenSum   int
	readLenCount int
	readLenMax   int

	fragLens []int

	confidentlyPlaced int
	flankLenSum       int64
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{}
}

// ObserveReadLength folds one accepted read's length into the running
// mean.
func (s *statsAccumulator) ObserveReadLength(l int) {
	s.readLenSum += l
	s.readLenCount++
	if l > s.readLenMax {
		s.readLenMax = l
	}
}

func (s *statsAccumulator) MaxReadLength() int { return s.readLenMax }

// ObserveFragmentLength records one pair's observed template length.
func (s *statsAccumulator) ObserveFragmentLength(l int) {
	s.fragLens = append(s.fragLens, l)
}

// ObserveConfidentlyPlaced records one mate that both aligned and
// passed canonical-alignment acceptance.
func (s *statsAccumulator) ObserveConfidentlyPlaced(leftFlankLen, rightFlankLen int64) {
	s.confidentlyPlaced++
	s.flankLenSum = leftFlankLen + rightFlankLen
}

func (s *statsAccumulator) MeanReadLength() float64 {
	if s.readLenCount == 0 {
		return 0
	}
	return float64(s.readLenSum) / float64(s.readLenCount)
}

func (s *statsAccumulator) MedianFragmentLength() float64 {
	if len(s.fragLens) == 0 {
		return 0
	}
	sorted := append([]int(nil), s.fragLens...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

func (s *statsAccumulator) EstimatedDepth() float64 {
	if s.flankLenSum == 0 {
		return 0
	}
	return float64(s.confidentlyPlaced) / float64(s.flankLenSum)
}

func (s *statsAccumulator) Finalize() LocusStats {
	return LocusStats{
		MeanReadLength:    s.MeanReadLength(),
		MedianFragmentLen: s.MedianFragmentLength(),
		EstimatedDepth:    s.EstimatedDepth(),
	}
}
