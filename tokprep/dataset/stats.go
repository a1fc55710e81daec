package dataset

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

var ErrNoLengths = errors.New("dataset has no token lengths")

// LengthSummary describes the token length distribution of a mapped dataset.
type LengthSummary struct {
	Count  int
	Min    int
	Max    int
	Mean   float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
}

func (s LengthSummary) String() string {
	return fmt.Sprintf("count=%d min=%d max=%d mean=%.2f stddev=%.2f p50=%.0f p90=%.0f p99=%.0f",
		s.Count, s.Min, s.Max, s.Mean, s.StdDev, s.P50, s.P90, s.P99)
}

// Lengths returns the unpadded token count of every record, from the length
// column when present, otherwise from input_ids.
func (d *Dataset) Lengths() ([]int, error) {
	out := make([]int, len(d.rows))
	for i, row := range d.rows {
		n, ok := recordLength(row)
		if !ok {
			return nil, fmt.Errorf("%w: record %d", ErrNoLengths, i)
		}
		out[i] = n
	}
	return out, nil
}

// SummarizeLengths computes order statistics over lengths.
func SummarizeLengths(lengths []int) (LengthSummary, error) {
	if len(lengths) == 0 {
		return LengthSummary{}, ErrNoLengths
	}
	xs := sortedFloats(lengths)
	s := LengthSummary{
		Count: len(xs),
		Min:   int(xs[0]),
		Max:   int(xs[len(xs)-1]),
		Mean:  stat.Mean(xs, nil),
		P50:   stat.Quantile(0.5, stat.Empirical, xs, nil),
		P90:   stat.Quantile(0.9, stat.Empirical, xs, nil),
		P99:   stat.Quantile(0.99, stat.Empirical, xs, nil),
	}
	if len(xs) > 1 {
		s.StdDev = stat.StdDev(xs, nil)
	}
	return s, nil
}

// SuggestMaxLength returns the smallest length covering fraction q of lengths,
// the usual way to pick a max_length before padding to it.
func SuggestMaxLength(lengths []int, q float64) (int, error) {
	if len(lengths) == 0 {
		return 0, ErrNoLengths
	}
	if q <= 0 || q > 1 {
		return 0, fmt.Errorf("quantile must be in (0, 1], got %v", q)
	}
	xs := sortedFloats(lengths)
	return int(math.Ceil(stat.Quantile(q, stat.Empirical, xs, nil))), nil
}

func sortedFloats(lengths []int) []float64 {
	xs := make([]float64, len(lengths))
	for i, n := range lengths {
		xs[i] = float64(n)
	}
	slices.Sort(xs)
	return xs
}
