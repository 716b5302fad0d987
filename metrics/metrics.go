// Package metrics computes the versioned technical indicators and risk
// statistics that feed the analysis snapshot. Every function is pure:
// the same price series always produces the same values. Insufficient
// history yields nil, never zero.
package metrics

import (
	"math"
	"sort"

	"github.com/YKunlee/Financial-Research-Agent/models"
)

// closesUpTo extracts closes of bars dated at or before asOf, ascending.
// Bar dates use models.DateLayout, so lexical order is chronological.
func closesUpTo(bars []models.MarketBar, asOf string) []float64 {
	filtered := make([]models.MarketBar, 0, len(bars))
	for _, b := range bars {
		if b.Date <= asOf {
			filtered = append(filtered, b)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Date < filtered[j].Date })

	closes := make([]float64, len(filtered))
	for i, b := range filtered {
		closes[i] = b.Close
	}
	return closes
}

// returns computes simple period returns p[i]/p[i-1] - 1.
func returns(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, len(series)-1)
	for i := 1; i < len(series); i++ {
		out[i-1] = series[i]/series[i-1] - 1.0
	}
	return out
}

func last(xs []float64, n int) []float64 {
	return xs[len(xs)-n:]
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the standard deviation with an N-1 denominator.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
