package metrics

import (
	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// MetricsAlgoVersion tags the technical indicator logic. Any change to the
// formulas below requires a new tag.
const MetricsAlgoVersion = "metrics_v1.0.0"

// ComputeTechnicalIndicators derives moving averages, 20-day return
// volatility, and maximum drawdown from bars dated at or before asOf.
func ComputeTechnicalIndicators(market models.MarketData, asOf string) models.TechnicalIndicators {
	closes := closesUpTo(market.Bars, asOf)

	return models.TechnicalIndicators{
		AlgoVersion:  MetricsAlgoVersion,
		AsOf:         asOf,
		MA20:         sma(closes, 20),
		MA50:         sma(closes, 50),
		Volatility20: volatility(closes, 20),
		MaxDrawdown:  maxDrawdown(closes),
	}
}

func sma(series []float64, window int) *float64 {
	if len(series) < window {
		return nil
	}
	v := jsonutil.Round12(mean(last(series, window)))
	return &v
}

// volatility is the sample standard deviation of the last window simple
// returns. Daily horizon; the rule thresholds are calibrated to daily
// values.
func volatility(series []float64, window int) *float64 {
	r := returns(series)
	if len(r) < window {
		return nil
	}
	v := jsonutil.Round12(sampleStd(last(r, window)))
	return &v
}

// maxDrawdown is the largest peak-to-trough decline over the full series,
// expressed as a negative fraction. A monotonically non-decreasing series
// has drawdown 0, not nil.
func maxDrawdown(series []float64) *float64 {
	if len(series) < 2 {
		return nil
	}
	runningMax := series[0]
	worst := 0.0
	for _, p := range series {
		if p > runningMax {
			runningMax = p
		}
		if dd := p/runningMax - 1.0; dd < worst {
			worst = dd
		}
	}
	v := jsonutil.Round12(worst)
	return &v
}
