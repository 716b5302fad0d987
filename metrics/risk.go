package metrics

import (
	"math"
	"sort"

	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// RiskAlgoVersion tags the risk statistic logic, versioned independently
// of the technical indicators.
const RiskAlgoVersion = "risk_v1.0.0"

// ComputeRiskMetrics derives the annualized 20-day Sharpe ratio and the
// empirical 95% one-day VaR from bars dated at or before asOf.
// riskFreeDaily is the daily risk-free rate subtracted from returns.
func ComputeRiskMetrics(market models.MarketData, asOf string, riskFreeDaily float64) models.RiskMetrics {
	closes := closesUpTo(market.Bars, asOf)
	r := returns(closes)

	return models.RiskMetrics{
		AlgoVersion: RiskAlgoVersion,
		AsOf:        asOf,
		Sharpe20:    sharpe(r, 20, riskFreeDaily),
		VaR9520:     historicalVaR(r, 20, 0.05),
	}
}

// sharpe is mean excess return over its sample standard deviation,
// annualized by sqrt(252). Undefined (nil) when volatility is zero.
func sharpe(rets []float64, window int, riskFreeDaily float64) *float64 {
	if len(rets) < window {
		return nil
	}
	excess := make([]float64, window)
	for i, r := range last(rets, window) {
		excess[i] = r - riskFreeDaily
	}
	std := sampleStd(excess)
	if std == 0 {
		return nil
	}
	v := jsonutil.Round12(mean(excess) / std * math.Sqrt(252.0))
	return &v
}

// historicalVaR is the alpha-quantile of the last window returns, taken
// at index floor(alpha*(n-1)) of the ascending-sorted sample.
func historicalVaR(rets []float64, window int, alpha float64) *float64 {
	if len(rets) < window {
		return nil
	}
	sorted := append([]float64(nil), last(rets, window)...)
	sort.Float64s(sorted)
	idx := int(math.Floor(alpha * float64(len(sorted)-1)))
	v := jsonutil.Round12(sorted[idx])
	return &v
}
