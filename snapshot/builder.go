// Package snapshot assembles the immutable analysis record, derives its
// content-addressed id, and persists it. A snapshot is never mutated after
// creation; re-running the pipeline with identical inputs reproduces the
// same id, and divergent content under an existing id is a fatal
// consistency violation.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// Build assembles the snapshot for one pipeline run. The analysis id is
// the SHA-256 hex digest of the canonical serialization of every field
// except the id itself, so any change to inputs or version tags changes
// the id.
func Build(
	identity models.CompanyIdentity,
	asOf string,
	market models.MarketData,
	financials []models.FinancialQuarter,
	technicals models.TechnicalIndicators,
	risk models.RiskMetrics,
	ruleResults models.RuleResults,
) (models.AnalysisSnapshot, error) {
	if financials == nil {
		financials = []models.FinancialQuarter{}
	}

	dataTimestamps := map[string]time.Time{
		"market_data": market.DataTimestamp,
		"financials":  latestFinancialsTimestamp(financials, market.DataTimestamp),
	}
	algoVersions := map[string]string{
		"metrics": technicals.AlgoVersion,
		"risk":    risk.AlgoVersion,
		"rules":   ruleResults.RuleVersion,
	}

	seed := map[string]interface{}{
		"symbol":          identity.Symbol,
		"market":          identity.Market,
		"company_name":    identity.CompanyName,
		"as_of":           asOf,
		"data_timestamps": dataTimestamps,
		"algo_versions":   algoVersions,
		"identity":        identity,
		"market_data":     market,
		"financials":      financials,
		"technicals":      technicals,
		"risk":            risk,
		"rules":           ruleResults,
	}
	canon, err := jsonutil.MarshalCanonical(seed)
	if err != nil {
		return models.AnalysisSnapshot{}, fmt.Errorf("canonicalize snapshot seed: %w", err)
	}
	digest := sha256.Sum256(canon)

	return models.AnalysisSnapshot{
		AnalysisID:     hex.EncodeToString(digest[:]),
		Symbol:         identity.Symbol,
		Market:         identity.Market,
		CompanyName:    identity.CompanyName,
		AsOf:           asOf,
		DataTimestamps: dataTimestamps,
		AlgoVersions:   algoVersions,
		Identity:       identity,
		MarketData:     market,
		Financials:     financials,
		Technicals:     technicals,
		Risk:           risk,
		Rules:          ruleResults,
	}, nil
}

// latestFinancialsTimestamp picks the newest financials fetch time,
// falling back to the market data timestamp when no financials were
// fetched.
func latestFinancialsTimestamp(financials []models.FinancialQuarter, fallback time.Time) time.Time {
	latest := fallback
	for i, f := range financials {
		if i == 0 || f.DataTimestamp.After(latest) {
			latest = f.DataTimestamp
		}
	}
	return latest
}
