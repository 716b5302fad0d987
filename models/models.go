// Package models defines the core data records shared across the analysis
// pipeline: company identity, market bars, financial quarters, computed
// metrics, rule flags, and the immutable analysis snapshot.
package models

import "time"

// DateLayout is the wire format for calendar dates (bar dates, as-of dates).
const DateLayout = "2006-01-02"

// CompanyIdentity is the resolved target of an analysis run.
// MatchedOn records how the query resolved: "ticker", "company_name", or "alias".
type CompanyIdentity struct {
	Symbol      string `json:"symbol"`
	Market      string `json:"market"`
	CompanyName string `json:"company_name"`
	MatchedOn   string `json:"matched_on"`
	Query       string `json:"query"`
}

// MarketBar is one daily OHLCV bar. Date uses DateLayout, so bars compare
// and sort correctly as plain strings.
type MarketBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// MarketData is a fetched daily price series plus provenance.
type MarketData struct {
	Symbol        string      `json:"symbol"`
	Source        string      `json:"source"`
	DataTimestamp time.Time   `json:"data_timestamp"`
	Bars          []MarketBar `json:"bars"`
}

// FinancialQuarter holds raw reported values for one fiscal quarter
// (YYYYQn). Values carries upstream figures only, no derived metrics;
// missing figures stay nil.
type FinancialQuarter struct {
	Symbol          string              `json:"symbol"`
	Quarter         string              `json:"quarter"`
	Source          string              `json:"source"`
	DataTimestamp   time.Time           `json:"data_timestamp"`
	SourceTimestamp *time.Time          `json:"source_timestamp"`
	Values          map[string]*float64 `json:"values"`
}

// TechnicalIndicators is the versioned output of the technical metric pass.
// A nil field means the price history was too short for that indicator.
type TechnicalIndicators struct {
	AlgoVersion  string   `json:"algo_version"`
	AsOf         string   `json:"as_of"`
	MA20         *float64 `json:"ma_20"`
	MA50         *float64 `json:"ma_50"`
	Volatility20 *float64 `json:"volatility_20"`
	MaxDrawdown  *float64 `json:"max_drawdown"`
}

// RiskMetrics is the versioned output of the risk metric pass.
type RiskMetrics struct {
	AlgoVersion string   `json:"algo_version"`
	AsOf        string   `json:"as_of"`
	Sharpe20    *float64 `json:"sharpe_20"`
	VaR9520     *float64 `json:"var_95_20"`
}

// RiskFlag is the outcome of evaluating one declared rule. Every declared
// rule produces a flag on every run; Triggered records whether the
// predicate fired. Evidence holds the inspected field, its value, and the
// threshold, plus a note when the input metric was unavailable.
type RiskFlag struct {
	Code      string                 `json:"code"`
	Severity  string                 `json:"severity"`
	Title     string                 `json:"title"`
	Details   string                 `json:"details"`
	Triggered bool                   `json:"triggered"`
	Evidence  map[string]interface{} `json:"evidence"`
}

// RuleResults is the versioned output of one rule-engine pass.
type RuleResults struct {
	RuleVersion string     `json:"rule_version"`
	Flags       []RiskFlag `json:"flags"`
}

// TriggeredFlags returns only the flags whose predicate fired.
func (r RuleResults) TriggeredFlags() []RiskFlag {
	var out []RiskFlag
	for _, f := range r.Flags {
		if f.Triggered {
			out = append(out, f)
		}
	}
	return out
}

// AnalysisSnapshot is the immutable root record of one analysis run.
// AnalysisID is a SHA-256 hex digest over the canonical serialization of
// every other field; identical inputs and versions always reproduce the
// same id.
type AnalysisSnapshot struct {
	AnalysisID     string               `json:"analysis_id"`
	Symbol         string               `json:"symbol"`
	Market         string               `json:"market"`
	CompanyName    string               `json:"company_name"`
	AsOf           string               `json:"as_of"`
	DataTimestamps map[string]time.Time `json:"data_timestamps"`
	AlgoVersions   map[string]string    `json:"algo_versions"`
	Identity       CompanyIdentity      `json:"identity"`
	MarketData     MarketData           `json:"market_data"`
	Financials     []FinancialQuarter   `json:"financials"`
	Technicals     TechnicalIndicators  `json:"technicals"`
	Risk           RiskMetrics          `json:"risk"`
	Rules          RuleResults          `json:"rules"`
}

// Explanation is the guarded natural-language rendering of a snapshot.
// Source is "llm" when a generated candidate passed validation and
// "fallback" when the deterministic template was used.
type Explanation struct {
	Text              string   `json:"text"`
	References        []string `json:"references"`
	NumericTokensUsed []string `json:"numeric_tokens_used"`
	Source            string   `json:"source"`
}
