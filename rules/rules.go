// Package rules evaluates the declarative risk rule set over computed
// metrics. Evaluation is total: every declared rule produces exactly one
// flag per run, triggered or not, so downstream consumers can always see
// why a rule did or did not fire. Rules are independent of each other and
// evaluation order never changes the outcome.
package rules

import (
	"fmt"

	"github.com/YKunlee/Financial-Research-Agent/models"
)

// RuleSetVersion tags the rule table below. Changing a threshold, an
// operator, or the set of rules requires a new tag.
const RuleSetVersion = "risk_rules_v1"

// Rule is one declarative threshold check over a metric field.
type Rule struct {
	Code      string
	Severity  string
	Title     string
	Field     string
	Op        string
	Threshold float64
	Details   string
}

// RiskRulesV1 is the fixed rule table, loaded once at process start.
var RiskRulesV1 = []Rule{
	{
		Code:      "DRAWDOWN_HIGH",
		Severity:  "high",
		Title:     "Large peak-to-trough drawdown",
		Field:     "technicals.max_drawdown",
		Op:        "<=",
		Threshold: -0.2,
		Details:   "Max drawdown at or below -20% over the available window.",
	},
	{
		Code:      "VOLATILITY_HIGH",
		Severity:  "medium",
		Title:     "Elevated short-term volatility",
		Field:     "technicals.volatility_20",
		Op:        ">=",
		Threshold: 0.04,
		Details:   "20-day return volatility at or above 4% (daily).",
	},
	{
		Code:      "SHARPE_NEGATIVE",
		Severity:  "medium",
		Title:     "Negative short-term Sharpe",
		Field:     "risk.sharpe_20",
		Op:        "<",
		Threshold: 0.0,
		Details:   "20-day Sharpe ratio below 0 indicates unfavorable risk-adjusted returns.",
	},
	{
		Code:      "VAR_TAIL_RISK",
		Severity:  "high",
		Title:     "Large 1-day VaR (95%)",
		Field:     "risk.var_95_20",
		Op:        "<=",
		Threshold: -0.05,
		Details:   "Historical 1-day VaR at 95% at or below -5% based on the last 20 returns.",
	},
}

// Apply evaluates every rule in RiskRulesV1 against the given metrics.
// A nil metric means the rule cannot evaluate: its flag is emitted with
// Triggered=false and an insufficient-data note, never treated as zero.
func Apply(technicals models.TechnicalIndicators, risk models.RiskMetrics) models.RuleResults {
	fields := map[string]*float64{
		"technicals.volatility_20": technicals.Volatility20,
		"technicals.max_drawdown":  technicals.MaxDrawdown,
		"risk.sharpe_20":           risk.Sharpe20,
		"risk.var_95_20":           risk.VaR9520,
	}

	flags := make([]models.RiskFlag, 0, len(RiskRulesV1))
	for _, rule := range RiskRulesV1 {
		value, known := fields[rule.Field]
		if !known || value == nil {
			flags = append(flags, models.RiskFlag{
				Code:      rule.Code,
				Severity:  rule.Severity,
				Title:     rule.Title,
				Details:   rule.Details,
				Triggered: false,
				Evidence: map[string]interface{}{
					"field":     rule.Field,
					"value":     nil,
					"threshold": rule.Threshold,
					"note":      "insufficient data",
				},
			})
			continue
		}

		flags = append(flags, models.RiskFlag{
			Code:      rule.Code,
			Severity:  rule.Severity,
			Title:     rule.Title,
			Details:   rule.Details,
			Triggered: compare(*value, rule.Op, rule.Threshold),
			Evidence: map[string]interface{}{
				"field":     rule.Field,
				"value":     *value,
				"threshold": rule.Threshold,
			},
		})
	}

	return models.RuleResults{RuleVersion: RuleSetVersion, Flags: flags}
}

func compare(v float64, op string, threshold float64) bool {
	switch op {
	case "<=":
		return v <= threshold
	case "<":
		return v < threshold
	case ">=":
		return v >= threshold
	case ">":
		return v > threshold
	case "==":
		return v == threshold
	default:
		panic(fmt.Sprintf("unsupported rule op: %s", op))
	}
}
