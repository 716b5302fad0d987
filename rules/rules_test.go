package rules

import (
	"testing"

	"github.com/YKunlee/Financial-Research-Agent/models"
)

func floatPtr(f float64) *float64 { return &f }

func metricsFixture(mdd, vol, sharpe, varr *float64) (models.TechnicalIndicators, models.RiskMetrics) {
	technicals := models.TechnicalIndicators{
		AlgoVersion:  "metrics_v1.0.0",
		AsOf:         "2024-06-28",
		MA20:         floatPtr(100),
		MA50:         floatPtr(95),
		Volatility20: vol,
		MaxDrawdown:  mdd,
	}
	risk := models.RiskMetrics{
		AlgoVersion: "risk_v1.0.0",
		AsOf:        "2024-06-28",
		Sharpe20:    sharpe,
		VaR9520:     varr,
	}
	return technicals, risk
}

func TestApplyEmitsOneFlagPerRule(t *testing.T) {
	technicals, risk := metricsFixture(floatPtr(-0.05), floatPtr(0.01), floatPtr(1.2), floatPtr(-0.01))
	results := Apply(technicals, risk)

	if results.RuleVersion != RuleSetVersion {
		t.Errorf("expected rule_version %s, got %s", RuleSetVersion, results.RuleVersion)
	}
	if len(results.Flags) != len(RiskRulesV1) {
		t.Fatalf("expected %d flags, got %d", len(RiskRulesV1), len(results.Flags))
	}
	for i, rule := range RiskRulesV1 {
		if results.Flags[i].Code != rule.Code {
			t.Errorf("flag %d: expected code %s, got %s", i, rule.Code, results.Flags[i].Code)
		}
	}
}

func TestApplyTruthTable(t *testing.T) {
	tests := []struct {
		name      string
		mdd       *float64
		vol       *float64
		sharpe    *float64
		varr      *float64
		triggered map[string]bool
	}{
		{
			name: "healthy metrics trigger nothing",
			mdd:  floatPtr(-0.05), vol: floatPtr(0.01), sharpe: floatPtr(1.2), varr: floatPtr(-0.01),
			triggered: map[string]bool{
				"DRAWDOWN_HIGH": false, "VOLATILITY_HIGH": false,
				"SHARPE_NEGATIVE": false, "VAR_TAIL_RISK": false,
			},
		},
		{
			name: "stressed metrics trigger everything",
			mdd:  floatPtr(-0.35), vol: floatPtr(0.06), sharpe: floatPtr(-0.8), varr: floatPtr(-0.09),
			triggered: map[string]bool{
				"DRAWDOWN_HIGH": true, "VOLATILITY_HIGH": true,
				"SHARPE_NEGATIVE": true, "VAR_TAIL_RISK": true,
			},
		},
		{
			name: "boundary values",
			mdd:  floatPtr(-0.2), vol: floatPtr(0.04), sharpe: floatPtr(0), varr: floatPtr(-0.05),
			triggered: map[string]bool{
				"DRAWDOWN_HIGH":   true,  // <= -0.2 includes the boundary
				"VOLATILITY_HIGH": true,  // >= 0.04 includes the boundary
				"SHARPE_NEGATIVE": false, // strict < 0
				"VAR_TAIL_RISK":   true,  // <= -0.05 includes the boundary
			},
		},
		{
			name: "single stressed metric",
			mdd:  floatPtr(-0.25), vol: floatPtr(0.01), sharpe: floatPtr(0.5), varr: floatPtr(-0.01),
			triggered: map[string]bool{
				"DRAWDOWN_HIGH": true, "VOLATILITY_HIGH": false,
				"SHARPE_NEGATIVE": false, "VAR_TAIL_RISK": false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			technicals, risk := metricsFixture(tt.mdd, tt.vol, tt.sharpe, tt.varr)
			results := Apply(technicals, risk)

			for _, flag := range results.Flags {
				want, ok := tt.triggered[flag.Code]
				if !ok {
					t.Fatalf("unexpected flag code %s", flag.Code)
				}
				if flag.Triggered != want {
					t.Errorf("%s: expected triggered=%v, got %v", flag.Code, want, flag.Triggered)
				}
				if flag.Evidence["field"] == "" {
					t.Errorf("%s: evidence missing field", flag.Code)
				}
				if _, ok := flag.Evidence["threshold"]; !ok {
					t.Errorf("%s: evidence missing threshold", flag.Code)
				}
			}
		})
	}
}

func TestApplyNullMetricsNeverTrigger(t *testing.T) {
	technicals, risk := metricsFixture(nil, nil, nil, nil)
	results := Apply(technicals, risk)

	if len(results.Flags) != len(RiskRulesV1) {
		t.Fatalf("expected %d flags, got %d", len(RiskRulesV1), len(results.Flags))
	}
	for _, flag := range results.Flags {
		if flag.Triggered {
			t.Errorf("%s: null metric must not trigger", flag.Code)
		}
		note, _ := flag.Evidence["note"].(string)
		if note != "insufficient data" {
			t.Errorf("%s: expected insufficient data note, got %q", flag.Code, note)
		}
		if v, ok := flag.Evidence["value"]; !ok || v != nil {
			t.Errorf("%s: expected nil evidence value, got %v", flag.Code, v)
		}
	}
}

func TestApplyMixedNullAndPresent(t *testing.T) {
	// volatility missing, drawdown stressed: only the drawdown rule fires
	technicals, risk := metricsFixture(floatPtr(-0.3), nil, floatPtr(0.2), floatPtr(-0.01))
	results := Apply(technicals, risk)

	byCode := make(map[string]models.RiskFlag, len(results.Flags))
	for _, f := range results.Flags {
		byCode[f.Code] = f
	}

	if !byCode["DRAWDOWN_HIGH"].Triggered {
		t.Error("DRAWDOWN_HIGH should trigger at -0.3")
	}
	volFlag := byCode["VOLATILITY_HIGH"]
	if volFlag.Triggered {
		t.Error("VOLATILITY_HIGH must not trigger on missing input")
	}
	if volFlag.Evidence["note"] != "insufficient data" {
		t.Errorf("expected insufficient data note, got %v", volFlag.Evidence["note"])
	}
	if byCode["SHARPE_NEGATIVE"].Triggered || byCode["VAR_TAIL_RISK"].Triggered {
		t.Error("healthy metrics must not trigger")
	}
}

func TestRuleSeverities(t *testing.T) {
	want := map[string]string{
		"DRAWDOWN_HIGH":   "high",
		"VOLATILITY_HIGH": "medium",
		"SHARPE_NEGATIVE": "medium",
		"VAR_TAIL_RISK":   "high",
	}
	for _, rule := range RiskRulesV1 {
		if rule.Severity != want[rule.Code] {
			t.Errorf("%s: expected severity %s, got %s", rule.Code, want[rule.Code], rule.Severity)
		}
	}
}
