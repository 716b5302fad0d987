// Package formatter renders an analysis snapshot and its explanation for
// terminal output and machine consumers.
package formatter

import (
	"fmt"
	"strings"

	"github.com/YKunlee/Financial-Research-Agent/models"
)

// RiskLevel summarizes the triggered flags into one label. Every rule
// emits a flag on every run, so only triggered ones count here.
func RiskLevel(snap models.AnalysisSnapshot) string {
	severities := make(map[string]bool)
	for _, f := range snap.Rules.TriggeredFlags() {
		severities[f.Severity] = true
	}
	switch {
	case severities["high"]:
		return "high"
	case severities["medium"]:
		return "medium"
	default:
		return "low"
	}
}

// FormatResult builds the machine-readable result document: derived
// facts alongside the full snapshot and the guarded explanation.
func FormatResult(snap models.AnalysisSnapshot, explanation models.Explanation) map[string]interface{} {
	facts := map[string]interface{}{
		"analysis_id":     snap.AnalysisID,
		"symbol":          snap.Symbol,
		"market":          snap.Market,
		"company_name":    snap.CompanyName,
		"as_of":           snap.AsOf,
		"risk_level":      RiskLevel(snap),
		"algo_versions":   snap.AlgoVersions,
		"data_timestamps": snap.DataTimestamps,
		"risk_flags":      snap.Rules.Flags,
		"snapshot":        snap,
	}
	return map[string]interface{}{
		"facts":       facts,
		"explanation": explanation,
	}
}

// FormatCLI renders the terminal view: key facts, a pointer to the
// persisted snapshot, then the explanation text.
func FormatCLI(snap models.AnalysisSnapshot, explanation models.Explanation, snapshotPath string) string {
	lines := []string{
		fmt.Sprintf("symbol=%s market=%s as_of=%s", snap.Symbol, snap.Market, snap.AsOf),
		fmt.Sprintf("risk_level=%s analysis_id=%s", RiskLevel(snap), snap.AnalysisID),
		fmt.Sprintf("versions=%s,%s,%s",
			snap.AlgoVersions["metrics"],
			snap.AlgoVersions["risk"],
			snap.AlgoVersions["rules"]),
		"",
		fmt.Sprintf("Facts (structured): %s", snapshotPath),
		"",
		"Explanation:",
		strings.TrimSpace(explanation.Text),
	}
	return strings.Join(lines, "\n")
}
