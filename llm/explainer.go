package llm

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/YKunlee/Financial-Research-Agent/jsonutil"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// Generator produces a candidate explanation for a snapshot document.
// Implemented by Client; stubbed in tests.
type Generator interface {
	Generate(ctx context.Context, snapshotJSON string) (string, error)
}

// Explainer renders snapshot explanations. Candidate text from the
// generator is accepted only if every numeric token it contains already
// appears in the snapshot document and it cites the analysis id and all
// version tags; otherwise the deterministic template is used.
type Explainer struct {
	generator Generator
}

// NewExplainer creates an explainer. A nil generator selects the
// deterministic template for every snapshot.
func NewExplainer(generator Generator) *Explainer {
	return &Explainer{generator: generator}
}

// Explain produces the guarded explanation for snap. It never fails:
// any generation or validation problem resolves to the fallback.
func (e *Explainer) Explain(ctx context.Context, snap models.AnalysisSnapshot) models.Explanation {
	if e == nil || e.generator == nil {
		return deterministicExplanation(snap)
	}

	snapshotJSON, err := jsonutil.Marshal(snap)
	if err != nil {
		log.Printf("⚠️  Snapshot encode failed, using deterministic explanation: %v", err)
		return deterministicExplanation(snap)
	}

	candidate, err := e.generator.Generate(ctx, string(snapshotJSON))
	if err != nil {
		log.Printf("⚠️  Explanation generation failed, using deterministic explanation: %v", err)
		return deterministicExplanation(snap)
	}
	candidate = strings.TrimSpace(candidate)

	tokens, err := validateNumericTokens(string(snapshotJSON), candidate)
	if err != nil {
		log.Printf("⚠️  Guardrail rejected explanation: %v", err)
		return deterministicExplanation(snap)
	}
	if err := validateCitations(snap, candidate); err != nil {
		log.Printf("⚠️  Guardrail rejected explanation: %v", err)
		return deterministicExplanation(snap)
	}

	return models.Explanation{
		Text:              candidate,
		References:        requiredCitations(snap),
		NumericTokensUsed: tokens,
		Source:            "llm",
	}
}

// numberRe matches a numeric token not glued to a preceding letter or
// digit, so "v1.0.0" does not leak "1.0.0" but "-0.18" after a space is
// captured with its sign.
var numberRe = regexp.MustCompile(`(?:^|[^A-Za-z0-9])([-+]?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)`)

// thousandsRe finds a comma used as a digit-group separator.
var thousandsRe = regexp.MustCompile(`(\d),(\d)`)

func numericTokens(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, m := range numberRe.FindAllStringSubmatch(text, -1) {
		tokens[m[1]] = true
	}
	return tokens
}

// normalizeThousands rewrites "52,242,800" as "52242800" so locale
// formatting does not defeat the verbatim-token check.
func normalizeThousands(text string) string {
	for {
		normalized := thousandsRe.ReplaceAllString(text, "$1$2")
		if normalized == text {
			return text
		}
		text = normalized
	}
}

// isExemptSmallInt reports whether token is a bare count in [0, 10],
// which prose may use without fabricating data.
func isExemptSmallInt(token string) bool {
	if strings.ContainsAny(token, ".eE+-") {
		return false
	}
	n, err := strconv.Atoi(token)
	return err == nil && n >= 0 && n <= 10
}

// validateNumericTokens returns the sorted numeric tokens used by the
// candidate, or an error naming the tokens absent from the snapshot.
func validateNumericTokens(snapshotJSON, candidate string) ([]string, error) {
	allowed := numericTokens(snapshotJSON)
	found := numericTokens(normalizeThousands(candidate))

	var extra []string
	for token := range found {
		if allowed[token] || isExemptSmallInt(token) {
			continue
		}
		extra = append(extra, token)
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, fmt.Errorf("numeric tokens not present in snapshot: %v", extra)
	}
	return sortedTokens(found), nil
}

func requiredCitations(snap models.AnalysisSnapshot) []string {
	return []string{
		snap.AnalysisID,
		snap.AlgoVersions["metrics"],
		snap.AlgoVersions["risk"],
		snap.AlgoVersions["rules"],
	}
}

func validateCitations(snap models.AnalysisSnapshot, candidate string) error {
	var missing []string
	for _, ref := range requiredCitations(snap) {
		if ref != "" && !strings.Contains(candidate, ref) {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required citations: %v", missing)
	}
	return nil
}

// deterministicExplanation renders the fixed template from snapshot
// fields and rule outputs only. It introduces no numbers of its own.
func deterministicExplanation(snap models.AnalysisSnapshot) models.Explanation {
	var b strings.Builder
	fmt.Fprintf(&b, "analysis_id=%s; versions=%s,%s,%s",
		snap.AnalysisID,
		snap.AlgoVersions["metrics"],
		snap.AlgoVersions["risk"],
		snap.AlgoVersions["rules"])

	triggered := snap.Rules.TriggeredFlags()
	if len(triggered) == 0 {
		b.WriteString("\nNo deterministic risk rules were triggered based on the computed metrics in the snapshot.")
	} else {
		b.WriteString("\nTriggered risk flags:")
		for _, f := range triggered {
			fmt.Fprintf(&b, "\n- %s: %s (%s)", strings.ToUpper(f.Severity), f.Title, f.Code)
		}
		b.WriteString("\nThis explanation is derived only from the snapshot fields and rule outputs.")
	}

	text := b.String()
	return models.Explanation{
		Text:              text,
		References:        requiredCitations(snap),
		NumericTokensUsed: sortedTokens(numericTokens(text)),
		Source:            "fallback",
	}
}

func sortedTokens(tokens map[string]bool) []string {
	out := make([]string, 0, len(tokens))
	for t := range tokens {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
