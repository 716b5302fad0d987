// Package agent orchestrates a single research run: identity
// resolution, cached data retrieval, metric computation, rule
// evaluation, snapshot persistence, and the guarded explanation.
package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/config"
	"github.com/YKunlee/Financial-Research-Agent/datasource"
	"github.com/YKunlee/Financial-Research-Agent/helpers"
	"github.com/YKunlee/Financial-Research-Agent/identify"
	"github.com/YKunlee/Financial-Research-Agent/llm"
	"github.com/YKunlee/Financial-Research-Agent/metrics"
	"github.com/YKunlee/Financial-Research-Agent/models"
	"github.com/YKunlee/Financial-Research-Agent/rules"
	"github.com/YKunlee/Financial-Research-Agent/snapshot"
)

// Result is the outcome of one analysis run.
type Result struct {
	Snapshot    models.AnalysisSnapshot
	Explanation models.Explanation
}

// ResearchAgent wires the full pipeline behind a single Analyze call.
type ResearchAgent struct {
	resolver   *identify.Resolver
	market     *datasource.MarketDataService
	financials *datasource.FinancialsService // nil when no API key is configured
	explainer  *llm.Explainer
	store      snapshot.Store
	cfg        config.AnalysisConfig
}

// New creates a research agent. The financials service may be nil, in
// which case snapshots carry an empty financials section.
func New(
	resolver *identify.Resolver,
	market *datasource.MarketDataService,
	financials *datasource.FinancialsService,
	explainer *llm.Explainer,
	store snapshot.Store,
	cfg config.AnalysisConfig,
) *ResearchAgent {
	return &ResearchAgent{
		resolver:   resolver,
		market:     market,
		financials: financials,
		explainer:  explainer,
		store:      store,
		cfg:        cfg,
	}
}

// Analyze runs the full pipeline for a company query as of the given
// date. The same query, date, and upstream data always produce the same
// analysis_id; persistence fails only on a consistency violation.
func (a *ResearchAgent) Analyze(ctx context.Context, query string, asOf time.Time) (Result, error) {
	identity, err := a.resolver.Resolve(query)
	if err != nil {
		return Result{}, err
	}

	asOfStr := asOf.Format(models.DateLayout)
	start := asOf.AddDate(0, 0, -a.cfg.LookbackDays)

	market, err := a.market.GetDailyRange(ctx, identity.Symbol, start, asOf, a.cfg.MinBars)
	if err != nil {
		return Result{}, fmt.Errorf("market data for %s: %w", identity.Symbol, err)
	}
	if len(market.Bars) == 0 {
		log.Printf("⚠️  No market history for %s up to %s, metrics will be null", identity.Symbol, asOfStr)
	}

	technicals := metrics.ComputeTechnicalIndicators(market, asOfStr)
	risk := metrics.ComputeRiskMetrics(market, asOfStr, a.cfg.RiskFreeDaily)
	ruleResults := rules.Apply(technicals, risk)

	financials := a.fetchFinancials(ctx, identity.Symbol, asOf)

	snap, err := snapshot.Build(identity, asOfStr, market, financials, technicals, risk, ruleResults)
	if err != nil {
		return Result{}, fmt.Errorf("build snapshot: %w", err)
	}

	if err := a.store.Save(ctx, snap); err != nil {
		return Result{}, fmt.Errorf("persist snapshot %s: %w", snap.AnalysisID, err)
	}

	explanation := a.explainer.Explain(ctx, snap)
	return Result{Snapshot: snap, Explanation: explanation}, nil
}

// fetchFinancials returns the fundamentals for the quarter containing
// asOf, or an empty slice when the provider is unconfigured or fails.
// Missing fundamentals degrade the snapshot, never the run.
func (a *ResearchAgent) fetchFinancials(ctx context.Context, symbol string, asOf time.Time) []models.FinancialQuarter {
	if a.financials == nil {
		return []models.FinancialQuarter{}
	}
	quarter := helpers.CalendarQuarter(asOf)
	fq, err := a.financials.GetQuarter(ctx, symbol, quarter)
	if err != nil {
		log.Printf("⚠️  Financials unavailable for %s %s: %v", symbol, quarter, err)
		return []models.FinancialQuarter{}
	}
	return []models.FinancialQuarter{fq}
}
