// Package scheduler refreshes watchlist snapshots on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/YKunlee/Financial-Research-Agent/agent"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// Analyzer runs one research analysis.
type Analyzer interface {
	Analyze(ctx context.Context, query string, asOf time.Time) (agent.Result, error)
}

// Scheduler manages the periodic watchlist refresh.
type Scheduler struct {
	cron      *cron.Cron
	analyzer  Analyzer
	watchlist []string
	ctx       context.Context
}

// New creates a scheduler for the given watchlist.
func New(ctx context.Context, analyzer Analyzer, watchlist []string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		analyzer:  analyzer,
		watchlist: watchlist,
		ctx:       ctx,
	}
}

// Register adds the refresh job. Schedules use six-field cron
// expressions (seconds first).
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.refreshWatchlist); err != nil {
		return fmt.Errorf("register watchlist refresh: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("✅ Scheduler started (%d watchlist symbols)", len(s.watchlist))
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("🛑 Scheduler stopped")
}

// RunNow executes the refresh immediately (for manual trigger).
func (s *Scheduler) RunNow() {
	s.refreshWatchlist()
}

// refreshWatchlist analyzes every watchlist symbol as of today. A
// failing symbol never blocks the rest of the list.
func (s *Scheduler) refreshWatchlist() {
	asOf := time.Now().UTC()
	log.Printf("🔄 Refreshing %d watchlist symbols as of %s", len(s.watchlist), asOf.Format(models.DateLayout))

	for _, symbol := range s.watchlist {
		result, err := s.analyzer.Analyze(s.ctx, symbol, asOf)
		if err != nil {
			log.Printf("⚠️  Watchlist refresh failed for %s: %v", symbol, err)
			continue
		}
		log.Printf("✅ %s refreshed, analysis_id=%s", symbol, result.Snapshot.AnalysisID)
	}
}
