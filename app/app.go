// Package app wires configuration, cache, snapshot store, providers,
// and the HTTP surface into a runnable application.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/agent"
	"github.com/YKunlee/Financial-Research-Agent/api"
	"github.com/YKunlee/Financial-Research-Agent/cache"
	"github.com/YKunlee/Financial-Research-Agent/config"
	"github.com/YKunlee/Financial-Research-Agent/datasource"
	"github.com/YKunlee/Financial-Research-Agent/identify"
	"github.com/YKunlee/Financial-Research-Agent/llm"
	"github.com/YKunlee/Financial-Research-Agent/scheduler"
	"github.com/YKunlee/Financial-Research-Agent/snapshot"
)

// App represents the main application
type App struct {
	config *config.Config
	cache  cache.JSONCache
	store  snapshot.Store
	agent  *agent.ResearchAgent
	news   *datasource.NewsService
}

// New creates a new application instance and connects its components.
func New(cfg *config.Config) (*App, error) {
	// 1. Cache (Redis with in-memory fallback)
	var c cache.JSONCache
	if rc := cache.NewRedisCache(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword); rc != nil {
		c = rc
	} else {
		log.Println("⚠️  Redis unavailable. Using in-memory cache.")
		c = cache.NewInMemoryCache()
	}

	// 2. Company reference tables
	resolver, err := identify.NewResolver(cfg.CompaniesCSV, cfg.AliasesJSON)
	if err != nil {
		return nil, fmt.Errorf("load company tables: %w", err)
	}

	// 3. Snapshot store
	store, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: %w", err)
	}

	// 4. Data providers
	marketSvc := datasource.NewMarketDataService(c, datasource.NewStooqProvider())

	var finSvc *datasource.FinancialsService
	if key := cfg.Providers.AlphaVantageAPIKey; key != "" {
		provider, err := datasource.NewAlphaVantageProvider(key)
		if err != nil {
			return nil, err
		}
		finSvc = datasource.NewFinancialsService(c, provider)
	} else {
		log.Println("ℹ️  No Alpha Vantage API key, financials disabled")
	}

	var newsSvc *datasource.NewsService
	if key := cfg.Providers.NewsAPIKey; key != "" {
		provider, err := datasource.NewNewsAPIProvider(key)
		if err != nil {
			return nil, err
		}
		newsSvc = datasource.NewNewsService(c, provider)
	}

	// 5. Explanation layer
	var generator llm.Generator
	if cfg.LLM.Enabled {
		generator = llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.Model)
		log.Printf("✅ LLM explanations ENABLED (Model: %s)", cfg.LLM.Model)
	} else {
		log.Println("ℹ️  LLM explanations DISABLED, using deterministic fallback")
	}
	explainer := llm.NewExplainer(generator)

	researchAgent := agent.New(resolver, marketSvc, finSvc, explainer, store, cfg.Analysis)

	return &App{
		config: cfg,
		cache:  c,
		store:  store,
		agent:  researchAgent,
		news:   newsSvc,
	}, nil
}

// newStore selects the snapshot store backend from the configuration.
func newStore(cfg *config.Config) (snapshot.Store, error) {
	switch cfg.Snapshot.Backend {
	case "", "file":
		return snapshot.NewFileStore(cfg.Snapshot.Dir), nil
	case "sqlite":
		return snapshot.NewSQLiteStore(cfg.Snapshot.SQLitePath)
	case "postgres":
		return snapshot.NewPostgresStore(
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Name,
			cfg.Database.User,
			cfg.Database.Password,
		)
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshot.Backend)
	}
}

// Agent returns the research pipeline for one-shot runs.
func (a *App) Agent() *agent.ResearchAgent {
	return a.agent
}

// Store returns the snapshot store.
func (a *App) Store() snapshot.Store {
	return a.store
}

// Close releases the store and cache connections.
func (a *App) Close() {
	if err := a.store.Close(); err != nil {
		log.Printf("Error closing snapshot store: %v", err)
	}
	if err := a.cache.Close(); err != nil {
		log.Printf("Error closing cache: %v", err)
	}
}

// Start runs the API server and the watchlist scheduler until an
// interrupt arrives, then shuts both down gracefully.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// API server
	apiServer := api.NewServer(a.agent, a.store, a.news)
	go func() {
		if err := apiServer.Start(a.config.Server.Port); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️  API Server failed: %v", err)
		}
	}()

	// Watchlist scheduler
	var sched *scheduler.Scheduler
	if len(a.config.Watchlist.Symbols) > 0 {
		sched = scheduler.New(ctx, a.agent, a.config.Watchlist.Symbols)
		if err := sched.Register(a.config.Watchlist.Schedule); err != nil {
			return err
		}
		sched.Start()
	} else {
		log.Println("ℹ️  Watchlist empty, scheduler not started")
	}

	return a.gracefulShutdown(cancel, apiServer, sched)
}

// gracefulShutdown handles graceful shutdown with timeout
func (a *App) gracefulShutdown(cancel context.CancelFunc, apiServer *api.Server, sched *scheduler.Scheduler) error {
	// Setup signal handling
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal
	<-interrupt
	fmt.Println("\n🛑 Shutdown signal received, initiating graceful shutdown...")

	// Cancel context to stop scheduled work
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	shutdownComplete := make(chan struct{})
	go func() {
		if sched != nil {
			sched.Stop()
		}

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error closing API server: %v", err)
		} else {
			fmt.Println("✅ API server closed")
		}

		a.Close()
		close(shutdownComplete)
	}()

	// Wait for shutdown to complete or timeout
	select {
	case <-shutdownComplete:
		fmt.Println("✅ Graceful shutdown completed")
		return nil
	case <-shutdownCtx.Done():
		fmt.Println("⚠️  Shutdown timeout exceeded, forcing exit")
		return fmt.Errorf("shutdown timeout")
	}
}
