// Package datasource fetches market bars, quarterly financials, and news
// headlines from external providers, fronted by cache-first services so
// each provider is called at most once per missing cache key.
package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/models"
)

// ProviderError wraps an upstream data source failure with the provider
// name and operation so callers can log and degrade per field.
type ProviderError struct {
	Provider string
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// MarketDataProvider fetches daily OHLCV bars from an upstream source.
type MarketDataProvider interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) (models.MarketData, error)
}

// FinancialsProvider fetches reported figures for one fiscal quarter.
type FinancialsProvider interface {
	Name() string
	FetchQuarter(ctx context.Context, symbol, quarter string) (models.FinancialQuarter, error)
}

// NewsProvider fetches the headlines published for a symbol on one day.
type NewsProvider interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, day time.Time) ([]NewsArticle, error)
}

// NewsArticle is one normalized headline.
type NewsArticle struct {
	Source      string `json:"source"`
	Author      string `json:"author,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at"`
}
