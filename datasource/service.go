package datasource

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/cache"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

// providerRetries bounds how many times a failed provider call is
// retried before the pipeline degrades for that field.
const providerRetries = 2

var retryBackoff = 500 * time.Millisecond

// fetchWithRetry runs op up to providerRetries+1 times with linear
// backoff, returning the last error if every attempt fails.
func fetchWithRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= providerRetries; attempt++ {
		if attempt > 0 {
			log.Printf("⚠️  Provider call failed, retrying (%d/%d): %v", attempt, providerRetries, err)
			select {
			case <-time.After(time.Duration(attempt) * retryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = op(); err == nil {
			return nil
		}
	}
	return err
}

// cachedBar is the per-day cache payload for one market bar, carrying the
// provenance needed to reassemble a MarketData without a provider call.
type cachedBar struct {
	Symbol        string  `json:"symbol"`
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	Source        string  `json:"source"`
	DataTimestamp string  `json:"data_timestamp"`
}

// MarketDataService serves daily bar ranges cache-first. Bars are cached
// under one key per calendar day so partially overlapping ranges reuse
// earlier fetches.
type MarketDataService struct {
	cache    cache.JSONCache
	provider MarketDataProvider
	ttl      time.Duration
}

// NewMarketDataService creates a market data service over the given
// cache and provider.
func NewMarketDataService(c cache.JSONCache, provider MarketDataProvider) *MarketDataService {
	return &MarketDataService{cache: c, provider: provider, ttl: cache.TTLMarketData}
}

// GetDailyRange returns the daily bars for [start, end]. When the cache
// holds at least minBars distinct days the range is assembled without a
// provider call; otherwise the provider is fetched once and its bars are
// cached per day. A provider failure after retries degrades to whatever
// bars the cache held.
func (s *MarketDataService) GetDailyRange(ctx context.Context, symbol string, start, end time.Time, minBars int) (models.MarketData, error) {
	var (
		bars       []models.MarketBar
		timestamps []string
		seen       = make(map[string]bool)
	)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := cache.Key(cache.KindMarketData, symbol, day.Format(models.DateLayout))
		var hit cachedBar
		ok, err := s.cache.GetJSON(ctx, key, &hit)
		if err != nil {
			log.Printf("⚠️  Cache read failed for %s: %v", key, err)
			continue
		}
		if !ok || seen[hit.Date] {
			continue
		}
		seen[hit.Date] = true
		bars = append(bars, models.MarketBar{
			Date:   hit.Date,
			Open:   hit.Open,
			High:   hit.High,
			Low:    hit.Low,
			Close:  hit.Close,
			Volume: hit.Volume,
		})
		timestamps = append(timestamps, hit.DataTimestamp)
	}

	need := minBars
	if need < 1 {
		need = 1
	}
	if len(bars) >= need {
		sortBars(bars)
		return models.MarketData{
			Symbol:        symbol,
			Source:        s.provider.Name(),
			DataTimestamp: latestTimestamp(timestamps),
			Bars:          bars,
		}, nil
	}

	var fetched models.MarketData
	err := fetchWithRetry(ctx, func() error {
		var ferr error
		fetched, ferr = s.provider.FetchDaily(ctx, symbol, start, end)
		return ferr
	})
	if err != nil {
		log.Printf("⚠️  Market data unavailable for %s, proceeding with %d cached bars: %v", symbol, len(bars), err)
		sortBars(bars)
		return models.MarketData{
			Symbol:        symbol,
			Source:        s.provider.Name(),
			DataTimestamp: latestTimestamp(timestamps),
			Bars:          bars,
		}, nil
	}

	s.cacheBars(ctx, symbol, fetched)
	return fetched, nil
}

func (s *MarketDataService) cacheBars(ctx context.Context, symbol string, market models.MarketData) {
	ts := market.DataTimestamp.UTC().Format(time.RFC3339Nano)
	for _, bar := range market.Bars {
		key := cache.Key(cache.KindMarketData, symbol, bar.Date)
		val := cachedBar{
			Symbol:        symbol,
			Date:          bar.Date,
			Open:          bar.Open,
			High:          bar.High,
			Low:           bar.Low,
			Close:         bar.Close,
			Volume:        bar.Volume,
			Source:        market.Source,
			DataTimestamp: ts,
		}
		// A failed write degrades the cache, never the pipeline.
		if err := s.cache.SetJSON(ctx, key, val, s.ttl); err != nil {
			log.Printf("⚠️  Cache write failed for %s: %v", key, err)
		}
	}
}

func sortBars(bars []models.MarketBar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
}

func latestTimestamp(raw []string) time.Time {
	var latest time.Time
	for _, r := range raw {
		if t, err := time.Parse(time.RFC3339Nano, r); err == nil && t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return time.Now().UTC()
	}
	return latest
}

// FinancialsService serves quarterly financials cache-first, keyed by
// reporting period. Reported quarters do not change, so the TTL is long.
type FinancialsService struct {
	cache    cache.JSONCache
	provider FinancialsProvider
	ttl      time.Duration
}

// NewFinancialsService creates a financials service over the given cache
// and provider.
func NewFinancialsService(c cache.JSONCache, provider FinancialsProvider) *FinancialsService {
	return &FinancialsService{cache: c, provider: provider, ttl: cache.TTLFinancials}
}

// GetQuarter returns the reported figures for one YYYYQn quarter.
func (s *FinancialsService) GetQuarter(ctx context.Context, symbol, quarter string) (models.FinancialQuarter, error) {
	key := cache.Key(cache.KindFinancials, symbol, strings.ToUpper(strings.TrimSpace(quarter)))

	var hit models.FinancialQuarter
	ok, err := s.cache.GetJSON(ctx, key, &hit)
	if err != nil {
		log.Printf("⚠️  Cache read failed for %s: %v", key, err)
	}
	if ok && err == nil {
		return hit, nil
	}

	var fetched models.FinancialQuarter
	if err := fetchWithRetry(ctx, func() error {
		var ferr error
		fetched, ferr = s.provider.FetchQuarter(ctx, symbol, quarter)
		return ferr
	}); err != nil {
		return models.FinancialQuarter{}, err
	}

	if err := s.cache.SetJSON(ctx, key, fetched, s.ttl); err != nil {
		log.Printf("⚠️  Cache write failed for %s: %v", key, err)
	}
	return fetched, nil
}

// DailyNews is the cached per-day headline payload for one symbol.
type DailyNews struct {
	Symbol        string        `json:"symbol"`
	Date          string        `json:"date"`
	Source        string        `json:"source"`
	DataTimestamp time.Time     `json:"data_timestamp"`
	Articles      []NewsArticle `json:"articles"`
}

// NewsService serves per-day headlines cache-first. News is auxiliary
// context only and never enters the snapshot.
type NewsService struct {
	cache    cache.JSONCache
	provider NewsProvider
	ttl      time.Duration
}

// NewNewsService creates a news service over the given cache and provider.
func NewNewsService(c cache.JSONCache, provider NewsProvider) *NewsService {
	return &NewsService{cache: c, provider: provider, ttl: cache.TTLNews}
}

// GetDaily returns the headlines for symbol published on the given day.
func (s *NewsService) GetDaily(ctx context.Context, symbol string, day time.Time) (DailyNews, error) {
	bucket := day.Format(models.DateLayout)
	key := cache.Key(cache.KindNews, symbol, bucket)

	var hit DailyNews
	ok, err := s.cache.GetJSON(ctx, key, &hit)
	if err != nil {
		log.Printf("⚠️  Cache read failed for %s: %v", key, err)
	}
	if ok && err == nil {
		return hit, nil
	}

	var articles []NewsArticle
	if err := fetchWithRetry(ctx, func() error {
		var ferr error
		articles, ferr = s.provider.FetchDaily(ctx, symbol, day)
		return ferr
	}); err != nil {
		return DailyNews{}, err
	}

	payload := DailyNews{
		Symbol:        symbol,
		Date:          bucket,
		Source:        s.provider.Name(),
		DataTimestamp: time.Now().UTC(),
		Articles:      articles,
	}
	if err := s.cache.SetJSON(ctx, key, payload, s.ttl); err != nil {
		log.Printf("⚠️  Cache write failed for %s: %v", key, err)
	}
	return payload, nil
}
