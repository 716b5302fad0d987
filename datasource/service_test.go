package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/cache"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

type stubMarketProvider struct {
	data  models.MarketData
	err   error
	calls int
}

func (s *stubMarketProvider) Name() string { return "stub" }

func (s *stubMarketProvider) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (models.MarketData, error) {
	s.calls++
	if s.err != nil {
		return models.MarketData{}, s.err
	}
	return s.data, nil
}

type stubFinancialsProvider struct {
	quarter models.FinancialQuarter
	err     error
	calls   int
}

func (s *stubFinancialsProvider) Name() string { return "stub-financials" }

func (s *stubFinancialsProvider) FetchQuarter(ctx context.Context, symbol, quarter string) (models.FinancialQuarter, error) {
	s.calls++
	if s.err != nil {
		return models.FinancialQuarter{}, s.err
	}
	return s.quarter, nil
}

type stubNewsProvider struct {
	articles []NewsArticle
	calls    int
}

func (s *stubNewsProvider) Name() string { return "stub-news" }

func (s *stubNewsProvider) FetchDaily(ctx context.Context, symbol string, day time.Time) ([]NewsArticle, error) {
	s.calls++
	return s.articles, nil
}

func withFastRetry(t *testing.T) {
	t.Helper()
	old := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = old })
}

func stubBars() models.MarketData {
	return models.MarketData{
		Symbol:        "AAPL",
		Source:        "stub",
		DataTimestamp: time.Date(2024, 1, 3, 22, 0, 0, 0, time.UTC),
		Bars: []models.MarketBar{
			{Date: "2024-01-02", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
			{Date: "2024-01-03", Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 20},
		},
	}
}

func TestMarketDataServiceMissThenHit(t *testing.T) {
	ctx := context.Background()
	provider := &stubMarketProvider{data: stubBars()}
	svc := NewMarketDataService(cache.NewInMemoryCache(), provider)

	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-01-07")

	first, err := svc.GetDailyRange(ctx, "AAPL", start, end, 1)
	if err != nil {
		t.Fatalf("first GetDailyRange returned error: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("expected 1 provider call on miss, got %d", provider.calls)
	}
	if len(first.Bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(first.Bars))
	}

	second, err := svc.GetDailyRange(ctx, "AAPL", start, end, 1)
	if err != nil {
		t.Fatalf("second GetDailyRange returned error: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("expected cached range to avoid provider call, got %d calls", provider.calls)
	}
	if len(second.Bars) != 2 {
		t.Fatalf("expected 2 cached bars, got %d", len(second.Bars))
	}
	if second.Bars[0].Date != "2024-01-02" || second.Bars[0].Close != 1.5 {
		t.Errorf("cached bar mismatch: %+v", second.Bars[0])
	}
	if second.Source != "stub" {
		t.Errorf("source = %s, want stub", second.Source)
	}
	if !second.DataTimestamp.Equal(stubBars().DataTimestamp) {
		t.Errorf("data_timestamp = %v, want original fetch time", second.DataTimestamp)
	}
}

func TestMarketDataServiceMinBarsForcesFetch(t *testing.T) {
	ctx := context.Background()
	provider := &stubMarketProvider{data: stubBars()}
	svc := NewMarketDataService(cache.NewInMemoryCache(), provider)

	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-01-07")

	if _, err := svc.GetDailyRange(ctx, "AAPL", start, end, 1); err != nil {
		t.Fatalf("seed fetch returned error: %v", err)
	}
	if _, err := svc.GetDailyRange(ctx, "AAPL", start, end, 5); err != nil {
		t.Fatalf("min-bars fetch returned error: %v", err)
	}
	if provider.calls != 2 {
		t.Errorf("expected refetch when cached days < min bars, got %d calls", provider.calls)
	}
}

func TestMarketDataServiceDegradesOnProviderFailure(t *testing.T) {
	withFastRetry(t)
	ctx := context.Background()
	provider := &stubMarketProvider{err: errors.New("connection refused")}
	svc := NewMarketDataService(cache.NewInMemoryCache(), provider)

	got, err := svc.GetDailyRange(ctx, "AAPL", mustDate(t, "2024-01-01"), mustDate(t, "2024-01-07"), 1)
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}
	if len(got.Bars) != 0 {
		t.Errorf("expected no bars, got %d", len(got.Bars))
	}
	if provider.calls != providerRetries+1 {
		t.Errorf("expected %d attempts, got %d", providerRetries+1, provider.calls)
	}
}

func TestMarketDataServiceDegradedKeepsCachedBars(t *testing.T) {
	withFastRetry(t)
	ctx := context.Background()
	provider := &stubMarketProvider{data: stubBars()}
	svc := NewMarketDataService(cache.NewInMemoryCache(), provider)

	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-01-07")
	if _, err := svc.GetDailyRange(ctx, "AAPL", start, end, 1); err != nil {
		t.Fatalf("seed fetch returned error: %v", err)
	}

	provider.err = errors.New("connection refused")
	got, err := svc.GetDailyRange(ctx, "AAPL", start, end, 5)
	if err != nil {
		t.Fatalf("expected degraded result, got error: %v", err)
	}
	if len(got.Bars) != 2 {
		t.Errorf("expected the 2 cached bars to survive degradation, got %d", len(got.Bars))
	}
}

func TestFinancialsServiceCachesQuarter(t *testing.T) {
	ctx := context.Background()
	sourceTS := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	provider := &stubFinancialsProvider{
		quarter: models.FinancialQuarter{
			Symbol:          "AAPL",
			Quarter:         "2023Q4",
			Source:          "stub-financials",
			DataTimestamp:   time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC),
			SourceTimestamp: &sourceTS,
			Values:          map[string]*float64{"totalRevenue": floatPtr(119575000000)},
		},
	}
	svc := NewFinancialsService(cache.NewInMemoryCache(), provider)

	first, err := svc.GetQuarter(ctx, "AAPL", "2023Q4")
	if err != nil {
		t.Fatalf("first GetQuarter returned error: %v", err)
	}
	second, err := svc.GetQuarter(ctx, "AAPL", "2023q4")
	if err != nil {
		t.Fatalf("second GetQuarter returned error: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
	if second.Quarter != first.Quarter || second.Source != first.Source {
		t.Errorf("cached quarter mismatch: %+v", second)
	}
	revenue := second.Values["totalRevenue"]
	if revenue == nil || *revenue != 119575000000 {
		t.Errorf("cached totalRevenue = %v, want 119575000000", revenue)
	}
}

func TestFinancialsServicePropagatesFailure(t *testing.T) {
	withFastRetry(t)
	provider := &stubFinancialsProvider{err: errors.New("rate limited")}
	svc := NewFinancialsService(cache.NewInMemoryCache(), provider)

	if _, err := svc.GetQuarter(context.Background(), "AAPL", "2023Q4"); err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if provider.calls != providerRetries+1 {
		t.Errorf("expected %d attempts, got %d", providerRetries+1, provider.calls)
	}
}

func TestNewsServiceCachesDaily(t *testing.T) {
	ctx := context.Background()
	provider := &stubNewsProvider{
		articles: []NewsArticle{{Source: "Example Wire", Title: "AAPL ships things", URL: "https://example.com/a"}},
	}
	svc := NewNewsService(cache.NewInMemoryCache(), provider)

	day := mustDate(t, "2024-01-03")
	first, err := svc.GetDaily(ctx, "AAPL", day)
	if err != nil {
		t.Fatalf("first GetDaily returned error: %v", err)
	}
	second, err := svc.GetDaily(ctx, "AAPL", day)
	if err != nil {
		t.Fatalf("second GetDaily returned error: %v", err)
	}

	if provider.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.calls)
	}
	if first.Symbol != "AAPL" || first.Date != "2024-01-03" || first.Source != "stub-news" {
		t.Errorf("payload fields mismatch: %+v", first)
	}
	if len(second.Articles) != 1 || second.Articles[0].Title != "AAPL ships things" {
		t.Errorf("cached articles mismatch: %+v", second.Articles)
	}
}
