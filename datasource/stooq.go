package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/models"
)

const stooqBaseURL = "https://stooq.com/q/d/l/"

// StooqProvider downloads daily bars from the Stooq CSV endpoint.
// US tickers are addressed as "<symbol>.us".
type StooqProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewStooqProvider creates a Stooq market data provider.
func NewStooqProvider() *StooqProvider {
	return &StooqProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    stooqBaseURL,
	}
}

// Name identifies this provider in cache payloads and snapshots.
func (p *StooqProvider) Name() string {
	return "stooq"
}

// FetchDaily downloads the full daily history for symbol and keeps the
// bars dated within [start, end].
func (p *StooqProvider) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (models.MarketData, error) {
	stooqSymbol := strings.ToLower(symbol) + ".us"
	url := fmt.Sprintf("%s?s=%s&i=d", p.baseURL, stooqSymbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.MarketData{}, &ProviderError{Provider: p.Name(), Op: "fetch_daily", Err: err}
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.MarketData{}, &ProviderError{Provider: p.Name(), Op: "fetch_daily", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.MarketData{}, &ProviderError{
			Provider: p.Name(), Op: "fetch_daily",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	bars, err := parseStooqCSV(resp.Body, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return models.MarketData{}, &ProviderError{Provider: p.Name(), Op: "parse_csv", Err: err}
	}

	return models.MarketData{
		Symbol:        symbol,
		Source:        p.Name(),
		DataTimestamp: time.Now().UTC(),
		Bars:          bars,
	}, nil
}

// parseStooqCSV reads the Date,Open,High,Low,Close,Volume table and keeps
// rows with startDate <= Date <= endDate, sorted ascending by date.
func parseStooqCSV(r io.Reader, startDate, endDate string) ([]models.MarketBar, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Date", "Open", "High", "Low", "Close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var bars []models.MarketBar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		date := strings.TrimSpace(record[col["Date"]])
		if date < startDate || date > endDate {
			continue
		}

		open, err := parseFloatField(record, col, "Open")
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", date, err)
		}
		high, err := parseFloatField(record, col, "High")
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", date, err)
		}
		low, err := parseFloatField(record, col, "Low")
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", date, err)
		}
		closePx, err := parseFloatField(record, col, "Close")
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", date, err)
		}

		// Stooq omits volume for some instruments; treat it as zero.
		var volume int64
		if i, ok := col["Volume"]; ok && i < len(record) {
			if v := strings.TrimSpace(record[i]); v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					volume = int64(f)
				}
			}
		}

		bars = append(bars, models.MarketBar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}

func parseFloatField(record []string, col map[string]int, name string) (float64, error) {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return 0, fmt.Errorf("missing %s field", name)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return f, nil
}
