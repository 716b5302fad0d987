package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/YKunlee/Financial-Research-Agent/helpers"
	"github.com/YKunlee/Financial-Research-Agent/models"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// financialFields are the raw income statement figures carried into the
// snapshot. Only reported upstream values, never derived metrics.
var financialFields = []string{"totalRevenue", "grossProfit", "netIncome", "operatingCashflow"}

// AlphaVantageProvider fetches quarterly income statements from the
// Alpha Vantage INCOME_STATEMENT endpoint.
type AlphaVantageProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAlphaVantageProvider creates a provider bound to the given API key.
func NewAlphaVantageProvider(apiKey string) (*AlphaVantageProvider, error) {
	if apiKey == "" {
		return nil, errors.New("alphavantage api key is required")
	}
	return &AlphaVantageProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    alphaVantageBaseURL,
		apiKey:     apiKey,
	}, nil
}

// Name identifies this provider in cache payloads and snapshots.
func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

// FetchQuarter downloads the quarterly reports for symbol and picks the
// one whose fiscalDateEnding falls in the requested YYYYQn quarter.
func (p *AlphaVantageProvider) FetchQuarter(ctx context.Context, symbol, quarter string) (models.FinancialQuarter, error) {
	target := strings.ToUpper(strings.TrimSpace(quarter))

	params := url.Values{}
	params.Set("function", "INCOME_STATEMENT")
	params.Set("symbol", symbol)
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return models.FinancialQuarter{}, &ProviderError{Provider: p.Name(), Op: "fetch_quarter", Err: err}
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.FinancialQuarter{}, &ProviderError{Provider: p.Name(), Op: "fetch_quarter", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.FinancialQuarter{}, &ProviderError{
			Provider: p.Name(), Op: "fetch_quarter",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var payload struct {
		QuarterlyReports []map[string]interface{} `json:"quarterlyReports"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.FinancialQuarter{}, &ProviderError{Provider: p.Name(), Op: "decode_payload", Err: err}
	}

	var (
		chosen map[string]interface{}
		fiscal string
	)
	for _, report := range payload.QuarterlyReports {
		f, _ := report["fiscalDateEnding"].(string)
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if helpers.QuarterFromDate(f) == target {
			chosen = report
			fiscal = f
			break
		}
	}
	if chosen == nil {
		return models.FinancialQuarter{}, &ProviderError{
			Provider: p.Name(), Op: "fetch_quarter",
			Err: fmt.Errorf("quarter %s not found for %s", target, symbol),
		}
	}

	var sourceTS *time.Time
	if t, err := time.Parse(models.DateLayout, fiscal); err == nil {
		utc := t.UTC()
		sourceTS = &utc
	}

	values := make(map[string]*float64, len(financialFields))
	for _, field := range financialFields {
		values[field] = toFloat(chosen[field])
	}

	return models.FinancialQuarter{
		Symbol:          symbol,
		Quarter:         target,
		Source:          p.Name(),
		DataTimestamp:   time.Now().UTC(),
		SourceTimestamp: sourceTS,
		Values:          values,
	}, nil
}

// toFloat converts an upstream figure to a float, treating absent values
// and the literal "None" the API uses as missing.
func toFloat(v interface{}) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	case string:
		s := strings.TrimSpace(val)
		if s == "" || strings.EqualFold(s, "none") {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
