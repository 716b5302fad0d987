package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const incomeStatementFixture = `{
  "symbol": "AAPL",
  "quarterlyReports": [
    {
      "fiscalDateEnding": "2023-12-31",
      "totalRevenue": "119575000000",
      "grossProfit": "54855000000",
      "netIncome": "33916000000",
      "operatingCashflow": "None"
    },
    {
      "fiscalDateEnding": "2023-09-30",
      "totalRevenue": "89498000000",
      "grossProfit": "40427000000",
      "netIncome": "22956000000",
      "operatingCashflow": "21598000000"
    }
  ]
}`

func newTestAlphaVantage(t *testing.T, body string) *AlphaVantageProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "INCOME_STATEMENT" {
			t.Errorf("function = %s, want INCOME_STATEMENT", got)
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return &AlphaVantageProvider{httpClient: srv.Client(), baseURL: srv.URL, apiKey: "test-key"}
}

func TestAlphaVantageFetchQuarter(t *testing.T) {
	p := newTestAlphaVantage(t, incomeStatementFixture)

	got, err := p.FetchQuarter(context.Background(), "AAPL", "2023q4")
	if err != nil {
		t.Fatalf("FetchQuarter returned error: %v", err)
	}
	if got.Quarter != "2023Q4" {
		t.Errorf("quarter = %s, want 2023Q4", got.Quarter)
	}
	if got.Source != "alphavantage" {
		t.Errorf("source = %s, want alphavantage", got.Source)
	}

	revenue := got.Values["totalRevenue"]
	if revenue == nil || *revenue != 119575000000 {
		t.Errorf("totalRevenue = %v, want 119575000000", revenue)
	}
	if got.Values["operatingCashflow"] != nil {
		t.Errorf("expected nil operatingCashflow for literal None, got %v", *got.Values["operatingCashflow"])
	}

	wantTS := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	if got.SourceTimestamp == nil || !got.SourceTimestamp.Equal(wantTS) {
		t.Errorf("source_timestamp = %v, want %v", got.SourceTimestamp, wantTS)
	}
}

func TestAlphaVantageQuarterNotFound(t *testing.T) {
	p := newTestAlphaVantage(t, incomeStatementFixture)

	_, err := p.FetchQuarter(context.Background(), "AAPL", "2021Q1")
	if err == nil {
		t.Fatal("expected error for absent quarter")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
}

func TestAlphaVantageRequiresAPIKey(t *testing.T) {
	if _, err := NewAlphaVantageProvider(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want *float64
	}{
		{"numeric string", "123.5", floatPtr(123.5)},
		{"integer string", "21598000000", floatPtr(21598000000)},
		{"none literal", "None", nil},
		{"empty string", " ", nil},
		{"nil", nil, nil},
		{"float", 0.5, floatPtr(0.5)},
		{"garbage", "n/a", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toFloat(tt.in)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("toFloat(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("toFloat(%v) = %v, want %v", tt.in, *got, *tt.want)
			}
		})
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
