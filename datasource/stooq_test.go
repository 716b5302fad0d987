package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const stooqFixture = `Date,Open,High,Low,Close,Volume
2024-01-02,185.64,186.95,184.26,185.64,52242800
2024-01-03,184.22,185.88,183.43,184.25,58414500
2023-12-29,193.90,194.40,191.73,192.53,42628800
2024-02-01,183.99,186.95,183.82,186.86,64885400
`

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d
}

func TestStooqFetchDaily(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(stooqFixture))
	}))
	defer srv.Close()

	p := &StooqProvider{httpClient: srv.Client(), baseURL: srv.URL}
	got, err := p.FetchDaily(context.Background(), "AAPL", mustDate(t, "2024-01-01"), mustDate(t, "2024-01-31"))
	if err != nil {
		t.Fatalf("FetchDaily returned error: %v", err)
	}

	if !strings.Contains(gotURL, "s=aapl.us") {
		t.Errorf("request %q does not address aapl.us", gotURL)
	}
	if got.Source != "stooq" {
		t.Errorf("source = %s, want stooq", got.Source)
	}
	if got.Symbol != "AAPL" {
		t.Errorf("symbol = %s, want AAPL", got.Symbol)
	}
	if len(got.Bars) != 2 {
		t.Fatalf("expected 2 bars inside range, got %d", len(got.Bars))
	}
	if got.Bars[0].Date != "2024-01-02" || got.Bars[1].Date != "2024-01-03" {
		t.Errorf("bars out of order: %s, %s", got.Bars[0].Date, got.Bars[1].Date)
	}
	if got.Bars[0].Close != 185.64 {
		t.Errorf("close = %v, want 185.64", got.Bars[0].Close)
	}
	if got.Bars[0].Volume != 52242800 {
		t.Errorf("volume = %d, want 52242800", got.Bars[0].Volume)
	}
}

func TestStooqFetchDailyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := &StooqProvider{httpClient: srv.Client(), baseURL: srv.URL}
	_, err := p.FetchDaily(context.Background(), "AAPL", mustDate(t, "2024-01-01"), mustDate(t, "2024-01-31"))
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if perr.Provider != "stooq" {
		t.Errorf("provider = %s, want stooq", perr.Provider)
	}
}

func TestParseStooqCSVUnsorted(t *testing.T) {
	csv := "Date,Open,High,Low,Close,Volume\n" +
		"2024-01-03,1,1,1,1,10\n" +
		"2024-01-02,1,1,1,1,10\n"
	bars, err := parseStooqCSV(strings.NewReader(csv), "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("parseStooqCSV returned error: %v", err)
	}
	if len(bars) != 2 || bars[0].Date != "2024-01-02" {
		t.Errorf("expected ascending date order, got %+v", bars)
	}
}

func TestParseStooqCSVMissingVolume(t *testing.T) {
	csv := "Date,Open,High,Low,Close\n2024-01-02,1,2,0.5,1.5\n"
	bars, err := parseStooqCSV(strings.NewReader(csv), "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("parseStooqCSV returned error: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	if bars[0].Volume != 0 {
		t.Errorf("volume = %d, want 0 for missing column", bars[0].Volume)
	}
}

func TestParseStooqCSVNoData(t *testing.T) {
	if _, err := parseStooqCSV(strings.NewReader("No data"), "2024-01-01", "2024-01-31"); err == nil {
		t.Fatal("expected error for No data body")
	}
}
