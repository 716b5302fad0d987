package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const newsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIProvider fetches English-language headlines from the NewsAPI
// "everything" endpoint, one UTC day at a time.
type NewsAPIProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	pageSize   int
}

// NewNewsAPIProvider creates a provider bound to the given API key.
func NewNewsAPIProvider(apiKey string) (*NewsAPIProvider, error) {
	if apiKey == "" {
		return nil, errors.New("newsapi api key is required")
	}
	return &NewsAPIProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    newsAPIBaseURL,
		apiKey:     apiKey,
		pageSize:   100,
	}, nil
}

// Name identifies this provider in cache payloads.
func (p *NewsAPIProvider) Name() string {
	return "newsapi"
}

// FetchDaily downloads the headlines mentioning symbol published during
// the given UTC day.
func (p *NewsAPIProvider) FetchDaily(ctx context.Context, symbol string, day time.Time) ([]NewsArticle, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Second)

	params := url.Values{}
	params.Set("q", symbol)
	params.Set("from", from.Format(time.RFC3339))
	params.Set("to", to.Format(time.RFC3339))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(p.pageSize))
	params.Set("apiKey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "fetch_daily", Err: err}
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "fetch_daily", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: p.Name(), Op: "fetch_daily",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var payload struct {
		Status   string `json:"status"`
		Articles []struct {
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
			Author      string `json:"author"`
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Op: "decode_payload", Err: err}
	}
	if payload.Status != "" && payload.Status != "ok" {
		return nil, &ProviderError{
			Provider: p.Name(), Op: "fetch_daily",
			Err: fmt.Errorf("api status %q", payload.Status),
		}
	}

	articles := make([]NewsArticle, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		articles = append(articles, NewsArticle{
			Source:      a.Source.Name,
			Author:      a.Author,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			PublishedAt: a.PublishedAt,
		})
	}
	return articles, nil
}
