// Package scraper integrates the Firecrawl web-scraping API as the
// knowledge-base ingestion collaborator.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/config"
	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// CrawlOptions narrow a site crawl.
type CrawlOptions struct {
	IncludePaths    []string
	ExcludePaths    []string
	Limit           int
	OnlyMainContent bool
}

// PageOptions narrow a single-page scrape.
type PageOptions struct {
	OnlyMainContent bool
}

// Scraper is the collaborator contract the knowledge service consumes. Only
// successfully-scraped records with a title and markdown body are returned.
type Scraper interface {
	Crawl(ctx context.Context, url string, opts CrawlOptions) ([]models.ScrapedDocument, error)
	ScrapePage(ctx context.Context, url string, opts PageOptions) (*models.ScrapedDocument, error)
}

// FirecrawlClient implements Scraper against the Firecrawl REST API.
type FirecrawlClient struct {
	cfg        config.FirecrawlConfig
	httpClient *http.Client
	// pollInterval between crawl status checks; crawls are asynchronous on
	// the provider side.
	pollInterval time.Duration
}

// NewFirecrawlClient creates a client from configuration.
func NewFirecrawlClient(cfg config.FirecrawlConfig) *FirecrawlClient {
	return &FirecrawlClient{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		pollInterval: 2 * time.Second,
	}
}

type scrapePayload struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type crawlPayload struct {
	URL           string        `json:"url"`
	Limit         int           `json:"limit,omitempty"`
	IncludePaths  []string      `json:"includePaths,omitempty"`
	ExcludePaths  []string      `json:"excludePaths,omitempty"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type firecrawlDocument struct {
	Markdown string `json:"markdown"`
	Metadata struct {
		Title     string `json:"title"`
		SourceURL string `json:"sourceURL"`
		Keywords  any    `json:"keywords"`
	} `json:"metadata"`
}

type scrapeResponse struct {
	Success bool              `json:"success"`
	Data    firecrawlDocument `json:"data"`
	Error   string            `json:"error"`
}

type crawlStartResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Error   string `json:"error"`
}

type crawlStatusResponse struct {
	Status string              `json:"status"`
	Data   []firecrawlDocument `json:"data"`
	Error  string              `json:"error"`
}

// ScrapePage scrapes a single page and returns its document, or an error when
// the page has no usable title/markdown.
func (c *FirecrawlClient) ScrapePage(ctx context.Context, url string, opts PageOptions) (*models.ScrapedDocument, error) {
	payload := scrapePayload{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: opts.OnlyMainContent,
	}

	var resp scrapeResponse
	if err := c.post(ctx, "/v1/scrape", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("firecrawl scrape failed: %s", resp.Error)
	}

	doc := toScrapedDocument(resp.Data, url)
	if doc == nil {
		return nil, fmt.Errorf("no valid content found in scraped page %s", url)
	}
	return doc, nil
}

// Crawl starts a site crawl and polls until it completes, returning the
// usable documents. Records without title or markdown are dropped.
func (c *FirecrawlClient) Crawl(ctx context.Context, url string, opts CrawlOptions) ([]models.ScrapedDocument, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 10
	}
	payload := crawlPayload{
		URL:          url,
		Limit:        limit,
		IncludePaths: opts.IncludePaths,
		ExcludePaths: opts.ExcludePaths,
		ScrapeOptions: scrapeOptions{
			Formats:         []string{"markdown"},
			OnlyMainContent: opts.OnlyMainContent,
		},
	}

	var started crawlStartResponse
	if err := c.post(ctx, "/v1/crawl", payload, &started); err != nil {
		return nil, err
	}
	if !started.Success || started.ID == "" {
		return nil, fmt.Errorf("firecrawl crawl failed to start: %s", started.Error)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var status crawlStatusResponse
		if err := c.get(ctx, "/v1/crawl/"+started.ID, &status); err != nil {
			return nil, err
		}
		switch status.Status {
		case "completed":
			var docs []models.ScrapedDocument
			for _, raw := range status.Data {
				if doc := toScrapedDocument(raw, url); doc != nil {
					docs = append(docs, *doc)
				}
			}
			return docs, nil
		case "failed":
			return nil, fmt.Errorf("firecrawl crawl failed: %s", status.Error)
		}
	}
}

func toScrapedDocument(raw firecrawlDocument, fallbackURL string) *models.ScrapedDocument {
	if raw.Markdown == "" || raw.Metadata.Title == "" {
		return nil
	}
	source := raw.Metadata.SourceURL
	if source == "" {
		source = fallbackURL
	}
	return &models.ScrapedDocument{
		Title:     raw.Metadata.Title,
		Markdown:  raw.Markdown,
		SourceURL: source,
		Tags:      keywordTags(raw.Metadata.Keywords),
	}
}

// keywordTags normalizes the provider's loosely-typed keywords metadata.
func keywordTags(keywords any) []string {
	switch v := keywords.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	}
	return nil
}

func (c *FirecrawlClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *FirecrawlClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *FirecrawlClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("firecrawl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("firecrawl returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("firecrawl response decode failed: %w", err)
	}
	return nil
}
