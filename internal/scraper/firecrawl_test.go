package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow-io/deskflow-ce/internal/config"
)

func newTestClient(server *httptest.Server) *FirecrawlClient {
	c := NewFirecrawlClient(config.FirecrawlConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	})
	c.pollInterval = time.Millisecond
	return c
}

func TestScrapePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "https://ex.com/guide", payload["url"])

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"markdown": "# Guide\ncontent",
				"metadata": map[string]any{
					"title":     "The Guide",
					"sourceURL": "https://ex.com/guide",
					"keywords":  "docs",
				},
			},
		})
	}))
	defer server.Close()

	doc, err := newTestClient(server).ScrapePage(context.Background(), "https://ex.com/guide", PageOptions{OnlyMainContent: true})
	require.NoError(t, err)
	assert.Equal(t, "The Guide", doc.Title)
	assert.Equal(t, "https://ex.com/guide", doc.SourceURL)
	assert.Equal(t, []string{"docs"}, doc.Tags)
}

func TestScrapePageRejectsEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"markdown": "", "metadata": map[string]any{"title": "Empty"}},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server).ScrapePage(context.Background(), "https://ex.com/empty", PageOptions{})
	assert.Error(t, err)
}

func TestCrawlPollsUntilCompleted(t *testing.T) {
	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/crawl":
			json.NewEncoder(w).Encode(map[string]any{"success": true, "id": "job-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/crawl/job-1":
			polls++
			if polls < 3 {
				json.NewEncoder(w).Encode(map[string]any{"status": "scraping"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"status": "completed",
				"data": []map[string]any{
					{"markdown": "# A", "metadata": map[string]any{"title": "Page A"}},
					{"markdown": "", "metadata": map[string]any{"title": "Dropped"}},
				},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	docs, err := newTestClient(server).Crawl(context.Background(), "https://ex.com", CrawlOptions{Limit: 5})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Page A", docs[0].Title)
	// Records without markdown never reach the caller; the fallback source is
	// the crawl root.
	assert.Equal(t, "https://ex.com", docs[0].SourceURL)
	assert.GreaterOrEqual(t, polls, 3)
}

func TestCrawlFailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"success": true, "id": "job-2"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "failed", "error": "blocked by robots.txt"})
	}))
	defer server.Close()

	_, err := newTestClient(server).Crawl(context.Background(), "https://ex.com", CrawlOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "robots.txt")
}

func TestCrawlHonorsContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"success": true, "id": "job-3"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "scraping"})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(server).Crawl(ctx, "https://ex.com", CrawlOptions{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestKeywordTags(t *testing.T) {
	assert.Nil(t, keywordTags(nil))
	assert.Nil(t, keywordTags(""))
	assert.Equal(t, []string{"docs"}, keywordTags("docs"))
	assert.Equal(t, []string{"a", "b"}, keywordTags([]any{"a", "", "b", 7}))
}
