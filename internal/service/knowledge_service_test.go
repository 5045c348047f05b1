package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow-io/deskflow-ce/internal/models"
	"github.com/deskflow-io/deskflow-ce/internal/repository"
	"github.com/deskflow-io/deskflow-ce/internal/scraper"
)

// fakeScraper hands back canned documents.
type fakeScraper struct {
	crawlDocs []models.ScrapedDocument
	page      *models.ScrapedDocument
	err       error
}

func (f *fakeScraper) Crawl(_ context.Context, _ string, _ scraper.CrawlOptions) ([]models.ScrapedDocument, error) {
	return f.crawlDocs, f.err
}

func (f *fakeScraper) ScrapePage(_ context.Context, _ string, _ scraper.PageOptions) (*models.ScrapedDocument, error) {
	return f.page, f.err
}

func TestStoreAndListDocuments(t *testing.T) {
	repo := repository.NewMemoryKnowledgeRepository()
	svc := NewKnowledgeService(repo, nil)

	url := "https://docs.example.com/reset"
	id, err := svc.StoreDocument(context.Background(), "Password Reset", "Steps to reset.", &url, []string{"authentication"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	docs, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Password Reset", docs[0].Title)
	assert.Equal(t, models.TagList{"authentication"}, docs[0].Tags)
}

func TestDeleteDocument(t *testing.T) {
	repo := repository.NewMemoryKnowledgeRepository()
	svc := NewKnowledgeService(repo, nil)

	id, err := svc.StoreDocument(context.Background(), "Doc", "content", nil, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(context.Background(), id))
	assert.ErrorIs(t, svc.DeleteDocument(context.Background(), id), repository.ErrDocNotFound)
}

func TestDocumentsByTags(t *testing.T) {
	repo := repository.NewMemoryKnowledgeRepository()
	svc := NewKnowledgeService(repo, nil)

	_, err := svc.StoreDocument(context.Background(), "Auth Doc", "c", nil, []string{"Authentication", "login"})
	require.NoError(t, err)
	_, err = svc.StoreDocument(context.Background(), "Billing Doc", "c", nil, []string{"billing"})
	require.NoError(t, err)

	docs, err := svc.DocumentsByTags(context.Background(), []string{"authentication"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Auth Doc", docs[0].Title)

	docs, err = svc.DocumentsByTags(context.Background(), []string{"billing", "login"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIngestCrawlStoresScrapedDocuments(t *testing.T) {
	repo := repository.NewMemoryKnowledgeRepository()
	svc := NewKnowledgeService(repo, &fakeScraper{
		crawlDocs: []models.ScrapedDocument{
			{Title: "Guide A", Markdown: "# A\ncontent", SourceURL: "https://ex.com/a", Tags: []string{"docs"}},
			{Title: "Guide B", Markdown: "# B\ncontent", SourceURL: "https://ex.com/b"},
		},
	})

	report, err := svc.IngestCrawl(context.Background(), "https://ex.com", scraper.CrawlOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, report.DocumentsStored)

	docs, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestIngestCrawlWithoutScraper(t *testing.T) {
	svc := NewKnowledgeService(repository.NewMemoryKnowledgeRepository(), nil)

	_, err := svc.IngestCrawl(context.Background(), "https://ex.com", scraper.CrawlOptions{})
	assert.Error(t, err)
}

func TestIngestPage(t *testing.T) {
	repo := repository.NewMemoryKnowledgeRepository()
	svc := NewKnowledgeService(repo, &fakeScraper{
		page: &models.ScrapedDocument{Title: "Single Page", Markdown: "body", SourceURL: "https://ex.com/p"},
	})

	id, err := svc.IngestPage(context.Background(), "https://ex.com/p", scraper.PageOptions{OnlyMainContent: true})
	require.NoError(t, err)

	doc, err := svc.GetDocument(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Single Page", doc.Title)
	require.NotNil(t, doc.URL)
	assert.Equal(t, "https://ex.com/p", *doc.URL)
}

func TestIngestPageScraperError(t *testing.T) {
	svc := NewKnowledgeService(repository.NewMemoryKnowledgeRepository(), &fakeScraper{err: errors.New("upstream 502")})

	_, err := svc.IngestPage(context.Background(), "https://ex.com/p", scraper.PageOptions{})
	assert.Error(t, err)
}

func TestRenderContentSanitizesHTML(t *testing.T) {
	svc := NewKnowledgeService(repository.NewMemoryKnowledgeRepository(), nil)

	doc := &models.KnowledgeDocument{
		Title:   "Doc",
		Content: "# Heading\n\nSome **bold** text.\n\n<script>alert(1)</script>",
	}
	html, err := svc.RenderContent(doc)
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.NotContains(t, html, "<script>")
}

func TestSeedDemoContentIdempotent(t *testing.T) {
	svc := NewKnowledgeService(repository.NewMemoryKnowledgeRepository(), nil)

	first, err := svc.SeedDemoContent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(demoDocuments), first)

	second, err := svc.SeedDemoContent(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second)

	docs, err := svc.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, len(demoDocuments))

	// Seeded articles must clear the substance threshold used for matching.
	for _, doc := range docs {
		assert.Greater(t, len(doc.Content), 100)
	}
}
