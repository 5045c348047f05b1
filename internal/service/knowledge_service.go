package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/deskflow-io/deskflow-ce/internal/models"
	"github.com/deskflow-io/deskflow-ce/internal/repository"
	"github.com/deskflow-io/deskflow-ce/internal/scraper"
)

// IngestReport summarizes a scrape ingestion run.
type IngestReport struct {
	DocumentsStored int     `json:"documents_stored"`
	DocumentIDs     []int64 `json:"document_ids,omitempty"`
}

// KnowledgeService manages the knowledge base: manual entry, scrape
// ingestion, search and rendering.
type KnowledgeService struct {
	knowledgeRepo repository.KnowledgeRepository
	scraper       scraper.Scraper
	markdown      goldmark.Markdown
	sanitizer     *bluemonday.Policy
	logger        *log.Logger
}

// NewKnowledgeService creates a new knowledge service. The scraper may be nil
// when no scraping provider is configured; ingestion then fails cleanly.
func NewKnowledgeService(knowledgeRepo repository.KnowledgeRepository, sc scraper.Scraper) *KnowledgeService {
	return &KnowledgeService{
		knowledgeRepo: knowledgeRepo,
		scraper:       sc,
		markdown:      goldmark.New(),
		sanitizer:     bluemonday.UGCPolicy(),
		logger:        log.New(os.Stdout, "[KNOWLEDGE] ", log.LstdFlags),
	}
}

// StoreDocument inserts a document and returns its id.
func (s *KnowledgeService) StoreDocument(ctx context.Context, title, content string, url *string, tags []string) (int64, error) {
	doc := &models.KnowledgeDocument{
		Title:   title,
		Content: content,
		URL:     url,
		Tags:    tags,
	}
	if err := s.knowledgeRepo.Create(ctx, doc); err != nil {
		return 0, err
	}
	return doc.ID, nil
}

// GetDocument fetches a single document by id.
func (s *KnowledgeService) GetDocument(ctx context.Context, id int64) (*models.KnowledgeDocument, error) {
	return s.knowledgeRepo.GetByID(ctx, id)
}

// DeleteDocument removes a document.
func (s *KnowledgeService) DeleteDocument(ctx context.Context, id int64) error {
	return s.knowledgeRepo.Delete(ctx, id)
}

// ListDocuments returns all documents, newest first.
func (s *KnowledgeService) ListDocuments(ctx context.Context) ([]*models.KnowledgeDocument, error) {
	return s.knowledgeRepo.ListAll(ctx)
}

// DocumentsByTags returns documents whose tags contain any of the given tags,
// case-insensitively.
func (s *KnowledgeService) DocumentsByTags(ctx context.Context, tags []string) ([]*models.KnowledgeDocument, error) {
	docs, err := s.knowledgeRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*models.KnowledgeDocument
	for _, doc := range docs {
		if anyTagMatches(doc, tags) {
			matched = append(matched, doc)
		}
	}
	return matched, nil
}

// IngestCrawl crawls a site through the scraping collaborator and stores the
// usable documents.
func (s *KnowledgeService) IngestCrawl(ctx context.Context, url string, opts scraper.CrawlOptions) (*IngestReport, error) {
	if s.scraper == nil {
		return nil, fmt.Errorf("no scraping provider configured")
	}

	docs, err := s.scraper.Crawl(ctx, url, opts)
	if err != nil {
		return nil, fmt.Errorf("crawl failed: %w", err)
	}

	report := &IngestReport{}
	for _, scraped := range docs {
		id, err := s.storeScraped(ctx, scraped)
		if err != nil {
			s.logger.Printf("Failed to store scraped document %q: %v", scraped.Title, err)
			continue
		}
		report.DocumentsStored++
		report.DocumentIDs = append(report.DocumentIDs, id)
	}
	s.logger.Printf("Stored %d documents from crawl of %s", report.DocumentsStored, url)
	return report, nil
}

// IngestPage scrapes a single page and stores it.
func (s *KnowledgeService) IngestPage(ctx context.Context, url string, opts scraper.PageOptions) (int64, error) {
	if s.scraper == nil {
		return 0, fmt.Errorf("no scraping provider configured")
	}

	scraped, err := s.scraper.ScrapePage(ctx, url, opts)
	if err != nil {
		return 0, fmt.Errorf("scrape failed: %w", err)
	}
	return s.storeScraped(ctx, *scraped)
}

func (s *KnowledgeService) storeScraped(ctx context.Context, scraped models.ScrapedDocument) (int64, error) {
	source := scraped.SourceURL
	return s.StoreDocument(ctx, scraped.Title, scraped.Markdown, &source, scraped.Tags)
}

// RenderContent converts a document's markdown to sanitized HTML for the
// read path. Scraped content is untrusted input.
func (s *KnowledgeService) RenderContent(doc *models.KnowledgeDocument) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(doc.Content), &buf); err != nil {
		return "", fmt.Errorf("markdown render failed: %w", err)
	}
	return s.sanitizer.Sanitize(buf.String()), nil
}

func anyTagMatches(doc *models.KnowledgeDocument, tags []string) bool {
	for _, want := range tags {
		for _, have := range doc.Tags {
			if containsFold(have, want) {
				return true
			}
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
