package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/deskflow-io/deskflow-ce/internal/ai"
	"github.com/deskflow-io/deskflow-ce/internal/config"
	"github.com/deskflow-io/deskflow-ce/internal/models"
	"github.com/deskflow-io/deskflow-ce/internal/repository"
)

const relevanceSystemPrompt = `You rank knowledge-base documents by relevance to a support ticket.
Given a numbered document list and a ticket, return ONLY a JSON array of document numbers,
most relevant first. Include a document only if it genuinely helps answer the ticket.
Return [] when nothing is relevant. Never force a match.`

// RelevanceService decides which knowledge-base documents genuinely apply to
// a ticket. Primary strategy is an LLM relevance judgment over the full
// listing; keyword search is the always-succeeding fallback.
type RelevanceService struct {
	knowledgeRepo repository.KnowledgeRepository
	llm           ai.LLMClient
	cfg           config.AIConfig
	logger        *log.Logger
}

// NewRelevanceService creates a new relevance service.
func NewRelevanceService(knowledgeRepo repository.KnowledgeRepository, llm ai.LLMClient, cfg config.AIConfig) *RelevanceService {
	return &RelevanceService{
		knowledgeRepo: knowledgeRepo,
		llm:           llm,
		cfg:           cfg,
		logger:        log.New(os.Stdout, "[RELEVANCE] ", log.LstdFlags),
	}
}

// FindRelevantDocuments returns at most maxResults documents ordered most
// relevant first. An empty knowledge base short-circuits without an LLM call.
// The judgment may legitimately return nothing; a judgment failure falls back
// to keyword search and never propagates.
func (s *RelevanceService) FindRelevantDocuments(ctx context.Context, title, description string, maxResults int) ([]*models.KnowledgeDocument, error) {
	docs, err := s.knowledgeRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	if maxResults <= 0 {
		maxResults = s.cfg.MaxRelevantDocs
	}

	ranked, err := s.judgeRelevance(ctx, title, description, docs)
	if err != nil {
		s.logger.Printf("Relevance judgment failed, falling back to keyword search: %v", err)
		ranked = s.keywordSearch(title+" "+description, docs)
	}

	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked, nil
}

// judgeRelevance asks the LLM to pick document numbers from the listing.
func (s *RelevanceService) judgeRelevance(ctx context.Context, title, description string, docs []*models.KnowledgeDocument) ([]*models.KnowledgeDocument, error) {
	if s.llm == nil {
		return nil, errors.New("no llm client configured")
	}

	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, doc.Title, doc.Snippet(300))
	}
	userPrompt := fmt.Sprintf("Ticket Title: %s\nTicket Description: %s\n\nDocuments:\n%s\nRespond ONLY with a JSON array of document numbers.",
		title, description, b.String())

	raw, err := s.llm.Complete(ctx, relevanceSystemPrompt, userPrompt, 0.0)
	if err != nil {
		return nil, err
	}

	var indices []int
	if err := json.Unmarshal([]byte(extractJSONArray(raw)), &indices); err != nil {
		return nil, fmt.Errorf("malformed relevance response: %w", err)
	}

	var ranked []*models.KnowledgeDocument
	seen := make(map[int]bool)
	for _, n := range indices {
		idx := n - 1
		if idx < 0 || idx >= len(docs) || seen[idx] {
			continue
		}
		seen[idx] = true
		ranked = append(ranked, docs[idx])
	}
	return ranked, nil
}

// keywordSearch is the deterministic fallback: case-insensitive substring
// match over title, content and tags, using a truncated search term since the
// backend search caps input length. Listing order is preserved.
func (s *RelevanceService) keywordSearch(searchTerm string, docs []*models.KnowledgeDocument) []*models.KnowledgeDocument {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if limit := s.cfg.SearchTermLimit; limit > 0 && len(term) > limit {
		// Byte cap, backed off to a rune boundary so the term stays valid UTF-8.
		cut := limit
		for cut > 0 && !utf8.RuneStart(term[cut]) {
			cut--
		}
		term = term[:cut]
	}
	if term == "" {
		return nil
	}

	var matched []*models.KnowledgeDocument
	for _, doc := range docs {
		if docMatches(doc, term) {
			matched = append(matched, doc)
		}
	}
	return matched
}

// SearchDocuments exposes the keyword fallback directly for the knowledge
// search surface.
func (s *RelevanceService) SearchDocuments(ctx context.Context, searchTerm string) ([]*models.KnowledgeDocument, error) {
	docs, err := s.knowledgeRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.keywordSearch(searchTerm, docs), nil
}

func docMatches(doc *models.KnowledgeDocument, lowerTerm string) bool {
	if strings.Contains(strings.ToLower(doc.Title), lowerTerm) {
		return true
	}
	if strings.Contains(strings.ToLower(doc.Content), lowerTerm) {
		return true
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), lowerTerm) {
			return true
		}
	}
	return false
}

// extractJSONArray trims everything around the first top-level JSON array,
// tolerating models that wrap their answer in prose or code fences.
func extractJSONArray(raw string) string {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
