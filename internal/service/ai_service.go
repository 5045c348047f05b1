package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/deskflow-io/deskflow-ce/internal/ai"
	"github.com/deskflow-io/deskflow-ce/internal/config"
	"github.com/deskflow-io/deskflow-ce/internal/models"
)

const (
	triageSystemPrompt = `You are an AI assistant for a customer support team. Classify tickets and draft helpful replies.
Return JSON with keys: category, priority, suggestedReply.
- category: one of [billing, authentication, technical, feature_request, urgent, general]
- priority: one of [low, medium, high, urgent]
Base decisions on the ticket and optional docs.`

	quickResponseSystemPrompt = `You write a short self-service answer for the customer who opened a ticket.
Use ONLY the provided documentation; never invent steps or links.
Answer as a numbered list of concrete steps.`

	replySystemPrompt = `You write empathetic, concise support replies. Include steps and links only if present in docs.`

	summarySystemPrompt = `Summarize the ticket conversation in 3-5 bullet points with current status and next steps.`

	// Fallback copy shown when AI could not produce usable output. Must stay
	// visibly distinguishable so agents recognize the review-required state.
	manualReviewNotice = "This ticket could not be matched against the knowledge base and needs manual review. It has been escalated so an agent responds promptly."
	manualReviewReply  = "Please review this ticket manually and draft a reply."
)

// Matcher selects relevant knowledge documents for a ticket.
type Matcher interface {
	FindRelevantDocuments(ctx context.Context, title, description string, maxResults int) ([]*models.KnowledgeDocument, error)
}

// AIService produces triage suggestions, customer quick responses and
// conversation summaries. Every provider failure degrades to a deterministic
// fallback: these operations run detached from any user-facing request, so an
// unhandled failure would be silently lost.
type AIService struct {
	tickets *TicketService
	matcher Matcher
	llm     ai.LLMClient
	cfg     config.AIConfig
	logger  *log.Logger
}

// NewAIService creates a new AI service.
func NewAIService(tickets *TicketService, matcher Matcher, llm ai.LLMClient, cfg config.AIConfig) *AIService {
	return &AIService{
		tickets: tickets,
		matcher: matcher,
		llm:     llm,
		cfg:     cfg,
		logger:  log.New(os.Stdout, "[AI] ", log.LstdFlags),
	}
}

// complete guards against running without a configured provider; callers
// treat the error like any other provider failure.
func (s *AIService) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	if s.llm == nil {
		return "", errors.New("no llm client configured")
	}
	return s.llm.Complete(ctx, systemPrompt, userPrompt, temperature)
}

type triageResult struct {
	Category       string `json:"category"`
	Priority       string `json:"priority"`
	SuggestedReply string `json:"suggestedReply"`
}

// AnalyzeTicket runs the full analysis for a freshly created ticket and
// persists both AI payloads in one atomic write. The ticket is "matched" only
// when at least one relevant document carries enough substance; otherwise the
// ticket escalates to high priority for manual handling.
func (s *AIService) AnalyzeTicket(ctx context.Context, ticketID int64, title, description string) (*models.AISuggestions, *models.AIQuickResponse) {
	docs, err := s.matcher.FindRelevantDocuments(ctx, title, description, s.cfg.MaxQuickResponseDocs)
	if err != nil {
		s.logger.Printf("Document matching failed for ticket %d: %v", ticketID, err)
		docs = nil
	}

	if !s.hasSubstantiveMatch(docs) {
		return s.escalate(ctx, ticketID)
	}

	// The two generation calls are independent; run them concurrently and
	// combine before the single persistence write.
	var (
		wg            sync.WaitGroup
		customerText  string
		customerErr   error
		triageRaw     string
		triageCallErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		customerText, customerErr = s.complete(ctx, quickResponseSystemPrompt, s.quickResponsePrompt(title, description, docs), 0.4)
	}()
	go func() {
		defer wg.Done()
		triageRaw, triageCallErr = s.complete(ctx, triageSystemPrompt, s.triagePrompt(title, description, docs), 0.2)
	}()
	wg.Wait()

	if customerErr != nil && triageCallErr != nil {
		// Total provider outage: the ticket must still end up actionable.
		s.logger.Printf("All generation calls failed for ticket %d: %v / %v", ticketID, customerErr, triageCallErr)
		return s.escalate(ctx, ticketID)
	}

	triage := parseTriage(triageRaw, triageCallErr)
	if customerErr != nil {
		s.logger.Printf("Quick-response generation failed for ticket %d: %v", ticketID, customerErr)
		customerText = fallbackQuickResponse(docs)
	}

	suggestions := &models.AISuggestions{
		Category:       triage.Category,
		Priority:       triage.Priority,
		SuggestedReply: triage.SuggestedReply,
		RelevantDocs:   docTitles(docs),
	}
	quick := &models.AIQuickResponse{
		HasKnowledgeBaseMatch: true,
		Response:              customerText,
		RelevantDocs:          s.quickResponseDocs(docs),
	}

	if err := s.tickets.AttachAIResults(ctx, ticketID, suggestions, quick); err != nil {
		s.logger.Printf("Failed to persist AI results for ticket %d: %v", ticketID, err)
	}
	return suggestions, quick
}

// escalate is the NoMatch branch: the one case where AI output mutates ticket
// state directly, modeling auto-escalation of under-served tickets.
func (s *AIService) escalate(ctx context.Context, ticketID int64) (*models.AISuggestions, *models.AIQuickResponse) {
	suggestions := &models.AISuggestions{
		Category:       models.CategoryGeneral,
		Priority:       string(models.PriorityHigh),
		SuggestedReply: manualReviewNotice,
		RelevantDocs:   []string{},
	}
	quick := &models.AIQuickResponse{
		HasKnowledgeBaseMatch:   false,
		EscalatedToHighPriority: true,
	}

	if err := s.tickets.UpdateTicketPriority(ctx, ticketID, models.PriorityHigh); err != nil {
		s.logger.Printf("Failed to escalate ticket %d: %v", ticketID, err)
	}
	if err := s.tickets.AttachAIResults(ctx, ticketID, suggestions, quick); err != nil {
		s.logger.Printf("Failed to persist escalation for ticket %d: %v", ticketID, err)
	}
	return suggestions, quick
}

// GenerateSuggestedReply drafts an agent reply on demand, using at most the
// configured reply-doc cap for context. On total failure it returns a clear
// manual-review string rather than an error.
func (s *AIService) GenerateSuggestedReply(ctx context.Context, title, description, category string) string {
	if category == "" {
		category = models.CategoryGeneral
	}

	docs, err := s.matcher.FindRelevantDocuments(ctx, title, description, s.cfg.MaxReplyDocs)
	if err != nil {
		s.logger.Printf("Document matching failed for suggested reply: %v", err)
		docs = nil
	}

	userPrompt := fmt.Sprintf("Category: %s\nTitle: %s\nDescription: %s\n\nRelevant Docs:\n%s",
		category, title, description, docsContext(docs, 600))

	reply, err := s.complete(ctx, replySystemPrompt, userPrompt, 0.4)
	if err != nil || strings.TrimSpace(reply) == "" {
		s.logger.Printf("Suggested reply generation failed: %v", err)
		return manualReviewReply
	}
	return reply
}

// GenerateConversationSummary summarizes a ticket's conversation and persists
// it. Best-effort: every failure path returns an empty summary so the
// scheduling pipeline is never blocked.
func (s *AIService) GenerateConversationSummary(ctx context.Context, ticketID int64) string {
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		s.logger.Printf("Summary skipped, ticket %d not found: %v", ticketID, err)
		return ""
	}
	messages, err := s.tickets.GetMessagesForTicket(ctx, ticketID)
	if err != nil {
		s.logger.Printf("Summary skipped, messages for ticket %d unavailable: %v", ticketID, err)
		return ""
	}

	lines := []string{
		"Title: " + ticket.Title,
		"Description: " + ticket.Description,
	}
	for _, m := range messages {
		lines = append(lines, "- "+m.Content)
	}

	summary, err := s.complete(ctx, summarySystemPrompt, strings.Join(lines, "\n"), 0.2)
	if err != nil {
		s.logger.Printf("Summary generation failed for ticket %d: %v", ticketID, err)
		return ""
	}

	if err := s.tickets.UpdateAISummary(ctx, ticketID, summary); err != nil {
		s.logger.Printf("Failed to persist summary for ticket %d: %v", ticketID, err)
	}
	return summary
}

// hasSubstantiveMatch requires at least one matched document whose content
// clears the minimal-substance threshold, so stub documents never count as
// knowledge.
func (s *AIService) hasSubstantiveMatch(docs []*models.KnowledgeDocument) bool {
	for _, doc := range docs {
		if len(doc.Content) > s.cfg.MinDocContentLength {
			return true
		}
	}
	return false
}

func (s *AIService) triagePrompt(title, description string, docs []*models.KnowledgeDocument) string {
	return fmt.Sprintf("Ticket Title: %s\nTicket Description: %s\n\nRelevant Docs:\n%s\n\nRespond ONLY with JSON.",
		title, description, docsContext(docs, 800))
}

func (s *AIService) quickResponsePrompt(title, description string, docs []*models.KnowledgeDocument) string {
	return fmt.Sprintf("Ticket Title: %s\nTicket Description: %s\n\nDocumentation:\n%s",
		title, description, docsContext(docs, 800))
}

func (s *AIService) quickResponseDocs(docs []*models.KnowledgeDocument) []models.QuickResponseDoc {
	max := s.cfg.MaxQuickResponseDocs
	if len(docs) < max {
		max = len(docs)
	}
	out := make([]models.QuickResponseDoc, 0, max)
	for _, doc := range docs[:max] {
		url := ""
		if doc.URL != nil {
			url = *doc.URL
		}
		out = append(out, models.QuickResponseDoc{
			Title:   doc.Title,
			URL:     url,
			Snippet: doc.Snippet(s.cfg.SnippetLength),
		})
	}
	return out
}

// parseTriage defensively parses the triage JSON, clamping unknown values and
// degrading to a safe default when the output is malformed.
func parseTriage(raw string, callErr error) triageResult {
	fallback := triageResult{
		Category:       models.CategoryGeneral,
		Priority:       string(models.PriorityMedium),
		SuggestedReply: manualReviewReply,
	}
	if callErr != nil {
		return fallback
	}

	var parsed triageResult
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return fallback
	}

	if !validCategory(parsed.Category) {
		parsed.Category = models.CategoryGeneral
	}
	if !models.ValidPriority(models.TicketPriority(parsed.Priority)) {
		parsed.Priority = string(models.PriorityMedium)
	}
	if strings.TrimSpace(parsed.SuggestedReply) == "" {
		parsed.SuggestedReply = manualReviewReply
	}
	return parsed
}

func validCategory(category string) bool {
	switch category {
	case models.CategoryBilling, models.CategoryAuthentication, models.CategoryTechnical,
		models.CategoryFeatureRequest, models.CategoryUrgent, models.CategoryGeneral:
		return true
	}
	return false
}

// fallbackQuickResponse builds a deterministic grounded answer from the
// matched documents when the generation call fails but knowledge exists.
func fallbackQuickResponse(docs []*models.KnowledgeDocument) string {
	var b strings.Builder
	b.WriteString("We found documentation that may answer your question:\n")
	for i, doc := range docs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, doc.Title)
	}
	b.WriteString("An agent will follow up with you shortly.")
	return b.String()
}

func docTitles(docs []*models.KnowledgeDocument) []string {
	titles := make([]string, 0, len(docs))
	for _, doc := range docs {
		title := doc.Title
		if title == "" && doc.URL != nil {
			title = *doc.URL
		}
		titles = append(titles, title)
	}
	return titles
}

func docsContext(docs []*models.KnowledgeDocument, contentCap int) string {
	if len(docs) == 0 {
		return "(none)"
	}
	var parts []string
	for i, doc := range docs {
		content := doc.Content
		if len(content) > contentCap {
			content = content[:contentCap]
		}
		parts = append(parts, fmt.Sprintf("Doc %d: %s\n%s", i+1, doc.Title, content))
	}
	return strings.Join(parts, "\n\n")
}

// extractJSONObject trims everything around the first top-level JSON object,
// tolerating models that wrap their answer in prose or code fences.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
