package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/config"
	"github.com/deskflow-io/deskflow-ce/internal/models"
	"github.com/deskflow-io/deskflow-ce/internal/notifications"
	"github.com/deskflow-io/deskflow-ce/internal/query"
	"github.com/deskflow-io/deskflow-ce/internal/repository"
	"github.com/deskflow-io/deskflow-ce/internal/runner"
)

// Analyzer is the slice of the AI engine the lifecycle manager schedules
// after a ticket is created. Implementations persist their own results and
// swallow provider failures.
type Analyzer interface {
	AnalyzeTicket(ctx context.Context, ticketID int64, title, description string) (*models.AISuggestions, *models.AIQuickResponse)
	GenerateConversationSummary(ctx context.Context, ticketID int64) string
}

// TicketService owns ticket and message state transitions and orchestrates
// the decoupled side effects (email notification, AI analysis) that follow
// each transition.
type TicketService struct {
	ticketRepo  repository.TicketRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	viewRepo    repository.TicketViewRepository
	email       notifications.EmailProvider
	scheduler   runner.Scheduler
	analyzer    Analyzer
	cfg         config.TicketConfig
	logger      *log.Logger
}

// NewTicketService creates a new ticket service. The analyzer is attached
// afterwards via SetAnalyzer because the AI service persists its results
// through this service.
func NewTicketService(
	ticketRepo repository.TicketRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	viewRepo repository.TicketViewRepository,
	email notifications.EmailProvider,
	scheduler runner.Scheduler,
	cfg config.TicketConfig,
) *TicketService {
	return &TicketService{
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		viewRepo:    viewRepo,
		email:       email,
		scheduler:   scheduler,
		cfg:         cfg,
		logger:      log.New(os.Stdout, "[TICKET] ", log.LstdFlags),
	}
}

// SetAnalyzer attaches the AI engine used for post-creation analysis.
func (s *TicketService) SetAnalyzer(a Analyzer) {
	s.analyzer = a
}

// CreateTicket inserts a new open ticket, auto-assigns an agent when one
// exists, and schedules the creation email plus AI analysis. It returns as
// soon as the insert commits; side-effect failures never reach the caller.
func (s *TicketService) CreateTicket(ctx context.Context, req *models.CreateTicketRequest) (int64, error) {
	customer, err := s.userRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve customer: %w", err)
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return 0, ErrInvalidPriority
	}

	now := time.Now().UTC()
	ticket := &models.Ticket{
		Title:           req.Title,
		Description:     req.Description,
		Status:          models.StatusOpen,
		Priority:        priority,
		Category:        req.Category,
		CustomerID:      req.CustomerID,
		IsVoiceTicket:   req.IsVoiceTicket,
		VoiceTranscript: req.VoiceTranscript,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if s.cfg.AutoAssign {
		agents, err := s.userRepo.ListAgents(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to list agents: %w", err)
		}
		if len(agents) > 0 {
			// First agent by listing order. Round-robin or workload-based
			// assignment is a known followup, not current behavior.
			ticket.AssignedAgentID = &agents[0].ID
		}
	}

	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return 0, err
	}

	if customer.Email != "" {
		msg := notifications.TicketCreatedEmail(customer.Email, notifications.TicketCreatedParams{
			CustomerName:      customer.Name,
			TicketID:          ticket.ID,
			TicketTitle:       req.Title,
			TicketDescription: req.Description,
		})
		s.sendEmail("ticket-created", msg)
	}

	if s.analyzer != nil {
		ticketID, title, description := ticket.ID, req.Title, req.Description
		s.scheduler.RunAfter(s.cfg.AnalysisDelay, "ticket-analysis", func(ctx context.Context) {
			s.analyzer.AnalyzeTicket(ctx, ticketID, title, description)
		})
		s.scheduler.RunAfter(s.cfg.SummaryDelay, "ticket-summary", func(ctx context.Context) {
			s.analyzer.GenerateConversationSummary(ctx, ticketID)
		})
	}

	return ticket.ID, nil
}

// GetTicket returns a ticket by id.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	return s.ticketRepo.GetByID(ctx, id)
}

// UpdateTicketStatus patches the status and, when assignedAgentID is non-nil,
// the assignment. A nil assignedAgentID leaves the existing assignment
// untouched. Any status other than open triggers a best-effort status email.
func (s *TicketService) UpdateTicketStatus(ctx context.Context, ticketID int64, status models.TicketStatus, assignedAgentID *int64) error {
	if !models.ValidStatus(status) {
		return ErrInvalidStatus
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}

	patch := repository.TicketPatch{
		Status:    &status,
		UpdatedAt: time.Now().UTC(),
	}
	if assignedAgentID != nil {
		patch.SetAgent = true
		patch.AssignedAgentID = assignedAgentID
	}
	if err := s.ticketRepo.Patch(ctx, ticketID, patch); err != nil {
		return err
	}

	if status != models.StatusOpen {
		agentName := ""
		if assignedAgentID != nil {
			if agent, err := s.userRepo.GetByID(ctx, *assignedAgentID); err == nil {
				agentName = agent.Name
			}
		}
		s.notifyStatus(ctx, ticket, string(status), agentName)
	}
	return nil
}

// AddMessage appends a message to a ticket and advances the ticket's
// updated_at. Two single-row writes in sequence; a crash in between leaves a
// stale timestamp with a correctly inserted message.
func (s *TicketService) AddMessage(ctx context.Context, ticketID, authorID int64, content string, messageType models.MessageType, isInternal bool) (int64, error) {
	if messageType == "" {
		messageType = models.MessageHuman
	}

	if _, err := s.ticketRepo.GetByID(ctx, ticketID); err != nil {
		return 0, err
	}

	msg := &models.Message{
		TicketID:    ticketID,
		AuthorID:    authorID,
		Content:     content,
		MessageType: messageType,
		IsInternal:  isInternal,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return 0, err
	}
	if err := s.ticketRepo.Touch(ctx, ticketID, time.Now().UTC()); err != nil {
		s.logger.Printf("Failed to touch ticket %d after message append: %v", ticketID, err)
	}
	return msg.ID, nil
}

// SendAIReply appends an AI-drafted reply as a real conversation message.
// This is the only path where AI-drafted content enters the authoritative
// conversation, and it requires an explicit agent action.
func (s *TicketService) SendAIReply(ctx context.Context, ticketID, agentID int64, reply string) (int64, error) {
	agent, err := s.userRepo.GetByID(ctx, agentID)
	if err != nil || !agent.IsAgent() {
		return 0, ErrPermissionDenied
	}

	ticket, err := s.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return 0, err
	}

	msg := &models.Message{
		TicketID:    ticketID,
		AuthorID:    agentID,
		Content:     reply,
		MessageType: models.MessageAI,
		IsInternal:  false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return 0, err
	}
	if err := s.ticketRepo.Touch(ctx, ticketID, time.Now().UTC()); err != nil {
		s.logger.Printf("Failed to touch ticket %d after AI reply: %v", ticketID, err)
	}

	s.notifyStatus(ctx, ticket, string(ticket.Status), "AI Assistant")
	return msg.ID, nil
}

// MarkTicketAsViewed upserts the last-viewed marker for unread counting.
// Idempotent, last-write-wins.
func (s *TicketService) MarkTicketAsViewed(ctx context.Context, ticketID, userID int64) error {
	return s.viewRepo.Upsert(ctx, &models.TicketView{
		TicketID:     ticketID,
		UserID:       userID,
		LastViewedAt: time.Now().UTC(),
	})
}

// GetMessagesForTicket returns a ticket's messages oldest first with authors
// attached. A missing author reads as nil, never an error.
func (s *TicketService) GetMessagesForTicket(ctx context.Context, ticketID int64) ([]*models.EnrichedMessage, error) {
	messages, err := s.messageRepo.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	enriched := make([]*models.EnrichedMessage, 0, len(messages))
	for _, m := range messages {
		em := &models.EnrichedMessage{Message: *m}
		if author, err := s.userRepo.GetByID(ctx, m.AuthorID); err == nil {
			em.Author = author
		}
		enriched = append(enriched, em)
	}
	return enriched, nil
}

// UnreadMessageCount counts messages appended after the user's last view.
func (s *TicketService) UnreadMessageCount(ctx context.Context, ticketID, userID int64) (int, error) {
	view, err := s.viewRepo.Get(ctx, ticketID, userID)
	if err != nil {
		return 0, err
	}
	since := time.Time{}
	if view != nil {
		since = view.LastViewedAt
	}
	return s.messageRepo.CountSince(ctx, ticketID, since)
}

// ListTickets returns all tickets newest first, enriched for the agent
// dashboard. viewerID of zero skips unread counting. A non-nil filter is
// evaluated against each ticket's record before enrichment; nil means no
// filtering.
func (s *TicketService) ListTickets(ctx context.Context, viewerID int64, filter *query.Predicate) ([]*models.EnrichedTicket, error) {
	tickets, err := s.ticketRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		kept := make([]*models.Ticket, 0, len(tickets))
		for _, t := range tickets {
			if filter.Eval(ticketRecord(t)) {
				kept = append(kept, t)
			}
		}
		tickets = kept
	}
	return s.enrichTickets(ctx, tickets, viewerID, true)
}

// ticketRecord projects a ticket's filterable fields for predicate
// evaluation. Nullable fields are omitted when unset, so predicates over
// them match only tickets that carry a value.
func ticketRecord(t *models.Ticket) query.Record {
	rec := query.Record{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description,
		"status":      string(t.Status),
		"priority":    string(t.Priority),
		"customer_id": t.CustomerID,
		"created_at":  t.CreatedAt,
	}
	if t.Category != nil {
		rec["category"] = *t.Category
	}
	if t.AssignedAgentID != nil {
		rec["assigned_agent_id"] = *t.AssignedAgentID
	}
	return rec
}

// ListCustomerTickets returns one customer's tickets newest first.
func (s *TicketService) ListCustomerTickets(ctx context.Context, customerID, viewerID int64) ([]*models.EnrichedTicket, error) {
	tickets, err := s.ticketRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.enrichTickets(ctx, tickets, viewerID, false)
}

func (s *TicketService) enrichTickets(ctx context.Context, tickets []*models.Ticket, viewerID int64, withUsers bool) ([]*models.EnrichedTicket, error) {
	enriched := make([]*models.EnrichedTicket, 0, len(tickets))
	for _, t := range tickets {
		et := &models.EnrichedTicket{Ticket: *t}

		if withUsers {
			// Dangling references read as unknown/unassigned.
			if customer, err := s.userRepo.GetByID(ctx, t.CustomerID); err == nil {
				et.Customer = customer
			}
			if t.AssignedAgentID != nil {
				if agent, err := s.userRepo.GetByID(ctx, *t.AssignedAgentID); err == nil {
					et.AssignedAgent = agent
				}
			}
		}

		messages, err := s.messageRepo.ListByTicket(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		et.MessageCount = len(messages)
		et.HasConversation = len(messages) > 0

		if viewerID != 0 {
			count, err := s.UnreadMessageCount(ctx, t.ID, viewerID)
			if err != nil {
				return nil, err
			}
			et.UnreadCount = count
		}
		enriched = append(enriched, et)
	}
	return enriched, nil
}

// AttachAIResults persists the triage suggestions and customer quick response
// in one atomic patch so readers never observe a half-updated ticket.
// Re-running analysis overwrites both fields wholesale.
func (s *TicketService) AttachAIResults(ctx context.Context, ticketID int64, suggestions *models.AISuggestions, quick *models.AIQuickResponse) error {
	patch := repository.TicketPatch{UpdatedAt: time.Now().UTC()}
	if suggestions != nil {
		f := models.AISuggestionsField(*suggestions)
		patch.AISuggestions = &f
	}
	if quick != nil {
		f := models.AIQuickResponseField(*quick)
		patch.AIQuickResponse = &f
	}
	return s.ticketRepo.Patch(ctx, ticketID, patch)
}

// UpdateTicketPriority force-sets a ticket's priority. Used by the AI engine
// for under-served ticket escalation.
func (s *TicketService) UpdateTicketPriority(ctx context.Context, ticketID int64, priority models.TicketPriority) error {
	if !models.ValidPriority(priority) {
		return ErrInvalidPriority
	}
	return s.ticketRepo.Patch(ctx, ticketID, repository.TicketPatch{
		Priority:  &priority,
		UpdatedAt: time.Now().UTC(),
	})
}

// UpdateAISummary persists the conversation summary onto the ticket.
func (s *TicketService) UpdateAISummary(ctx context.Context, ticketID int64, summary string) error {
	return s.ticketRepo.Patch(ctx, ticketID, repository.TicketPatch{
		AISummary: &summary,
		UpdatedAt: time.Now().UTC(),
	})
}

// notifyStatus schedules a best-effort status email to the ticket's customer.
func (s *TicketService) notifyStatus(ctx context.Context, ticket *models.Ticket, status, agentName string) {
	customer, err := s.userRepo.GetByID(ctx, ticket.CustomerID)
	if err != nil || customer.Email == "" {
		return
	}
	msg := notifications.TicketStatusEmail(customer.Email, notifications.TicketStatusParams{
		CustomerName: customer.Name,
		TicketID:     ticket.ID,
		TicketTitle:  ticket.Title,
		Status:       status,
		AgentName:    agentName,
	})
	s.sendEmail("ticket-status", msg)
}

// sendEmail dispatches an email on the scheduler. Delivery failures are
// logged and dropped; they must never abort the caller's transition.
func (s *TicketService) sendEmail(kind string, msg notifications.EmailMessage) {
	s.scheduler.RunAfter(0, kind+"-email", func(ctx context.Context) {
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Printf("Failed to send %s email: %v", kind, err)
		}
	})
}
