package repository

import (
	"context"
	"errors"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// Sentinel errors surfaced by repositories. Services translate these into
// caller-visible failures; dangling references on the read path are tolerated
// instead (nil author/agent), never raised.
var (
	ErrTicketNotFound  = errors.New("ticket not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrDocNotFound     = errors.New("knowledge document not found")
)

// TicketPatch lists the mutable ticket fields for a partial update. Nil
// fields are left untouched; SetAgent distinguishes "clear the assignment"
// from "not provided".
type TicketPatch struct {
	Status          *models.TicketStatus
	Priority        *models.TicketPriority
	AssignedAgentID *int64
	SetAgent        bool
	AISuggestions   *models.AISuggestionsField
	AIQuickResponse *models.AIQuickResponseField
	AISummary       *string
	UpdatedAt       time.Time
}

// UserRepository defines data operations for users
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ListAgents(ctx context.Context) ([]*models.User, error)
	UpdatePlan(ctx context.Context, id int64, plan models.UserPlan) error
	UpdateRole(ctx context.Context, id int64, role models.UserRole) error
}

// TicketRepository defines data operations for tickets
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	Patch(ctx context.Context, id int64, patch TicketPatch) error
	Touch(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]*models.Ticket, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*models.Ticket, error)
}

// MessageRepository defines data operations for ticket messages
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByTicket(ctx context.Context, ticketID int64) ([]*models.Message, error)
	CountSince(ctx context.Context, ticketID int64, since time.Time) (int, error)
	DeleteByTicket(ctx context.Context, ticketID int64) error
}

// KnowledgeRepository defines data operations for knowledge documents
type KnowledgeRepository interface {
	Create(ctx context.Context, doc *models.KnowledgeDocument) error
	GetByID(ctx context.Context, id int64) (*models.KnowledgeDocument, error)
	ListAll(ctx context.Context) ([]*models.KnowledgeDocument, error)
	Delete(ctx context.Context, id int64) error
}

// TicketViewRepository defines data operations for last-viewed tracking
type TicketViewRepository interface {
	Upsert(ctx context.Context, view *models.TicketView) error
	Get(ctx context.Context, ticketID, userID int64) (*models.TicketView, error)
	DeleteByTicket(ctx context.Context, ticketID int64) error
}
