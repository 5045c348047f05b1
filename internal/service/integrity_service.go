package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/repository"
)

// IntegrityReport summarizes a repair pass.
type IntegrityReport struct {
	UpdatedTickets int `json:"updated_tickets"`
	DeletedTickets int `json:"deleted_tickets"`
}

// IntegrityIssue describes one dangling reference found by CheckIntegrity.
type IntegrityIssue struct {
	TicketID int64  `json:"ticket_id"`
	Issue    string `json:"issue"`
	Value    int64  `json:"value"`
}

// IntegrityService reconciles dangling user references on tickets. User
// deletion is never cascaded at write time; this idempotent pass is the
// recovery mechanism, run manually or on a schedule.
type IntegrityService struct {
	ticketRepo  repository.TicketRepository
	messageRepo repository.MessageRepository
	viewRepo    repository.TicketViewRepository
	userRepo    repository.UserRepository
	logger      *log.Logger
}

// NewIntegrityService creates a new integrity service.
func NewIntegrityService(
	ticketRepo repository.TicketRepository,
	messageRepo repository.MessageRepository,
	viewRepo repository.TicketViewRepository,
	userRepo repository.UserRepository,
) *IntegrityService {
	return &IntegrityService{
		ticketRepo:  ticketRepo,
		messageRepo: messageRepo,
		viewRepo:    viewRepo,
		userRepo:    userRepo,
		logger:      log.New(os.Stdout, "[INTEGRITY] ", log.LstdFlags),
	}
}

// CleanupInvalidTicketReferences scans all tickets, deleting those whose
// customer no longer resolves (orphans, unrecoverable) and clearing dangling
// agent assignments. Ticket deletion cascades to messages and view rows.
func (s *IntegrityService) CleanupInvalidTicketReferences(ctx context.Context) (*IntegrityReport, error) {
	tickets, err := s.ticketRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &IntegrityReport{}
	for _, ticket := range tickets {
		exists, err := s.userExists(ctx, ticket.CustomerID)
		if err != nil {
			return report, err
		}
		if !exists {
			s.logger.Printf("Ticket %d has invalid customer %d, deleting", ticket.ID, ticket.CustomerID)
			if err := s.deleteTicketCascade(ctx, ticket.ID); err != nil {
				return report, err
			}
			report.DeletedTickets++
			continue
		}

		if ticket.AssignedAgentID == nil {
			continue
		}
		exists, err = s.userExists(ctx, *ticket.AssignedAgentID)
		if err != nil {
			return report, err
		}
		if !exists {
			s.logger.Printf("Ticket %d has invalid agent %d, clearing assignment", ticket.ID, *ticket.AssignedAgentID)
			err := s.ticketRepo.Patch(ctx, ticket.ID, repository.TicketPatch{
				SetAgent:  true,
				UpdatedAt: time.Now().UTC(),
			})
			if err != nil {
				return report, err
			}
			report.UpdatedTickets++
		}
	}

	s.logger.Printf("Repair complete: updated %d tickets, deleted %d orphaned tickets",
		report.UpdatedTickets, report.DeletedTickets)
	return report, nil
}

// CheckIntegrity reports dangling references without mutating anything.
func (s *IntegrityService) CheckIntegrity(ctx context.Context) ([]IntegrityIssue, error) {
	tickets, err := s.ticketRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var issues []IntegrityIssue
	for _, ticket := range tickets {
		exists, err := s.userExists(ctx, ticket.CustomerID)
		if err != nil {
			return nil, err
		}
		if !exists {
			issues = append(issues, IntegrityIssue{
				TicketID: ticket.ID,
				Issue:    "invalid customer reference",
				Value:    ticket.CustomerID,
			})
		}
		if ticket.AssignedAgentID != nil {
			exists, err := s.userExists(ctx, *ticket.AssignedAgentID)
			if err != nil {
				return nil, err
			}
			if !exists {
				issues = append(issues, IntegrityIssue{
					TicketID: ticket.ID,
					Issue:    "invalid agent reference",
					Value:    *ticket.AssignedAgentID,
				})
			}
		}
	}
	return issues, nil
}

// deleteTicketCascade removes a ticket with its messages and view rows.
func (s *IntegrityService) deleteTicketCascade(ctx context.Context, ticketID int64) error {
	if err := s.messageRepo.DeleteByTicket(ctx, ticketID); err != nil {
		return fmt.Errorf("failed to cascade messages for ticket %d: %w", ticketID, err)
	}
	if err := s.viewRepo.DeleteByTicket(ctx, ticketID); err != nil {
		return fmt.Errorf("failed to cascade views for ticket %d: %w", ticketID, err)
	}
	return s.ticketRepo.Delete(ctx, ticketID)
}

func (s *IntegrityService) userExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
