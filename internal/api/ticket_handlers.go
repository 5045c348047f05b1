package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deskflow-io/deskflow-ce/internal/models"
	"github.com/deskflow-io/deskflow-ce/internal/query"
	"github.com/deskflow-io/deskflow-ce/internal/service"
)

// handleCreateTicket creates a ticket and returns its id immediately; AI and
// email side effects run detached.
func (h *Handlers) handleCreateTicket(c *gin.Context) {
	var req models.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" || req.Description == "" || req.CustomerID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title, description and customer_id are required"})
		return
	}

	id, err := h.tickets.CreateTicket(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket_id": id})
}

func (h *Handlers) handleListTickets(c *gin.Context) {
	viewerID, _ := strconv.ParseInt(c.Query("viewer_id"), 10, 64)

	filter, err := ticketListFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tickets, err := h.tickets.ListTickets(c.Request.Context(), viewerID, filter)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

// ticketListFilter builds the dashboard filter predicate from the listing
// query parameters. All given parameters must match; absent parameters mean
// no filtering.
func ticketListFilter(c *gin.Context) (*query.Predicate, error) {
	var clauses []query.Predicate

	if status := c.Query("status"); status != "" {
		if !models.ValidStatus(models.TicketStatus(status)) {
			return nil, errors.New("invalid status filter")
		}
		clauses = append(clauses, query.Field("status", query.OpEq, status))
	}
	if priority := c.Query("priority"); priority != "" {
		if !models.ValidPriority(models.TicketPriority(priority)) {
			return nil, errors.New("invalid priority filter")
		}
		clauses = append(clauses, query.Field("priority", query.OpEq, priority))
	}
	if category := c.Query("category"); category != "" {
		clauses = append(clauses, query.Field("category", query.OpEq, category))
	}
	if term := c.Query("q"); term != "" {
		clauses = append(clauses, query.AnyOf(
			query.Field("title", query.OpContains, term),
			query.Field("description", query.OpContains, term),
		))
	}

	if len(clauses) == 0 {
		return nil, nil
	}
	filter := query.AllOf(clauses...)
	return &filter, nil
}

func (h *Handlers) handleListCustomerTickets(c *gin.Context) {
	customerID, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return
	}
	viewerID, _ := strconv.ParseInt(c.Query("viewer_id"), 10, 64)

	tickets, err := h.tickets.ListCustomerTickets(c.Request.Context(), customerID, viewerID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *Handlers) handleGetTicket(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}
	ticket, err := h.tickets.GetTicket(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type updateStatusRequest struct {
	Status models.TicketStatus `json:"status"`
	// Pointer distinguishes "not provided" (assignment untouched) from an
	// explicit value.
	AssignedAgentID *int64 `json:"assigned_agent_id"`
}

func (h *Handlers) handleUpdateTicketStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tickets.UpdateTicketStatus(c.Request.Context(), id, req.Status, req.AssignedAgentID); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addMessageRequest struct {
	AuthorID    int64              `json:"author_id"`
	Content     string             `json:"content"`
	MessageType models.MessageType `json:"message_type"`
	IsInternal  bool               `json:"is_internal"`
}

func (h *Handlers) handleAddMessage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}
	var req addMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.AuthorID == 0 || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "author_id and content are required"})
		return
	}

	msgID, err := h.tickets.AddMessage(c.Request.Context(), id, req.AuthorID, req.Content, req.MessageType, req.IsInternal)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message_id": msgID})
}

func (h *Handlers) handleGetMessages(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}
	messages, err := h.tickets.GetMessagesForTicket(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

type aiReplyRequest struct {
	AgentID int64  `json:"agent_id"`
	Reply   string `json:"reply"`
}

func (h *Handlers) handleSendAIReply(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}
	var req aiReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msgID, err := h.tickets.SendAIReply(c.Request.Context(), id, req.AgentID, req.Reply)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message_id": msgID})
}

type markViewedRequest struct {
	UserID int64 `json:"user_id"`
}

func (h *Handlers) handleMarkViewed(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}
	var req markViewedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	if err := h.tickets.MarkTicketAsViewed(c.Request.Context(), id, req.UserID); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) handleUnreadCount(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket id"})
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id query parameter is required"})
		return
	}

	count, err := h.tickets.UnreadMessageCount(c.Request.Context(), id, userID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func pathID(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// renderError maps service errors onto HTTP statuses.
func (h *Handlers) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTicketNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidPriority):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Printf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
