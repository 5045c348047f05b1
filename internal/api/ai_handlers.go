package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type analyzeRequest struct {
	TicketID    int64  `json:"ticket_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleAnalyzeTicket re-runs triage for a ticket. The normal path is the
// detached run after creation; this endpoint exists for manual retries.
func (h *Handlers) handleAnalyzeTicket(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TicketID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_id is required"})
		return
	}

	if req.Title == "" {
		ticket, err := h.tickets.GetTicket(c.Request.Context(), req.TicketID)
		if err != nil {
			h.renderError(c, err)
			return
		}
		req.Title = ticket.Title
		req.Description = ticket.Description
	}

	suggestions, quick := h.ai.AnalyzeTicket(c.Request.Context(), req.TicketID, req.Title, req.Description)
	c.JSON(http.StatusOK, gin.H{
		"suggestions":    suggestions,
		"quick_response": quick,
	})
}

type suggestReplyRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (h *Handlers) handleSuggestReply(c *gin.Context) {
	var req suggestReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	reply := h.ai.GenerateSuggestedReply(c.Request.Context(), req.Title, req.Description, req.Category)
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

type summaryRequest struct {
	TicketID int64 `json:"ticket_id"`
}

func (h *Handlers) handleGenerateSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TicketID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_id is required"})
		return
	}

	summary := h.ai.GenerateConversationSummary(c.Request.Context(), req.TicketID)
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

type findRelevantRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	MaxResults  int    `json:"max_results"`
}

func (h *Handlers) handleFindRelevant(c *gin.Context) {
	var req findRelevantRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	docs, err := h.relevance.FindRelevantDocuments(c.Request.Context(), req.Title, req.Description, req.MaxResults)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}
