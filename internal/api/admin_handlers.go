package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleIntegrityCheck lists dangling references without mutating anything.
func (h *Handlers) handleIntegrityCheck(c *gin.Context) {
	issues, err := h.integrity.CheckIntegrity(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// handleIntegrityRepair runs the cleanup pass and reports what changed.
func (h *Handlers) handleIntegrityRepair(c *gin.Context) {
	report, err := h.integrity.CleanupInvalidTicketReferences(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
