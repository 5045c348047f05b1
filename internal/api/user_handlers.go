package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

type createUserRequest struct {
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Role  models.UserRole `json:"role"`
	Plan  models.UserPlan `json:"plan"`
}

func (h *Handlers) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}
	if req.Plan == "" {
		req.Plan = models.PlanFree
	}

	now := time.Now().UTC()
	user := &models.User{
		Email:     req.Email,
		Name:      req.Name,
		Role:      req.Role,
		Plan:      req.Plan,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handlers) handleGetUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handlers) handleListAgents(c *gin.Context) {
	agents, err := h.users.ListAgents(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": agents})
}

type updatePlanRequest struct {
	Plan models.UserPlan `json:"plan"`
}

func (h *Handlers) handleUpdatePlan(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req updatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Plan != models.PlanFree && req.Plan != models.PlanPro {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan"})
		return
	}

	if err := h.users.UpdatePlan(c.Request.Context(), id, req.Plan); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type updateRoleRequest struct {
	Role models.UserRole `json:"role"`
}

func (h *Handlers) handleUpdateRole(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != models.RoleCustomer && req.Role != models.RoleAgent {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	if err := h.users.UpdateRole(c.Request.Context(), id, req.Role); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
