package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow-io/deskflow-ce/internal/config"
	"github.com/deskflow-io/deskflow-ce/internal/models"
	"github.com/deskflow-io/deskflow-ce/internal/notifications"
	"github.com/deskflow-io/deskflow-ce/internal/repository"
	"github.com/deskflow-io/deskflow-ce/internal/service"
)

type nullEmail struct{}

func (nullEmail) Send(context.Context, notifications.EmailMessage) error { return nil }

type inlineScheduler struct{}

func (inlineScheduler) RunAfter(_ time.Duration, _ string, fn func(ctx context.Context)) {
	fn(context.Background())
}

func newTestRouter(t *testing.T) (*gin.Engine, *repository.MemoryUserRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := repository.NewMemoryUserRepository()
	tickets := repository.NewMemoryTicketRepository()
	messages := repository.NewMemoryMessageRepository()
	views := repository.NewMemoryTicketViewRepository()
	knowledge := repository.NewMemoryKnowledgeRepository()

	cfg := config.Default()
	ticketSvc := service.NewTicketService(tickets, messages, users, views, nullEmail{}, inlineScheduler{}, cfg.Ticket)
	relevanceSvc := service.NewRelevanceService(knowledge, nil, cfg.AI)
	aiSvc := service.NewAIService(ticketSvc, relevanceSvc, nil, cfg.AI)
	ticketSvc.SetAnalyzer(aiSvc)
	knowledgeSvc := service.NewKnowledgeService(knowledge, nil)
	integritySvc := service.NewIntegrityService(tickets, messages, views, users)

	handlers := NewHandlers(ticketSvc, aiSvc, relevanceSvc, knowledgeSvc, integritySvc, users)
	return NewRouter(handlers), users
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func createTestUser(t *testing.T, users *repository.MemoryUserRepository, name string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{Email: name + "@example.com", Name: name, Role: role}
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTicketEndpoint(t *testing.T) {
	router, users := newTestRouter(t)
	customer := createTestUser(t, users, "dana", models.RoleCustomer)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tickets", gin.H{
		"title":       "Cannot log in",
		"description": "Password rejected",
		"customer_id": customer.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		TicketID int64 `json:"ticket_id"`
	}
	decode(t, rec, &resp)
	assert.NotZero(t, resp.TicketID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateTicketEndpointValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tickets", gin.H{"title": "no description"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTicketEndpointNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/tickets/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tickets/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTicketsEndpointFilters(t *testing.T) {
	router, users := newTestRouter(t)
	customer := createTestUser(t, users, "dana", models.RoleCustomer)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tickets", gin.H{
		"title":       "Login broken",
		"description": "cannot sign in",
		"customer_id": customer.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		TicketID int64 `json:"ticket_id"`
	}
	decode(t, rec, &created)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/tickets", gin.H{
		"title":       "Invoice question",
		"description": "wrong amount",
		"customer_id": customer.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, router, http.MethodPost, "/api/v1/tickets", gin.H{
		"title":       "Second invoice question",
		"description": "still wrong",
		"customer_id": customer.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	base := "/api/v1/tickets/" + itoa(created.TicketID)
	rec = doJSON(t, router, http.MethodPut, base+"/status", gin.H{"status": "resolved"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	var listed struct {
		Tickets []struct {
			ID int64 `json:"id"`
		} `json:"tickets"`
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tickets?status=open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listed)
	assert.Len(t, listed.Tickets, 2)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tickets?status=resolved&q=login", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listed)
	require.Len(t, listed.Tickets, 1)
	assert.Equal(t, created.TicketID, listed.Tickets[0].ID)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tickets?q=nosuchword", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &listed)
	assert.Empty(t, listed.Tickets)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tickets?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/tickets?priority=asap", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	router, users := newTestRouter(t)
	customer := createTestUser(t, users, "dana", models.RoleCustomer)
	agent := createTestUser(t, users, "alex", models.RoleAgent)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tickets", gin.H{
		"title":       "Slow dashboard",
		"description": "Pages take 20 seconds",
		"customer_id": customer.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		TicketID int64 `json:"ticket_id"`
	}
	decode(t, rec, &created)

	base := "/api/v1/tickets/" + itoa(created.TicketID)

	rec = doJSON(t, router, http.MethodPut, base+"/status", gin.H{"status": "in_progress"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPut, base+"/status", gin.H{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/messages", gin.H{
		"author_id": customer.ID,
		"content":   "Any update?",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, base+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var msgs struct {
		Messages []json.RawMessage `json:"messages"`
	}
	decode(t, rec, &msgs)
	assert.Len(t, msgs.Messages, 1)

	// Customers cannot send AI replies.
	rec = doJSON(t, router, http.MethodPost, base+"/ai-reply", gin.H{
		"agent_id": customer.ID,
		"reply":    "canned answer",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, http.MethodPost, base+"/ai-reply", gin.H{
		"agent_id": agent.ID,
		"reply":    "canned answer",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodGet, base+"/unread?user_id="+itoa(agent.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var unread struct {
		UnreadCount int `json:"unread_count"`
	}
	decode(t, rec, &unread)
	assert.Equal(t, 2, unread.UnreadCount)

	rec = doJSON(t, router, http.MethodPost, base+"/view", gin.H{"user_id": agent.ID})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, base+"/unread?user_id="+itoa(agent.ID), nil)
	decode(t, rec, &unread)
	assert.Zero(t, unread.UnreadCount)
}

func TestKnowledgeEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/knowledge", gin.H{
		"title":   "Password Reset",
		"content": "# Reset\nUse the forgot-password link.",
		"tags":    []string{"authentication"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		DocumentID int64 `json:"document_id"`
	}
	decode(t, rec, &created)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/knowledge", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/knowledge/search?q=reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found struct {
		Documents []json.RawMessage `json:"documents"`
	}
	decode(t, rec, &found)
	assert.Len(t, found.Documents, 1)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/knowledge/"+itoa(created.DocumentID)+"/render", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rendered struct {
		HTML string `json:"html"`
	}
	decode(t, rec, &rendered)
	assert.Contains(t, rendered.HTML, "<h1>")

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/knowledge/"+itoa(created.DocumentID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/knowledge/"+itoa(created.DocumentID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIntegrityEndpoints(t *testing.T) {
	router, users := newTestRouter(t)
	customer := createTestUser(t, users, "dana", models.RoleCustomer)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/tickets", gin.H{
		"title":       "Orphan-to-be",
		"description": "d",
		"customer_id": customer.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	users.Delete(context.Background(), customer.ID)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/admin/integrity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var check struct {
		Issues []json.RawMessage `json:"issues"`
	}
	decode(t, rec, &check)
	assert.Len(t, check.Issues, 1)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/admin/integrity/repair", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		DeletedTickets int `json:"deleted_tickets"`
	}
	decode(t, rec, &report)
	assert.Equal(t, 1, report.DeletedTickets)
}

func TestUserEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/users", gin.H{
		"email": "new@example.com",
		"name":  "New User",
		"role":  "agent",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var user models.User
	decode(t, rec, &user)
	assert.Equal(t, models.RoleAgent, user.Role)
	assert.Equal(t, models.PlanFree, user.Plan)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/users/"+itoa(user.ID)+"/plan", gin.H{"plan": "pro"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodPut, "/api/v1/users/"+itoa(user.ID)+"/plan", gin.H{"plan": "platinum"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var agents struct {
		Agents []json.RawMessage `json:"agents"`
	}
	decode(t, rec, &agents)
	assert.Len(t, agents.Agents, 1)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
