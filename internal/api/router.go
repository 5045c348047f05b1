package api

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/deskflow-io/deskflow-ce/internal/repository"
	"github.com/deskflow-io/deskflow-ce/internal/service"
)

// Handlers bundles the services behind the HTTP surface.
type Handlers struct {
	tickets   *service.TicketService
	ai        *service.AIService
	relevance *service.RelevanceService
	knowledge *service.KnowledgeService
	integrity *service.IntegrityService
	users     repository.UserRepository
	logger    *log.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	tickets *service.TicketService,
	aiSvc *service.AIService,
	relevance *service.RelevanceService,
	knowledge *service.KnowledgeService,
	integrity *service.IntegrityService,
	users repository.UserRepository,
) *Handlers {
	return &Handlers{
		tickets:   tickets,
		ai:        aiSvc,
		relevance: relevance,
		knowledge: knowledge,
		integrity: integrity,
		users:     users,
		logger:    log.New(os.Stdout, "[API] ", log.LstdFlags),
	}
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(h.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		tickets := v1.Group("/tickets")
		{
			tickets.POST("", h.handleCreateTicket)
			tickets.GET("", h.handleListTickets)
			tickets.GET("/:id", h.handleGetTicket)
			tickets.PUT("/:id/status", h.handleUpdateTicketStatus)
			tickets.POST("/:id/messages", h.handleAddMessage)
			tickets.GET("/:id/messages", h.handleGetMessages)
			tickets.POST("/:id/ai-reply", h.handleSendAIReply)
			tickets.POST("/:id/view", h.handleMarkViewed)
			tickets.GET("/:id/unread", h.handleUnreadCount)
		}
		v1.GET("/customers/:id/tickets", h.handleListCustomerTickets)

		aiGroup := v1.Group("/ai")
		{
			aiGroup.POST("/analyze", h.handleAnalyzeTicket)
			aiGroup.POST("/suggest-reply", h.handleSuggestReply)
			aiGroup.POST("/summary", h.handleGenerateSummary)
			aiGroup.POST("/relevant-documents", h.handleFindRelevant)
		}

		knowledge := v1.Group("/knowledge")
		{
			knowledge.POST("", h.handleStoreDocument)
			knowledge.GET("", h.handleListDocuments)
			knowledge.GET("/search", h.handleSearchDocuments)
			knowledge.GET("/:id/render", h.handleRenderDocument)
			knowledge.DELETE("/:id", h.handleDeleteDocument)
			knowledge.POST("/crawl", h.handleCrawl)
			knowledge.POST("/scrape", h.handleScrapePage)
			knowledge.POST("/seed", h.handleSeedDemoContent)
		}

		users := v1.Group("/users")
		{
			users.POST("", h.handleCreateUser)
			users.GET("/:id", h.handleGetUser)
			users.PUT("/:id/plan", h.handleUpdatePlan)
			users.PUT("/:id/role", h.handleUpdateRole)
		}
		v1.GET("/agents", h.handleListAgents)

		admin := v1.Group("/admin")
		{
			admin.GET("/integrity", h.handleIntegrityCheck)
			admin.POST("/integrity/repair", h.handleIntegrityRepair)
		}
	}

	return router
}
