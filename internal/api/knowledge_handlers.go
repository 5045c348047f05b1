package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deskflow-io/deskflow-ce/internal/repository"
	"github.com/deskflow-io/deskflow-ce/internal/scraper"
)

type storeDocumentRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	URL     *string  `json:"url"`
	Tags    []string `json:"tags"`
}

func (h *Handlers) handleStoreDocument(c *gin.Context) {
	var req storeDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Title == "" || req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and content are required"})
		return
	}

	id, err := h.knowledge.StoreDocument(c.Request.Context(), req.Title, req.Content, req.URL, req.Tags)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document_id": id})
}

func (h *Handlers) handleListDocuments(c *gin.Context) {
	if tags := c.QueryArray("tag"); len(tags) > 0 {
		docs, err := h.knowledge.DocumentsByTags(c.Request.Context(), tags)
		if err != nil {
			h.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs})
		return
	}

	docs, err := h.knowledge.ListDocuments(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *Handlers) handleDeleteDocument(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	if err := h.knowledge.DeleteDocument(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrDocNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleSearchDocuments runs the keyword fallback search directly, without
// LLM judgment.
func (h *Handlers) handleSearchDocuments(c *gin.Context) {
	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter is required"})
		return
	}

	docs, err := h.relevance.SearchDocuments(c.Request.Context(), term)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

type crawlRequest struct {
	URL             string   `json:"url"`
	IncludePaths    []string `json:"include_paths"`
	ExcludePaths    []string `json:"exclude_paths"`
	Limit           int      `json:"limit"`
	OnlyMainContent bool     `json:"only_main_content"`
}

func (h *Handlers) handleCrawl(c *gin.Context) {
	var req crawlRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	report, err := h.knowledge.IngestCrawl(c.Request.Context(), req.URL, scraper.CrawlOptions{
		IncludePaths:    req.IncludePaths,
		ExcludePaths:    req.ExcludePaths,
		Limit:           req.Limit,
		OnlyMainContent: req.OnlyMainContent,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type scrapePageRequest struct {
	URL             string `json:"url"`
	OnlyMainContent bool   `json:"only_main_content"`
}

func (h *Handlers) handleScrapePage(c *gin.Context) {
	var req scrapePageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	id, err := h.knowledge.IngestPage(c.Request.Context(), req.URL, scraper.PageOptions{
		OnlyMainContent: req.OnlyMainContent,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document_id": id})
}

// handleRenderDocument returns the document body rendered to sanitized HTML.
func (h *Handlers) handleRenderDocument(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	doc, err := h.knowledge.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDocNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.renderError(c, err)
		return
	}

	html, err := h.knowledge.RenderContent(doc)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": doc.ID, "title": doc.Title, "html": html})
}

func (h *Handlers) handleSeedDemoContent(c *gin.Context) {
	inserted, err := h.knowledge.SeedDemoContent(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inserted": inserted})
}
