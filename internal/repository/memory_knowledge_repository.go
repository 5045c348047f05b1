package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// MemoryKnowledgeRepository implements KnowledgeRepository with in-memory
// storage.
type MemoryKnowledgeRepository struct {
	mu     sync.RWMutex
	docs   map[int64]*models.KnowledgeDocument
	nextID int64
}

// NewMemoryKnowledgeRepository creates a new in-memory knowledge repository.
func NewMemoryKnowledgeRepository() *MemoryKnowledgeRepository {
	return &MemoryKnowledgeRepository{
		docs:   make(map[int64]*models.KnowledgeDocument),
		nextID: 1,
	}
}

// Create inserts a document.
func (r *MemoryKnowledgeRepository) Create(_ context.Context, doc *models.KnowledgeDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

// GetByID retrieves a document by id.
func (r *MemoryKnowledgeRepository) GetByID(_ context.Context, id int64) (*models.KnowledgeDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, ErrDocNotFound
	}
	copied := *doc
	return &copied, nil
}

// ListAll returns every document, newest first.
func (r *MemoryKnowledgeRepository) ListAll(_ context.Context) ([]*models.KnowledgeDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]*models.KnowledgeDocument, 0, len(r.docs))
	for _, d := range r.docs {
		copied := *d
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID > docs[j].ID
		}
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

// Delete removes a document.
func (r *MemoryKnowledgeRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return ErrDocNotFound
	}
	delete(r.docs, id)
	return nil
}
