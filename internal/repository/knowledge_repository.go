package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// SQLKnowledgeRepository handles database operations for knowledge documents.
type SQLKnowledgeRepository struct {
	db *sqlx.DB
}

// NewSQLKnowledgeRepository creates a new knowledge repository.
func NewSQLKnowledgeRepository(db *sqlx.DB) *SQLKnowledgeRepository {
	return &SQLKnowledgeRepository{db: db}
}

// Create inserts a document and fills in its generated id.
func (r *SQLKnowledgeRepository) Create(ctx context.Context, doc *models.KnowledgeDocument) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO knowledge_documents (title, content, url, tags, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.Title, doc.Content, doc.URL, doc.Tags, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create knowledge document: %w", err)
	}
	doc.ID, err = res.LastInsertId()
	return err
}

// GetByID retrieves a document by id.
func (r *SQLKnowledgeRepository) GetByID(ctx context.Context, id int64) (*models.KnowledgeDocument, error) {
	var doc models.KnowledgeDocument
	err := r.db.GetContext(ctx, &doc, `SELECT * FROM knowledge_documents WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge document %d: %w", id, err)
	}
	return &doc, nil
}

// ListAll returns every document, newest first.
func (r *SQLKnowledgeRepository) ListAll(ctx context.Context) ([]*models.KnowledgeDocument, error) {
	var docs []*models.KnowledgeDocument
	err := r.db.SelectContext(ctx, &docs,
		`SELECT * FROM knowledge_documents ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge documents: %w", err)
	}
	return docs, nil
}

// Delete removes a document.
func (r *SQLKnowledgeRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM knowledge_documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge document %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocNotFound
	}
	return nil
}
