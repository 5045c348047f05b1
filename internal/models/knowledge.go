package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// KnowledgeDocument is one indexed knowledge-base entry, created by manual
// entry or scrape ingestion and deleted explicitly by an agent.
type KnowledgeDocument struct {
	ID        int64      `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Content   string     `json:"content" db:"content"`
	URL       *string    `json:"url,omitempty" db:"url"`
	Tags      TagList    `json:"tags,omitempty" db:"tags"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// TagList stores string tags as a JSON column.
type TagList []string

// Value implements driver.Valuer.
func (t TagList) Value() (driver.Value, error) {
	if t == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner.
func (t *TagList) Scan(src any) error {
	return scanJSON(src, t)
}

// Snippet returns the first n characters of the document content, with an
// ellipsis when truncated.
func (d *KnowledgeDocument) Snippet(n int) string {
	if len(d.Content) <= n {
		return d.Content
	}
	return d.Content[:n] + "..."
}

// ScrapedDocument is the record shape the scraping collaborator hands back.
// Records missing a title or markdown body are not ingested.
type ScrapedDocument struct {
	Title     string   `json:"title"`
	Markdown  string   `json:"markdown"`
	SourceURL string   `json:"source_url"`
	Tags      []string `json:"tags,omitempty"`
}
