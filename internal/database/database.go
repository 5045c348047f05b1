package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/deskflow-io/deskflow-ce/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the configured database and applies the connection pool
// settings. The caller owns the returned handle.
func Connect(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates the schema if it does not exist. The DDL is written for
// sqlite; the one keyword mysql spells differently is rewritten per driver.
func Migrate(db *sqlx.DB) error {
	for _, stmt := range schema {
		if db.DriverName() == "mysql" {
			stmt = strings.ReplaceAll(stmt, "AUTOINCREMENT", "AUTO_INCREMENT")
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'customer',
		plan TEXT NOT NULL DEFAULT 'free',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		priority TEXT NOT NULL DEFAULT 'medium',
		category TEXT,
		customer_id INTEGER NOT NULL,
		assigned_agent_id INTEGER,
		is_voice_ticket BOOLEAN NOT NULL DEFAULT 0,
		voice_transcript TEXT,
		ai_suggestions TEXT,
		ai_quick_response TEXT,
		ai_summary TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_customer ON tickets(customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_created ON tickets(created_at)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticket_id INTEGER NOT NULL,
		author_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		message_type TEXT NOT NULL DEFAULT 'human',
		is_internal BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_ticket ON messages(ticket_id)`,
	`CREATE TABLE IF NOT EXISTS knowledge_documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		url TEXT,
		tags TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ticket_views (
		ticket_id INTEGER NOT NULL,
		user_id INTEGER NOT NULL,
		last_viewed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (ticket_id, user_id)
	)`,
}
