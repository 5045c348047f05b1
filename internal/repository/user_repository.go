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

// SQLUserRepository handles database operations for users.
type SQLUserRepository struct {
	db *sqlx.DB
}

// NewSQLUserRepository creates a new user repository.
func NewSQLUserRepository(db *sqlx.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

// Create inserts a user and fills in its generated id.
func (r *SQLUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Plan == "" {
		user.Plan = models.PlanFree
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, role, plan, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email, user.Name, user.Role, user.Plan, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID, err = res.LastInsertId()
	return err
}

// GetByID retrieves a user by id.
func (r *SQLUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// ListAgents returns all users with the agent role, in listing order.
func (r *SQLUserRepository) ListAgents(ctx context.Context) ([]*models.User, error) {
	var agents []*models.User
	err := r.db.SelectContext(ctx, &agents,
		`SELECT * FROM users WHERE role = ? ORDER BY id`, models.RoleAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return agents, nil
}

// UpdatePlan changes a user's subscription plan.
func (r *SQLUserRepository) UpdatePlan(ctx context.Context, id int64, plan models.UserPlan) error {
	return r.updateField(ctx, id, "plan", string(plan))
}

// UpdateRole changes a user's role. Admin-only operation; role is immutable
// through self-service paths.
func (r *SQLUserRepository) UpdateRole(ctx context.Context, id int64, role models.UserRole) error {
	return r.updateField(ctx, id, "role", string(role))
}

func (r *SQLUserRepository) updateField(ctx context.Context, id int64, column, value string) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ?, updated_at = ? WHERE id = ?`, column),
		value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
