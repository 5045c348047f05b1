package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/deskflow-io/deskflow-ce/internal/models"
)

// MemoryUserRepository implements UserRepository with in-memory storage.
// This is for development/testing. Production uses the SQL implementation.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[int64]*models.User
	nextID int64
}

// NewMemoryUserRepository creates a new in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[int64]*models.User),
		nextID: 1,
	}
}

// Create saves a new user to memory.
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Plan == "" {
		user.Plan = models.PlanFree
	}

	copied := *user
	r.users[user.ID] = &copied
	return nil
}

// GetByID retrieves a user by id.
func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// GetByEmail retrieves a user by email.
func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

// ListAgents returns agents ordered by id, matching the SQL listing order.
func (r *MemoryUserRepository) ListAgents(_ context.Context) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var agents []*models.User
	for _, user := range r.users {
		if user.Role == models.RoleAgent {
			copied := *user
			agents = append(agents, &copied)
		}
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })
	return agents, nil
}

// UpdatePlan changes a user's subscription plan.
func (r *MemoryUserRepository) UpdatePlan(_ context.Context, id int64, plan models.UserPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Plan = plan
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateRole changes a user's role.
func (r *MemoryUserRepository) UpdateRole(_ context.Context, id int64, role models.UserRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a user. Test helper for dangling-reference scenarios; the
// application never hard-deletes users.
func (r *MemoryUserRepository) Delete(_ context.Context, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}
