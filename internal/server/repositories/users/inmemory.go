package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolkovs/cookiegate/internal/common"
	"github.com/avolkovs/cookiegate/internal/server/models"
)

// InMemoryRepository is a map-backed credential store used in tests and for
// local development seeding. All methods hand out copies so callers cannot
// mutate stored records.
type InMemoryRepository struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{users: make(map[string]*models.User)}
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Salt = append([]byte(nil), u.Salt...)
	return &c
}

func (r *InMemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.Username]; ok {
		return nil, common.ErrAlreadyExists
	}

	stored := cloneUser(user)
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	r.users[stored.Username] = stored

	return cloneUser(stored), nil
}

func (r *InMemoryRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.users[username]
	if !ok {
		return nil, common.ErrNotFound
	}

	return cloneUser(stored), nil
}

func (r *InMemoryRepository) UpdatePassword(ctx context.Context, username string, salt []byte, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[username]
	if !ok {
		return common.ErrNotFound
	}

	// both fields swap under the same lock
	stored.Salt = append([]byte(nil), salt...)
	stored.PasswordHash = passwordHash

	return nil
}
