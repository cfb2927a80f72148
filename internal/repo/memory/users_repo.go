package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rmendes/authsystem/internal/domain/user"
	"github.com/rmendes/authsystem/internal/repo"
)

type UsersRepo struct {
	mu      sync.RWMutex
	byID    map[string]user.User
	byEmail map[string]string // normalized email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byID:    make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

// Create inserts a new record. Uniqueness is enforced here, under the lock,
// not by the advisory existence check the OTP flow does earlier.
func (r *UsersRepo) Create(ctx context.Context, email, passwordHash string) (user.User, error) {
	norm := normalize(email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[norm]; exists {
		return user.User{}, repo.ErrEmailAlreadyUsed
	}

	u := user.User{
		ID:           uuid.NewString(),
		Email:        norm,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
		LastLogin:    nil,
		Active:       true,
	}

	r.byID[u.ID] = u
	r.byEmail[norm] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	norm := normalize(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[norm]

	if !ok {
		return user.User{}, repo.ErrUserNotFound
	}

	return r.byID[id], nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]

	if !ok {
		return user.User{}, repo.ErrUserNotFound
	}

	return u, nil
}

// List returns all records ordered by registration time.
func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	r.mu.RLock()

	out := make([]user.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}

	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]

	if !ok {
		return repo.ErrUserNotFound
	}

	delete(r.byID, id)
	delete(r.byEmail, u.Email)

	return nil
}

func (r *UsersRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]

	if !ok {
		return repo.ErrUserNotFound
	}

	u.LastLogin = &at
	r.byID[id] = u

	return nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
