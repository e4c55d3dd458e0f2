package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"conectasat/internal/auth/models"
)

// InMemory implements all three auth stores with maps. Used by tests and by
// development runs without a database.
type InMemory struct {
	mu      sync.RWMutex
	nextID  int64
	tokens  map[int64]*models.APIToken
	byValue map[string]int64
	admins  map[string]*models.SuperAdmin
	users   map[int64]*models.User
	byEmail map[string]int64
}

// NewInMemory constructs an empty in-memory auth store.
func NewInMemory() *InMemory {
	return &InMemory{
		nextID:  1,
		tokens:  make(map[int64]*models.APIToken),
		byValue: make(map[string]int64),
		admins:  make(map[string]*models.SuperAdmin),
		users:   make(map[int64]*models.User),
		byEmail: make(map[string]int64),
	}
}

func (s *InMemory) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *InMemory) Create(_ context.Context, token *models.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token.ID = s.id()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	copied := *token
	s.tokens[token.ID] = &copied
	s.byValue[token.Token] = token.ID
	return nil
}

func (s *InMemory) GetByID(_ context.Context, id int64) (*models.APIToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (s *InMemory) GetByValue(_ context.Context, value string) (*models.APIToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byValue[value]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s.tokens[id]
	return &copied, nil
}

func (s *InMemory) List(_ context.Context, skip, limit int) ([]*models.APIToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*models.APIToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		copied := *t
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if skip < 0 {
		skip = 0
	}
	if skip >= len(all) {
		return []*models.APIToken{}, nil
	}
	all = all[skip:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemory) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tokens)), nil
}

func (s *InMemory) Update(_ context.Context, token *models.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tokens[token.ID]
	if !ok {
		return ErrNotFound
	}
	delete(s.byValue, existing.Token)
	now := time.Now().UTC()
	token.UpdatedAt = &now
	copied := *token
	s.tokens[token.ID] = &copied
	s.byValue[token.Token] = token.ID
	return nil
}

func (s *InMemory) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byValue, existing.Token)
	delete(s.tokens, id)
	return nil
}

func (s *InMemory) CreateAdmin(_ context.Context, admin *models.SuperAdmin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(admin.Username)
	if _, exists := s.admins[key]; exists {
		return ErrAlreadyExists
	}
	admin.ID = s.id()
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC()
	}
	copied := *admin
	s.admins[key] = &copied
	return nil
}

func (s *InMemory) GetAdminByUsername(_ context.Context, username string) (*models.SuperAdmin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *admin
	return &copied, nil
}

func (s *InMemory) UpdateAdmin(_ context.Context, admin *models.SuperAdmin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(admin.Username)
	if _, ok := s.admins[key]; !ok {
		return ErrNotFound
	}
	now := time.Now().UTC()
	admin.UpdatedAt = &now
	copied := *admin
	s.admins[key] = &copied
	return nil
}

func (s *InMemory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s.users[id]
	return &copied, nil
}

func (s *InMemory) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.id()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	copied := *user
	s.users[user.ID] = &copied
	s.byEmail[strings.ToLower(user.Email)] = user.ID
	return nil
}
