// Package repotest provides an in-memory account store with the same
// contract as repository.AccountRepo, for service and handler tests.
package repotest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/storefront-auth/internal/model"
	"github.com/iliyamo/storefront-auth/internal/repository"
)

// MemoryStore keeps accounts in a map guarded by a single mutex, so every
// Create and Update is atomic the way a row lock makes it in MySQL.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]model.Account
	Now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: map[string]model.Account{}, Now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, username, email, passwordHash string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.TrimSpace(username)
	email = repository.NormalizeEmail(email)
	for _, a := range s.accounts {
		// utf8mb4_unicode_ci makes the unique indexes case-insensitive.
		if a.Email == email || strings.EqualFold(a.Username, username) {
			return model.Account{}, repository.ErrDuplicateAccount
		}
	}
	ts := s.Now().UTC()
	a := model.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	s.accounts[a.ID] = a
	return clone(a), nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = repository.NormalizeEmail(email)
	for _, a := range s.accounts {
		if a.Email == email {
			return clone(a), nil
		}
	}
	return model.Account{}, repository.ErrNotFound
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	return clone(a), nil
}

func (s *MemoryStore) Save(_ context.Context, a model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; !ok {
		return repository.ErrNotFound
	}
	a.UpdatedAt = s.Now().UTC()
	s.accounts[a.ID] = clone(a)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*model.Account) error) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.accounts[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	a := clone(cur)
	if err := fn(&a); err != nil {
		return model.Account{}, err
	}
	a.UpdatedAt = s.Now().UTC()
	s.accounts[id] = clone(a)
	return clone(a), nil
}

// Len returns the number of stored accounts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func clone(a model.Account) model.Account {
	if a.VerifyOTP != nil {
		otp := *a.VerifyOTP
		a.VerifyOTP = &otp
	}
	if a.ResetOTP != nil {
		otp := *a.ResetOTP
		a.ResetOTP = &otp
	}
	return a
}
