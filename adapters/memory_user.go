package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/InfinityZero3000/LexiLingo-sub001/domain/entities"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
// Suitable as a simple storage backend while account management lives
// elsewhere.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[string]*entities.User // id -> user mapping
	emails  map[string]*entities.User // email -> user mapping
	apiKeys map[string]string         // email -> api key mapping
}

// NewMemoryUserRepository creates a new in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[string]*entities.User),
		emails:  make(map[string]*entities.User),
		apiKeys: make(map[string]string),
	}
}

// ValidateCredentials checks an email + api key pair for token issuance.
func (m *MemoryUserRepository) ValidateCredentials(email, apiKey string) (*entities.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	storedKey, exists := m.apiKeys[email]
	if !exists {
		return nil, errors.New("user not found")
	}
	if storedKey != apiKey {
		return nil, errors.New("invalid credentials")
	}

	user, exists := m.emails[email]
	if !exists {
		return nil, errors.New("user not found")
	}

	userCopy := *user
	return &userCopy, nil
}

// Create implements UserRepository.
func (m *MemoryUserRepository) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}

	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.emails[user.Email]; exists {
		return errors.New("user with this email already exists")
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	// Store a copy to prevent external modifications
	userCopy := *user
	m.users[user.ID] = &userCopy
	m.emails[user.Email] = &userCopy

	return nil
}

// GetByID implements UserRepository.
func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	if id == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, errors.New("user not found")
	}

	userCopy := *user
	return &userCopy, nil
}

// GetByEmail implements UserRepository.
func (m *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.emails[email]
	if !exists {
		return nil, errors.New("user not found")
	}

	userCopy := *user
	return &userCopy, nil
}

// RegisterAPIKey registers an api key for a user's email. Used to set up
// credentials for token issuance.
func (m *MemoryUserRepository) RegisterAPIKey(email, apiKey string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	if apiKey == "" {
		return errors.New("api key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.apiKeys[email] = apiKey
	return nil
}

// RemoveAPIKey removes the api key for a user's email.
func (m *MemoryUserRepository) RemoveAPIKey(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.apiKeys, email)
	return nil
}
