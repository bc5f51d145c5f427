package payment

import (
	"context"
	"sync"

	"github.com/tkaria/payguard/internal/risk"
)

// MemoryStore is an in-memory risk state store for demo/development mode.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*risk.RiskState // by user ID
}

// NewMemoryStore creates a new in-memory risk state store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*risk.RiskState),
	}
}

func (m *MemoryStore) Create(ctx context.Context, state *risk.RiskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[state.UserID]; ok {
		return ErrUserExists
	}
	cp := *state
	m.states[state.UserID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID string) (*risk.RiskState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *state
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, state *risk.RiskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.states[state.UserID]; !ok {
		return ErrUserNotFound
	}
	cp := *state
	m.states[state.UserID] = &cp
	return nil
}
