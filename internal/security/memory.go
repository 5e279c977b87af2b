package security

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryTrust - хранилище доверия в памяти процесса.
type MemoryTrust struct {
	mu        sync.RWMutex
	trusted   map[uuid.UUID]map[uuid.UUID]struct{}
	overrides map[uuid.UUID]Mode
}

// NewMemoryTrust создаёт пустое хранилище.
func NewMemoryTrust() *MemoryTrust {
	return &MemoryTrust{
		trusted:   make(map[uuid.UUID]map[uuid.UUID]struct{}),
		overrides: make(map[uuid.UUID]Mode),
	}
}

func (m *MemoryTrust) IsTrusted(_ context.Context, owner, actor uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.trusted[owner][actor]
	return ok, nil
}

func (m *MemoryTrust) Trust(_ context.Context, owner, actor uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.trusted[owner]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		m.trusted[owner] = set
	}
	set[actor] = struct{}{}
	return nil
}

func (m *MemoryTrust) Untrust(_ context.Context, owner, actor uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trusted[owner], actor)
	return nil
}

// Trusted возвращает доверенных игроков владельца в стабильном порядке.
func (m *MemoryTrust) Trusted(_ context.Context, owner uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uuid.UUID, 0, len(m.trusted[owner]))
	for id := range m.trusted[owner] {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (m *MemoryTrust) Override(_ context.Context, owner uuid.UUID) (Mode, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mode, ok := m.overrides[owner]
	return mode, ok, nil
}

func (m *MemoryTrust) SetOverride(_ context.Context, owner uuid.UUID, mode Mode, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if enabled {
		m.overrides[owner] = mode
	} else {
		delete(m.overrides, owner)
	}
	return nil
}

var (
	_ TrustStore    = (*MemoryTrust)(nil)
	_ OverrideStore = (*MemoryTrust)(nil)
)
