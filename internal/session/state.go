// Package session keeps per-operator state (the pending dangerous command and
// the dictation mode) and the append-only command audit.
package session

import (
	"context"
	"sync"

	"github.com/dmorn/hex/internal/command"
)

// State is the per-operator state store. Pending holds at most one
// descriptor per operator; SetPending overwrites. Nothing expires.
type State interface {
	SetPending(ctx context.Context, operator int64, d command.Descriptor) error
	// TakePending returns and clears the pending descriptor, or nil.
	TakePending(ctx context.Context, operator int64) (*command.Descriptor, error)
	// Pending returns the pending descriptor without clearing it, or nil.
	Pending(ctx context.Context, operator int64) (*command.Descriptor, error)
	SetMode(ctx context.Context, operator int64, mode string) error
	// Mode returns the operator's mode, or "" when unset.
	Mode(ctx context.Context, operator int64) (string, error)
}

// Memory is an in-process State.
type Memory struct {
	mu      sync.Mutex
	pending map[int64]command.Descriptor
	modes   map[int64]string
}

var _ State = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		pending: make(map[int64]command.Descriptor),
		modes:   make(map[int64]string),
	}
}

func (m *Memory) SetPending(_ context.Context, operator int64, d command.Descriptor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[operator] = d
	return nil
}

func (m *Memory) TakePending(_ context.Context, operator int64) (*command.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.pending[operator]
	if !ok {
		return nil, nil
	}
	delete(m.pending, operator)
	return &d, nil
}

func (m *Memory) Pending(_ context.Context, operator int64) (*command.Descriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.pending[operator]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *Memory) SetMode(_ context.Context, operator int64, mode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modes[operator] = mode
	return nil
}

func (m *Memory) Mode(_ context.Context, operator int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.modes[operator], nil
}
