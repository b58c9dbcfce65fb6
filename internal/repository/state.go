package repository

import (
	"context"
	"sync"
	"time"

	"righthome/internal/model"
)

// StateStore maps a conversation identity to its last known state.
// Put is last-write-wins on the whole state. Retention is the caller's
// concern: the core never deletes, backings only expire by configured TTL.
type StateStore interface {
	// Get returns the stored state, or the initial state for an unseen identity.
	Get(ctx context.Context, id string) (model.ConversationState, error)
	Put(ctx context.Context, id string, stage int, requirements model.RequirementMap) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	state     model.ConversationState
	updatedAt time.Time
}

// MemoryStateStore is a process-local StateStore safe for concurrent use
type MemoryStateStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStateStore creates an in-memory store. A zero ttl keeps entries
// for the life of the process.
func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get never fails. Unseen or expired identities are (re)created with the initial state.
func (s *MemoryStateStore) Get(_ context.Context, id string) (model.ConversationState, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if ok && !s.expired(entry) {
		return copyState(entry.state), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another goroutine may have created it meanwhile
	if entry, ok := s.entries[id]; ok && !s.expired(entry) {
		return copyState(entry.state), nil
	}
	state := model.NewConversationState()
	s.entries[id] = memoryEntry{state: state, updatedAt: s.now()}
	return copyState(state), nil
}

func (s *MemoryStateStore) Put(_ context.Context, id string, stage int, requirements model.RequirementMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memoryEntry{
		state:     model.ConversationState{Stage: stage, Requirements: requirements.Clone()},
		updatedAt: s.now(),
	}
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len returns the number of tracked conversations, expired ones included
func (s *MemoryStateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many were removed
func (s *MemoryStateStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStateStore) expired(entry memoryEntry) bool {
	return s.ttl > 0 && s.now().Sub(entry.updatedAt) > s.ttl
}

func copyState(state model.ConversationState) model.ConversationState {
	return model.ConversationState{Stage: state.Stage, Requirements: state.Requirements.Clone()}
}
