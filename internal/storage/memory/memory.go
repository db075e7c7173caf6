// Package memory stores colors and transition history in process memory.
// Used when no database is configured and in tests.
package memory

import (
	"sync"

	"github.com/rustwatch/teamtracker/internal/model"
	"github.com/rustwatch/teamtracker/internal/storage"
)

type colorKey struct {
	teamID   string
	memberID string
}

// Backend is the in-memory storage backend.
type Backend struct {
	mu          sync.RWMutex
	colors      map[colorKey]string
	transitions map[string][]model.Transition // keyed by teamID, oldest first
}

// New creates a new memory backend.
func New() *Backend {
	return &Backend{
		colors:      make(map[colorKey]string),
		transitions: make(map[string][]model.Transition),
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// MemberColor returns the stored color for a member.
func (b *Backend) MemberColor(teamID, memberID string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	color, ok := b.colors[colorKey{teamID, memberID}]
	if !ok {
		return "", storage.ErrNotFound
	}
	return color, nil
}

// SaveMemberColor stores a color unless one already exists.
func (b *Backend) SaveMemberColor(teamID, memberID, color string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := colorKey{teamID, memberID}
	if _, ok := b.colors[key]; ok {
		return nil
	}
	b.colors[key] = color
	return nil
}

// RecordTransition appends a transition to the team's history.
func (b *Backend) RecordTransition(t *model.Transition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions[t.TeamID] = append(b.transitions[t.TeamID], *t)
	return nil
}

// RecentTransitions returns up to limit transitions, newest first.
func (b *Backend) RecentTransitions(teamID string, limit int) ([]model.Transition, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	history := b.transitions[teamID]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}
	out := make([]model.Transition, 0, limit)
	for i := len(history) - 1; i >= len(history)-limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}
