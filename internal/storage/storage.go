// Package storage defines the persistence boundary for member cosmetic
// attributes and transition history.
package storage

import (
	"errors"

	"github.com/rustwatch/teamtracker/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Member cosmetic colors. SaveMemberColor is first-write-wins: saving
	// a color for a member that already has one is a no-op.
	MemberColor(teamID, memberID string) (string, error)
	SaveMemberColor(teamID, memberID, color string) error

	// Transition history
	RecordTransition(t *model.Transition) error
	RecentTransitions(teamID string, limit int) ([]model.Transition, error)
}
