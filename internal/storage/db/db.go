// Package db is the GORM-backed storage backend.
package db

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rustwatch/teamtracker/internal/database"
	"github.com/rustwatch/teamtracker/internal/model"
	"github.com/rustwatch/teamtracker/internal/storage"
)

// Backend persists colors and transition history through a database.Manager.
type Backend struct {
	manager *database.Manager
	logger  zerolog.Logger
}

// New creates a database-backed storage backend from a connected manager.
func New(manager *database.Manager, log zerolog.Logger) *Backend {
	return &Backend{
		manager: manager,
		logger:  log,
	}
}

// Init verifies the manager holds a usable connection.
func (b *Backend) Init() error {
	if b.manager == nil || !b.manager.IsValid {
		return fmt.Errorf("database backend requires a valid connection")
	}
	return nil
}

// Close closes the database connection.
func (b *Backend) Close() error {
	return b.manager.Close()
}

// MemberColor returns the stored color for a member.
func (b *Backend) MemberColor(teamID, memberID string) (string, error) {
	var row model.MemberColor
	err := b.manager.DB.
		Where("team_id = ? AND member_id = ?", teamID, memberID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying member color: %w", err)
	}
	return row.Color, nil
}

// SaveMemberColor stores a color unless one already exists. The unique
// index on (team_id, member_id) makes the first write win.
func (b *Backend) SaveMemberColor(teamID, memberID, color string) error {
	row := model.MemberColor{
		TeamID:   teamID,
		MemberID: memberID,
		Color:    color,
	}
	err := b.manager.DB.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving member color: %w", err)
	}
	return nil
}

// RecordTransition appends a transition to the history table.
func (b *Backend) RecordTransition(t *model.Transition) error {
	if err := b.manager.DB.Create(t).Error; err != nil {
		return fmt.Errorf("recording transition: %w", err)
	}
	return nil
}

// RecentTransitions returns up to limit transitions, newest first.
func (b *Backend) RecentTransitions(teamID string, limit int) ([]model.Transition, error) {
	rows := []model.Transition{}
	q := b.manager.DB.
		Where("team_id = ?", teamID).
		Order("time DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying transitions: %w", err)
	}
	return rows, nil
}
