// Package model defines the persisted database structures.
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists all structs which represent tables in the database
// schema, in migration order.
var DatabaseModels = []interface{}{
	&MemberColor{},
	&Transition{},
}

// MemberColor is the cosmetic display color assigned to a team member the
// first time they appear. Assigned exactly once and never overwritten.
type MemberColor struct {
	gorm.Model
	TeamID   string `json:"teamId" gorm:"size:64;uniqueIndex:idx_team_member"`
	MemberID string `json:"memberId" gorm:"size:64;uniqueIndex:idx_team_member"`
	Color    string `json:"color" gorm:"size:16"`
}

func (*MemberColor) TableName() string {
	return "member_colors"
}

// Transition is one detected member transition, kept as history so missed
// notifications can be replayed or audited.
type Transition struct {
	gorm.Model
	TeamID   string         `json:"teamId" gorm:"size:64;index:idx_transitions_team"`
	MemberID string         `json:"memberId" gorm:"size:64"`
	Kind     string         `json:"kind" gorm:"size:32"`
	Time     time.Time      `json:"time" gorm:"index:idx_transitions_time"`
	Detail   datatypes.JSON `json:"detail"`
}

func (*Transition) TableName() string {
	return "transitions"
}
