// Package palette assigns each team member a display color the first time
// they appear. Colors are persisted through the storage backend and never
// reassigned, so a member keeps their color across leaves and rejoins.
package palette

import (
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustwatch/teamtracker/internal/roster"
	"github.com/rustwatch/teamtracker/internal/storage"
)

// DefaultColors is the pool new members draw from.
var DefaultColors = []string{
	"#eb4d4b", // red
	"#f0932b", // orange
	"#f9ca24", // yellow
	"#6ab04c", // green
	"#22a6b3", // teal
	"#4834d4", // indigo
	"#be2edd", // purple
	"#e056fd", // pink
	"#95afc0", // grey
	"#130f40", // navy
}

// Assigner reacts to member-joined events by persisting a random color.
type Assigner struct {
	backend storage.Backend
	colors  []string
	rng     *rand.Rand
	logger  zerolog.Logger
}

// NewAssigner creates an Assigner drawing from DefaultColors.
func NewAssigner(backend storage.Backend, log zerolog.Logger) *Assigner {
	return &Assigner{
		backend: backend,
		colors:  DefaultColors,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:  log,
	}
}

// HandleEvents implements the poller sink interface.
func (a *Assigner) HandleEvents(teamID string, events []roster.Event, team *roster.Roster) {
	for _, e := range events {
		if e.Kind != roster.MemberJoined {
			continue
		}
		a.ensureColor(teamID, e.MemberID)
	}
}

func (a *Assigner) ensureColor(teamID, memberID string) {
	_, err := a.backend.MemberColor(teamID, memberID)
	if err == nil {
		// Already assigned in an earlier session or before a rejoin.
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		a.logger.Error().Err(err).Str("member", memberID).Msg("Color lookup failed")
		return
	}

	color := a.colors[a.rng.Intn(len(a.colors))]
	if err := a.backend.SaveMemberColor(teamID, memberID, color); err != nil {
		a.logger.Error().Err(err).Str("member", memberID).Msg("Color save failed")
		return
	}
	a.logger.Debug().
		Str("team", teamID).
		Str("member", memberID).
		Str("color", color).
		Msg("Assigned member color")
}

// Color returns the member's assigned color, or "" if none yet.
func (a *Assigner) Color(teamID, memberID string) string {
	color, err := a.backend.MemberColor(teamID, memberID)
	if err != nil {
		return ""
	}
	return color
}
