package storage

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/rustwatch/teamtracker/internal/geo"
	"github.com/rustwatch/teamtracker/internal/model"
	"github.com/rustwatch/teamtracker/internal/roster"
)

// Recorder persists every transition event through a Backend.
type Recorder struct {
	backend Backend
	logger  zerolog.Logger
	now     func() time.Time
}

// NewRecorder creates a transition recorder sink.
func NewRecorder(backend Backend, log zerolog.Logger) *Recorder {
	return &Recorder{
		backend: backend,
		logger:  log,
		now:     time.Now,
	}
}

// transitionDetail is the JSON payload stored alongside each transition.
// Coordinates are kept even at zero; the origin corner is a real position.
type transitionDetail struct {
	Name          string  `json:"name,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	DistanceMoved float64 `json:"distanceMoved,omitempty"`
	OldLeaderID   string  `json:"oldLeaderId,omitempty"`
	NewLeaderID   string  `json:"newLeaderId,omitempty"`
}

// HandleEvents implements the poller sink interface.
func (r *Recorder) HandleEvents(teamID string, events []roster.Event, team *roster.Roster) {
	now := r.now()
	for _, e := range events {
		detail := transitionDetail{
			OldLeaderID: e.OldLeaderID,
			NewLeaderID: e.NewLeaderID,
		}
		if team != nil {
			if m, ok := team.Member(e.MemberID); ok {
				detail.Name = m.Name()
				detail.X, detail.Y = m.Position()
				if fromX, fromY, moved := m.LastMoveFrom(); moved {
					detail.DistanceMoved = geo.Distance(fromX, fromY, detail.X, detail.Y)
				}
			}
		}

		payload, err := json.Marshal(detail)
		if err != nil {
			r.logger.Error().Err(err).Str("team", teamID).Msg("Error marshalling transition detail")
			payload = []byte("{}")
		}

		t := &model.Transition{
			TeamID:   teamID,
			MemberID: e.MemberID,
			Kind:     string(e.Kind),
			Time:     now,
			Detail:   datatypes.JSON(payload),
		}
		if err := r.backend.RecordTransition(t); err != nil {
			r.logger.Error().Err(err).
				Str("team", teamID).
				Str("kind", string(e.Kind)).
				Msg("Error recording transition")
		}
	}
}
