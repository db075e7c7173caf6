// Package notify turns transition events into user-facing messages and
// delivers them through a pluggable Notifier.
package notify

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustwatch/teamtracker/internal/geo"
	"github.com/rustwatch/teamtracker/internal/roster"
)

// Message is one user-facing notification.
type Message struct {
	TeamID   string    `json:"teamId"`
	MemberID string    `json:"memberId,omitempty"`
	Kind     string    `json:"kind"`
	Text     string    `json:"text"`
	Time     time.Time `json:"time"`
}

// Notifier delivers messages to wherever users see them.
type Notifier interface {
	Notify(msg Message) error
}

// LogNotifier writes notifications to the log. The default when no push
// channel is configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(msg Message) error {
	n.Logger.Info().
		Str("team", msg.TeamID).
		Str("kind", msg.Kind).
		Msg(msg.Text)
	return nil
}

// Sink formats each ingest cycle's events and hands them to the Notifier.
type Sink struct {
	notifier Notifier
	mapSize  float64
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSink creates a notification sink. mapSize is used for grid labels in
// position-bearing messages.
func NewSink(n Notifier, mapSize float64, log zerolog.Logger) *Sink {
	return &Sink{
		notifier: n,
		mapSize:  mapSize,
		logger:   log,
		now:      time.Now,
	}
}

// HandleEvents implements the poller sink interface.
func (s *Sink) HandleEvents(teamID string, events []roster.Event, team *roster.Roster) {
	for _, e := range events {
		msg := s.format(teamID, e, team)
		if err := s.notifier.Notify(msg); err != nil {
			s.logger.Error().Err(err).
				Str("team", teamID).
				Str("kind", string(e.Kind)).
				Msg("Notification delivery failed")
		}
	}
}

func (s *Sink) format(teamID string, e roster.Event, team *roster.Roster) Message {
	msg := Message{
		TeamID:   teamID,
		MemberID: e.MemberID,
		Kind:     string(e.Kind),
		Time:     s.now(),
	}

	name := e.MemberID
	var member *roster.Member
	if team != nil {
		if m, ok := team.Member(e.MemberID); ok {
			member = m
			name = m.Name()
		}
	}

	switch e.Kind {
	case roster.MemberJoined:
		msg.Text = fmt.Sprintf("%s joined the team", name)
	case roster.MemberLeft:
		msg.Text = fmt.Sprintf("%s left the team", name)
	case roster.WentOnline:
		msg.Text = fmt.Sprintf("%s is online", name)
	case roster.WentOffline:
		msg.Text = fmt.Sprintf("%s went offline", name)
	case roster.BecameAlive:
		msg.Text = fmt.Sprintf("%s is alive again", name)
	case roster.BecameDead:
		msg.Text = s.withGrid(fmt.Sprintf("%s died", name), member)
	case roster.BecameIdle:
		msg.Text = s.withGrid(fmt.Sprintf("%s is idle", name), member)
	case roster.LeaderChanged:
		leader := e.NewLeaderID
		if team != nil {
			if m, ok := team.Member(e.NewLeaderID); ok {
				leader = m.Name()
			}
		}
		msg.MemberID = e.NewLeaderID
		msg.Text = fmt.Sprintf("Team leadership passed to %s", leader)
	default:
		msg.Text = fmt.Sprintf("%s: %s", name, e.Kind)
	}

	return msg
}

// withGrid appends the member's grid location when it can be resolved.
func (s *Sink) withGrid(text string, member *roster.Member) string {
	if member == nil {
		return text
	}
	x, y := member.Position()
	label, err := geo.GridLabel(x, y, s.mapSize)
	if err != nil {
		return text
	}
	return fmt.Sprintf("%s at %s", text, label)
}
