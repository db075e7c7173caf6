// Package roster implements the presence and state-diffing engine: it
// reconciles periodic full team snapshots against known state, detects
// membership changes and per-member transitions, and maintains derived
// temporal attributes that depend on history.
//
// A Roster is single-writer: the owning driver must guarantee at most one
// Ingest call in flight per instance. Independent rosters (one per tracked
// team) may be processed concurrently.
package roster

import "time"

// DefaultIdleThreshold is how long a member must sit still while online
// before being flagged idle.
const DefaultIdleThreshold = 5 * time.Minute

// Option configures a Roster at construction.
type Option func(*Roster)

// WithIdleThreshold overrides the idle threshold.
func WithIdleThreshold(d time.Duration) Option {
	return func(r *Roster) {
		r.idleThreshold = d
	}
}

// WithClock overrides the wall-clock source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Roster) {
		r.now = now
	}
}

// Roster owns the keyed collection of members for one tracked team and
// performs snapshot reconciliation.
type Roster struct {
	members  map[string]*Member
	leaderID string

	allOnline  bool
	allOffline bool

	idleThreshold time.Duration
	now           func() time.Time
}

// New creates an empty roster.
func New(opts ...Option) *Roster {
	r := &Roster{
		members:       make(map[string]*Member),
		idleThreshold: DefaultIdleThreshold,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ingest reconciles a snapshot against current membership and returns the
// detected events in order: leader change, joins (snapshot order), leaves
// (map order), then remaining-member transitions (snapshot order).
func (r *Roster) Ingest(snap Snapshot) []Event {
	var events []Event

	if snap.LeaderID != r.leaderID {
		events = append(events, Event{
			Kind:        LeaderChanged,
			OldLeaderID: r.leaderID,
			NewLeaderID: snap.LeaderID,
		})
		r.leaderID = snap.LeaderID
	}

	listed := make(map[string]struct{}, len(snap.Members))
	remaining := make([]MemberRecord, 0, len(snap.Members))
	for _, rec := range snap.Members {
		listed[rec.ID] = struct{}{}
		if _, ok := r.members[rec.ID]; ok {
			remaining = append(remaining, rec)
			continue
		}
		// First appearance: fresh member, derived state empty. A rejoin
		// after a leave starts over the same way.
		r.members[rec.ID] = newMember(rec, r.idleThreshold, r.now)
		events = append(events, Event{Kind: MemberJoined, MemberID: rec.ID})
	}

	for id := range r.members {
		if _, ok := listed[id]; ok {
			continue
		}
		delete(r.members, id)
		events = append(events, Event{Kind: MemberLeft, MemberID: id})
	}

	for _, rec := range remaining {
		m := r.members[rec.ID]

		// Predicates are evaluated against the stored state before Update
		// replaces it.
		if m.WentOnline(rec) {
			events = append(events, Event{Kind: WentOnline, MemberID: rec.ID})
		}
		if m.WentOffline(rec) {
			events = append(events, Event{Kind: WentOffline, MemberID: rec.ID})
		}
		if m.BecameAlive(rec) {
			events = append(events, Event{Kind: BecameAlive, MemberID: rec.ID})
		}
		if m.BecameDead(rec) {
			events = append(events, Event{Kind: BecameDead, MemberID: rec.ID})
		}
		if m.BecameIdle(rec) && m.IdleNow() {
			events = append(events, Event{Kind: BecameIdle, MemberID: rec.ID})
			m.MarkIdle()
		}

		m.Update(rec)
	}

	r.recomputeAggregates()
	return events
}

func (r *Roster) recomputeAggregates() {
	if len(r.members) == 0 {
		r.allOnline = false
		r.allOffline = false
		return
	}
	r.allOnline = true
	r.allOffline = true
	for _, m := range r.members {
		if m.IsOnline() {
			r.allOffline = false
		} else {
			r.allOnline = false
		}
	}
}

// Member returns the member with the given identifier.
func (r *Roster) Member(id string) (*Member, bool) {
	m, ok := r.members[id]
	return m, ok
}

// IsMember reports whether the identifier is currently in the roster.
func (r *Roster) IsMember(id string) bool {
	_, ok := r.members[id]
	return ok
}

// Size returns the current member count.
func (r *Roster) Size() int { return len(r.members) }

// OnlineCount returns how many members are currently online.
func (r *Roster) OnlineCount() int {
	n := 0
	for _, m := range r.members {
		if m.IsOnline() {
			n++
		}
	}
	return n
}

// LeaderID returns the current designated leader ("" if none).
func (r *Roster) LeaderID() string { return r.leaderID }

// AllOnline reports whether every member is online. False when empty.
func (r *Roster) AllOnline() bool { return r.allOnline }

// AllOffline reports whether every member is offline. False when empty.
func (r *Roster) AllOffline() bool { return r.allOffline }

// LongestAlive returns the member with the greatest alive duration, or nil
// if the roster is empty. Ties go to whichever member is encountered first.
func (r *Roster) LongestAlive() *Member {
	var best *Member
	var bestDur time.Duration
	for _, m := range r.members {
		d := m.AliveDuration()
		if best == nil || d > bestDur {
			best = m
			bestDur = d
		}
	}
	return best
}

// Members returns the current members. Order is not specified.
func (r *Roster) Members() []*Member {
	out := make([]*Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out
}
