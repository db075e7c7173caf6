package roster

import "time"

// Member holds one tracked entity's latest raw state plus the derived
// bookkeeping that cannot be recovered from a single snapshot. Raw fields
// always mirror the most recent ingested record; derived fields only change
// through Update and MarkIdle.
type Member struct {
	rec MemberRecord

	// lastMovementAt is the last time the position changed while online,
	// or the moment the member most recently came online. Never set while
	// offline.
	lastMovementAt time.Time
	hasMovement    bool

	wentOfflineAt time.Time
	hasOffline    bool

	// prevX/prevY hold the position the member last moved from, so
	// collaborators can report how far the move covered.
	prevX, prevY float64
	hasPrev      bool

	// wasIdle latches once idle has been flagged for the current online
	// session.
	wasIdle bool

	idleThreshold time.Duration
	now           func() time.Time
}

func newMember(rec MemberRecord, idleThreshold time.Duration, now func() time.Time) *Member {
	return &Member{
		rec:           rec,
		idleThreshold: idleThreshold,
		now:           now,
	}
}

// ID returns the member's stable identifier.
func (m *Member) ID() string { return m.rec.ID }

// Name returns the latest display name.
func (m *Member) Name() string { return m.rec.Name }

// Position returns the latest world coordinates.
func (m *Member) Position() (x, y float64) { return m.rec.X, m.rec.Y }

// IsOnline reports the latest online flag.
func (m *Member) IsOnline() bool { return m.rec.IsOnline }

// IsAlive reports the latest alive flag.
func (m *Member) IsAlive() bool { return m.rec.IsAlive }

// SpawnTime returns the latest spawn timestamp in unix seconds (0 = never).
func (m *Member) SpawnTime() int64 { return m.rec.SpawnTime }

// DeathTime returns the latest death timestamp in unix seconds (0 = never).
func (m *Member) DeathTime() int64 { return m.rec.DeathTime }

// WasIdle reports whether idle has already been flagged for the current
// online session.
func (m *Member) WasIdle() bool { return m.wasIdle }

// LastMovementAt returns the last movement timestamp, if any.
func (m *Member) LastMovementAt() (time.Time, bool) { return m.lastMovementAt, m.hasMovement }

// WentOfflineAt returns the last online-to-offline transition time, if any.
func (m *Member) WentOfflineAt() (time.Time, bool) { return m.wentOfflineAt, m.hasOffline }

// LastMoveFrom returns the position the member most recently moved from.
// The third return is false until a movement has been observed.
func (m *Member) LastMoveFrom() (x, y float64, ok bool) { return m.prevX, m.prevY, m.hasPrev }

// Predicates. Each compares the current stored state against an incoming
// record without mutating anything.

func (m *Member) IdentityChanged(in MemberRecord) bool { return m.rec.ID != in.ID }
func (m *Member) NameChanged(in MemberRecord) bool     { return m.rec.Name != in.Name }
func (m *Member) XChanged(in MemberRecord) bool        { return m.rec.X != in.X }
func (m *Member) YChanged(in MemberRecord) bool        { return m.rec.Y != in.Y }
func (m *Member) OnlineChanged(in MemberRecord) bool   { return m.rec.IsOnline != in.IsOnline }
func (m *Member) AliveChanged(in MemberRecord) bool    { return m.rec.IsAlive != in.IsAlive }

func (m *Member) SpawnTimeChanged(in MemberRecord) bool { return m.rec.SpawnTime != in.SpawnTime }
func (m *Member) DeathTimeChanged(in MemberRecord) bool { return m.rec.DeathTime != in.DeathTime }

// Moved reports whether either coordinate changed.
func (m *Member) Moved(in MemberRecord) bool {
	return m.XChanged(in) || m.YChanged(in)
}

// WentOnline reports an offline-to-online transition.
func (m *Member) WentOnline(in MemberRecord) bool {
	return !m.rec.IsOnline && in.IsOnline
}

// WentOffline reports an online-to-offline transition.
func (m *Member) WentOffline(in MemberRecord) bool {
	return m.rec.IsOnline && !in.IsOnline
}

// BecameAlive reports a dead-to-alive transition.
func (m *Member) BecameAlive(in MemberRecord) bool {
	return !m.rec.IsAlive && in.IsAlive
}

// BecameDead reports a new death. A changed death timestamp counts even
// when the alive flag never visibly flipped, which covers a re-death with
// no observed alive window between snapshots.
func (m *Member) BecameDead(in MemberRecord) bool {
	return (m.rec.IsAlive && !in.IsAlive) || m.DeathTimeChanged(in)
}

// BecameIdle reports that idleness may be flagged for this ingest: not yet
// flagged this session, no movement in the incoming record, and the member
// is already known online.
func (m *Member) BecameIdle(in MemberRecord) bool {
	return !m.wasIdle && !m.Moved(in) && m.rec.IsOnline
}

// IdleNow reports whether the member has gone at least the idle threshold
// without movement.
func (m *Member) IdleNow() bool {
	return m.hasMovement && m.now().Sub(m.lastMovementAt) >= m.idleThreshold
}

// MarkIdle latches the idle flag for the current online session. Cleared
// again by Update on movement or an online transition.
func (m *Member) MarkIdle() { m.wasIdle = true }

// Update applies an incoming record: refreshes the derived bookkeeping
// based on the detected transitions, then replaces the stored raw fields.
func (m *Member) Update(in MemberRecord) {
	now := m.now()

	if m.WentOffline(in) {
		m.wentOfflineAt = now
		m.hasOffline = true
	}

	switch {
	case m.WentOnline(in):
		m.lastMovementAt = now
		m.hasMovement = true
		m.wasIdle = false
	case m.Moved(in):
		m.prevX, m.prevY = m.rec.X, m.rec.Y
		m.hasPrev = true
		m.lastMovementAt = now
		m.hasMovement = true
		m.wasIdle = false
	case !m.rec.IsOnline:
		// Offline and not coming online: a stale idle flag must not leak
		// into a later online session.
		m.wasIdle = false
	}

	m.rec = in
}

// AliveDuration returns time since the latest spawn, or 0 if the member
// never spawned.
func (m *Member) AliveDuration() time.Duration {
	if m.rec.SpawnTime == 0 {
		return 0
	}
	return m.now().Sub(time.Unix(m.rec.SpawnTime, 0))
}

// DeadDuration returns time since the latest death, or 0 if the member
// never died.
func (m *Member) DeadDuration() time.Duration {
	if m.rec.DeathTime == 0 {
		return 0
	}
	return m.now().Sub(time.Unix(m.rec.DeathTime, 0))
}

// OfflineDuration returns time since the last online-to-offline transition.
// The second return is false if the member has never gone offline.
func (m *Member) OfflineDuration() (time.Duration, bool) {
	if !m.hasOffline {
		return 0, false
	}
	return m.now().Sub(m.wentOfflineAt), true
}

// IdleDuration returns time since the last movement, or 0 if no movement
// has been recorded yet.
func (m *Member) IdleDuration() time.Duration {
	if !m.hasMovement {
		return 0
	}
	return m.now().Sub(m.lastMovementAt)
}
