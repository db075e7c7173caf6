package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func baseRecord() MemberRecord {
	return MemberRecord{
		ID:        "76561198000000001",
		Name:      "Alice",
		X:         1000,
		Y:         2000,
		IsOnline:  true,
		IsAlive:   true,
		SpawnTime: 1700000000,
		DeathTime: 0,
	}
}

func TestMemberPredicates(t *testing.T) {
	clock := newFakeClock()

	tests := []struct {
		name   string
		stored MemberRecord
		in     MemberRecord
		check  func(t *testing.T, m *Member, in MemberRecord)
	}{
		{
			name:   "identical records change nothing",
			stored: baseRecord(),
			in:     baseRecord(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				assert.False(t, m.IdentityChanged(in))
				assert.False(t, m.NameChanged(in))
				assert.False(t, m.Moved(in))
				assert.False(t, m.OnlineChanged(in))
				assert.False(t, m.AliveChanged(in))
				assert.False(t, m.WentOnline(in))
				assert.False(t, m.WentOffline(in))
				assert.False(t, m.BecameAlive(in))
				assert.False(t, m.BecameDead(in))
			},
		},
		{
			name:   "x movement",
			stored: baseRecord(),
			in: func() MemberRecord {
				r := baseRecord()
				r.X += 10
				return r
			}(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				assert.True(t, m.XChanged(in))
				assert.False(t, m.YChanged(in))
				assert.True(t, m.Moved(in))
			},
		},
		{
			name:   "y movement",
			stored: baseRecord(),
			in: func() MemberRecord {
				r := baseRecord()
				r.Y -= 0.5
				return r
			}(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				assert.False(t, m.XChanged(in))
				assert.True(t, m.YChanged(in))
				assert.True(t, m.Moved(in))
			},
		},
		{
			name: "went online",
			stored: func() MemberRecord {
				r := baseRecord()
				r.IsOnline = false
				return r
			}(),
			in: baseRecord(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				assert.True(t, m.WentOnline(in))
				assert.False(t, m.WentOffline(in))
				assert.True(t, m.OnlineChanged(in))
			},
		},
		{
			name:   "went offline",
			stored: baseRecord(),
			in: func() MemberRecord {
				r := baseRecord()
				r.IsOnline = false
				return r
			}(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				assert.True(t, m.WentOffline(in))
				assert.False(t, m.WentOnline(in))
			},
		},
		{
			name: "became alive",
			stored: func() MemberRecord {
				r := baseRecord()
				r.IsAlive = false
				return r
			}(),
			in: baseRecord(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				assert.True(t, m.BecameAlive(in))
				assert.False(t, m.BecameDead(in))
			},
		},
		{
			name:   "became dead via flag flip",
			stored: baseRecord(),
			in: func() MemberRecord {
				r := baseRecord()
				r.IsAlive = false
				r.DeathTime = 1700001000
				return r
			}(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				assert.True(t, m.BecameDead(in))
				assert.True(t, m.DeathTimeChanged(in))
			},
		},
		{
			name: "became dead via death time only",
			stored: func() MemberRecord {
				r := baseRecord()
				r.DeathTime = 1700001000
				return r
			}(),
			in: func() MemberRecord {
				r := baseRecord()
				r.DeathTime = 1700002000
				return r
			}(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				// Re-death without an observed alive window: the alive flag
				// never flipped but the death timestamp moved.
				assert.False(t, m.AliveChanged(in))
				assert.True(t, m.BecameDead(in))
			},
		},
		{
			name:   "spawn time change",
			stored: baseRecord(),
			in: func() MemberRecord {
				r := baseRecord()
				r.SpawnTime = 1700005000
				return r
			}(),
			check: func(t *testing.T, m *Member, in MemberRecord) {
				assert.True(t, m.SpawnTimeChanged(in))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMember(tt.stored, DefaultIdleThreshold, clock.Now)
			tt.check(t, m, tt.in)
		})
	}
}

func TestMemberUpdateMovement(t *testing.T) {
	clock := newFakeClock()
	m := newMember(baseRecord(), DefaultIdleThreshold, clock.Now)

	_, ok := m.LastMovementAt()
	assert.False(t, ok, "no movement recorded before any update")

	clock.Advance(30 * time.Second)
	moved := baseRecord()
	moved.X += 100
	m.Update(moved)

	ts, ok := m.LastMovementAt()
	require.True(t, ok)
	assert.Equal(t, clock.Now(), ts)

	// No movement: lastMovementAt stays put.
	clock.Advance(30 * time.Second)
	m.Update(moved)
	ts2, ok := m.LastMovementAt()
	require.True(t, ok)
	assert.Equal(t, ts, ts2)
}

func TestMemberUpdateOnlineTransitions(t *testing.T) {
	clock := newFakeClock()

	offline := baseRecord()
	offline.IsOnline = false
	m := newMember(offline, DefaultIdleThreshold, clock.Now)

	// Coming online seeds the movement clock and clears idle.
	clock.Advance(time.Minute)
	m.Update(baseRecord())
	ts, ok := m.LastMovementAt()
	require.True(t, ok)
	assert.Equal(t, clock.Now(), ts)
	assert.False(t, m.WasIdle())

	// Going offline stamps wentOfflineAt but not lastMovementAt.
	clock.Advance(time.Minute)
	m.Update(offline)
	offAt, ok := m.WentOfflineAt()
	require.True(t, ok)
	assert.Equal(t, clock.Now(), offAt)
	ts2, _ := m.LastMovementAt()
	assert.Equal(t, ts, ts2, "lastMovementAt must never be set while offline")

	clock.Advance(90 * time.Second)
	d, ok := m.OfflineDuration()
	require.True(t, ok)
	assert.Equal(t, 90*time.Second, d)
}

func TestMemberIdleFlagClearedWhileOffline(t *testing.T) {
	clock := newFakeClock()
	m := newMember(baseRecord(), DefaultIdleThreshold, clock.Now)
	m.MarkIdle()
	require.True(t, m.WasIdle())

	// Stored state goes offline first.
	offline := baseRecord()
	offline.IsOnline = false
	m.Update(offline)

	// A further offline update clears the stale idle flag.
	m.MarkIdle()
	m.Update(offline)
	assert.False(t, m.WasIdle())
}

func TestMemberIdleNow(t *testing.T) {
	clock := newFakeClock()
	threshold := 2 * time.Minute

	offline := baseRecord()
	offline.IsOnline = false
	m := newMember(offline, threshold, clock.Now)

	assert.False(t, m.IdleNow(), "no movement clock yet")
	assert.Equal(t, time.Duration(0), m.IdleDuration())

	m.Update(baseRecord()) // comes online
	assert.False(t, m.IdleNow())

	clock.Advance(threshold)
	assert.True(t, m.IdleNow())
	assert.Equal(t, threshold, m.IdleDuration())
}

func TestMemberDurations(t *testing.T) {
	clock := newFakeClock()

	rec := baseRecord()
	rec.SpawnTime = clock.Now().Add(-10 * time.Minute).Unix()
	rec.DeathTime = clock.Now().Add(-3 * time.Minute).Unix()
	m := newMember(rec, DefaultIdleThreshold, clock.Now)

	assert.Equal(t, 10*time.Minute, m.AliveDuration())
	assert.Equal(t, 3*time.Minute, m.DeadDuration())

	// Zero timestamps mean never spawned / never died.
	never := baseRecord()
	never.SpawnTime = 0
	never.DeathTime = 0
	m2 := newMember(never, DefaultIdleThreshold, clock.Now)
	assert.Equal(t, time.Duration(0), m2.AliveDuration())
	assert.Equal(t, time.Duration(0), m2.DeadDuration())
	_, ok := m2.OfflineDuration()
	assert.False(t, ok)
}

func TestMemberTracksLastMoveOrigin(t *testing.T) {
	clock := newFakeClock()
	m := newMember(baseRecord(), DefaultIdleThreshold, clock.Now)

	_, _, ok := m.LastMoveFrom()
	assert.False(t, ok, "no movement observed yet")

	in := baseRecord()
	in.X += 30
	in.Y += 40
	m.Update(in)

	fromX, fromY, ok := m.LastMoveFrom()
	require.True(t, ok)
	assert.Equal(t, baseRecord().X, fromX)
	assert.Equal(t, baseRecord().Y, fromY)

	// A non-moving update keeps the recorded origin.
	m.Update(in)
	fromX, fromY, ok = m.LastMoveFrom()
	require.True(t, ok)
	assert.Equal(t, baseRecord().X, fromX)
	assert.Equal(t, baseRecord().Y, fromY)
}
