package roster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSnapshot(t *testing.T, leaderID string, members ...MemberRecord) Snapshot {
	t.Helper()
	snap, err := NewSnapshot(leaderID, members)
	require.NoError(t, err)
	return snap
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func findEvent(events []Event, kind EventKind, memberID string) bool {
	for _, e := range events {
		if e.Kind == kind && e.MemberID == memberID {
			return true
		}
	}
	return false
}

func TestIngestMemberJoined(t *testing.T) {
	r := New()

	events := r.Ingest(mustSnapshot(t, "", baseRecord()))

	require.Len(t, events, 1)
	assert.Equal(t, MemberJoined, events[0].Kind)
	assert.Equal(t, baseRecord().ID, events[0].MemberID)
	assert.True(t, r.IsMember(baseRecord().ID))
	assert.Equal(t, 1, r.Size())
}

func TestIngestMemberLeft(t *testing.T) {
	r := New()
	r.Ingest(mustSnapshot(t, "", baseRecord()))

	events := r.Ingest(mustSnapshot(t, ""))

	require.Len(t, events, 1)
	assert.Equal(t, MemberLeft, events[0].Kind)
	assert.Equal(t, baseRecord().ID, events[0].MemberID)
	assert.False(t, r.IsMember(baseRecord().ID))
}

func TestIngestIdenticalSnapshotIsQuiet(t *testing.T) {
	clock := newFakeClock()
	r := New(WithClock(clock.Now))

	snap := mustSnapshot(t, "A", baseRecord())
	r.Ingest(snap)

	events := r.Ingest(snap)
	assert.Empty(t, events, "second identical snapshot must emit nothing")
}

func TestIngestRejoinResetsDerivedState(t *testing.T) {
	clock := newFakeClock()
	r := New(WithClock(clock.Now))

	offline := baseRecord()
	offline.IsOnline = false

	r.Ingest(mustSnapshot(t, "", baseRecord()))
	r.Ingest(mustSnapshot(t, "", offline))

	m, ok := r.Member(offline.ID)
	require.True(t, ok)
	_, hasOffline := m.WentOfflineAt()
	assert.True(t, hasOffline)

	// Leave, then rejoin: a fresh member with empty derived state.
	r.Ingest(mustSnapshot(t, ""))
	events := r.Ingest(mustSnapshot(t, "", baseRecord()))
	require.Len(t, events, 1)
	assert.Equal(t, MemberJoined, events[0].Kind)

	m, ok = r.Member(baseRecord().ID)
	require.True(t, ok)
	_, hasOffline = m.WentOfflineAt()
	assert.False(t, hasOffline, "rejoin must not inherit the old member's bookkeeping")
}

func TestIngestIdleEmittedOnceAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	threshold := 2 * time.Minute
	r := New(WithClock(clock.Now), WithIdleThreshold(threshold))

	offline := baseRecord()
	offline.IsOnline = false

	r.Ingest(mustSnapshot(t, "", offline))
	r.Ingest(mustSnapshot(t, "", baseRecord())) // comes online, movement clock seeded

	// Still under the threshold: no idle event yet.
	clock.Advance(threshold / 2)
	events := r.Ingest(mustSnapshot(t, "", baseRecord()))
	assert.Empty(t, events)

	// Threshold crossed: exactly one BecameIdle.
	clock.Advance(threshold)
	events = r.Ingest(mustSnapshot(t, "", baseRecord()))
	require.Len(t, events, 1)
	assert.Equal(t, BecameIdle, events[0].Kind)

	m, _ := r.Member(baseRecord().ID)
	assert.GreaterOrEqual(t, m.IdleDuration(), threshold)

	// Still idle on later ingests: no repeat.
	clock.Advance(threshold)
	events = r.Ingest(mustSnapshot(t, "", baseRecord()))
	assert.Empty(t, events)

	// Movement clears the latch; a fresh idle period emits again.
	moved := baseRecord()
	moved.X += 50
	r.Ingest(mustSnapshot(t, "", moved))
	clock.Advance(threshold)
	events = r.Ingest(mustSnapshot(t, "", moved))
	require.Len(t, events, 1)
	assert.Equal(t, BecameIdle, events[0].Kind)
}

func TestIngestDeathRetrigger(t *testing.T) {
	r := New()

	first := baseRecord()
	first.DeathTime = 1700001000
	r.Ingest(mustSnapshot(t, "", first))

	// Alive flag never flips, but a new death timestamp arrives.
	second := first
	second.DeathTime = 1700002000
	events := r.Ingest(mustSnapshot(t, "", second))

	require.Len(t, events, 1)
	assert.Equal(t, BecameDead, events[0].Kind)
	assert.Equal(t, first.ID, events[0].MemberID)
}

func TestIngestLeaderChanged(t *testing.T) {
	r := New()

	events := r.Ingest(mustSnapshot(t, "A", baseRecord()))
	require.Len(t, events, 2)
	assert.Equal(t, LeaderChanged, events[0].Kind, "leader change precedes joins")
	assert.Equal(t, "", events[0].OldLeaderID)
	assert.Equal(t, "A", events[0].NewLeaderID)
	assert.Equal(t, MemberJoined, events[1].Kind)
	assert.Equal(t, "A", r.LeaderID())

	events = r.Ingest(mustSnapshot(t, "B", baseRecord()))
	require.Len(t, events, 1)
	assert.Equal(t, LeaderChanged, events[0].Kind)
	assert.Equal(t, "A", events[0].OldLeaderID)
	assert.Equal(t, "B", events[0].NewLeaderID)
}

func TestIngestAggregates(t *testing.T) {
	r := New()

	// Empty roster: neither flag holds.
	r.Ingest(mustSnapshot(t, ""))
	assert.False(t, r.AllOnline())
	assert.False(t, r.AllOffline())

	online := baseRecord()
	offline := baseRecord()
	offline.ID = "76561198000000002"
	offline.Name = "Bob"
	offline.IsOnline = false

	r.Ingest(mustSnapshot(t, "", online, offline))
	assert.False(t, r.AllOnline())
	assert.False(t, r.AllOffline())
	assert.Equal(t, 1, r.OnlineCount())

	offline.IsOnline = true
	r.Ingest(mustSnapshot(t, "", online, offline))
	assert.True(t, r.AllOnline())
	assert.False(t, r.AllOffline())

	online.IsOnline = false
	offline.IsOnline = false
	r.Ingest(mustSnapshot(t, "", online, offline))
	assert.False(t, r.AllOnline())
	assert.True(t, r.AllOffline())
}

func TestIngestTransitionOrderFollowsSnapshot(t *testing.T) {
	r := New()

	a := baseRecord()
	b := baseRecord()
	b.ID = "76561198000000002"
	b.Name = "Bob"

	r.Ingest(mustSnapshot(t, "", a, b))

	a.IsOnline = false
	b.IsOnline = false
	events := r.Ingest(mustSnapshot(t, "", a, b))

	require.Equal(t, []EventKind{WentOffline, WentOffline}, kinds(events))
	assert.Equal(t, a.ID, events[0].MemberID)
	assert.Equal(t, b.ID, events[1].MemberID)
}

func TestLongestAlive(t *testing.T) {
	clock := newFakeClock()
	r := New(WithClock(clock.Now))

	assert.Nil(t, r.LongestAlive(), "empty roster has no longest-alive member")

	young := baseRecord()
	young.SpawnTime = clock.Now().Add(-time.Minute).Unix()
	old := baseRecord()
	old.ID = "76561198000000002"
	old.Name = "Bob"
	old.SpawnTime = clock.Now().Add(-time.Hour).Unix()
	never := baseRecord()
	never.ID = "76561198000000003"
	never.Name = "Carol"
	never.SpawnTime = 0

	r.Ingest(mustSnapshot(t, "", young, old, never))

	m := r.LongestAlive()
	require.NotNil(t, m)
	assert.Equal(t, old.ID, m.ID())
}

// Mirrors the end-to-end scenario from the tracker's reference behavior:
// join online and alive, then drop offline.
func TestIngestScenarioJoinThenOffline(t *testing.T) {
	clock := newFakeClock()
	r := New(WithClock(clock.Now))

	rec := MemberRecord{
		ID:        "A",
		Name:      "Alice",
		IsOnline:  true,
		IsAlive:   true,
		SpawnTime: clock.Now().Add(-time.Hour).Unix(),
	}

	events := r.Ingest(mustSnapshot(t, "A", rec))
	assert.True(t, findEvent(events, MemberJoined, "A"))
	assert.True(t, r.AllOnline())
	assert.False(t, r.AllOffline())
	require.NotNil(t, r.LongestAlive())
	assert.Equal(t, "A", r.LongestAlive().ID())

	rec.IsOnline = false
	events = r.Ingest(mustSnapshot(t, "A", rec))
	assert.True(t, findEvent(events, WentOffline, "A"))

	clock.Advance(time.Second)
	m, ok := r.Member("A")
	require.True(t, ok)
	d, hasOffline := m.OfflineDuration()
	require.True(t, hasOffline)
	assert.Greater(t, d, time.Duration(0))
}

func TestIngestIdleNeedsObservedMovementClock(t *testing.T) {
	clock := newFakeClock()
	r := New(WithClock(clock.Now), WithIdleThreshold(time.Minute))

	online := mustSnapshot(t, "", MemberRecord{ID: "A", Name: "Alice", IsOnline: true, IsAlive: true})
	r.Ingest(online)

	// A member first seen already online has no movement baseline, so
	// sitting still never flags idle on this path.
	clock.Advance(10 * time.Minute)
	events := r.Ingest(online)
	assert.NotContains(t, kinds(events), BecameIdle)

	// An offline/online cycle arms the movement clock; the threshold then
	// applies normally.
	offline := mustSnapshot(t, "", MemberRecord{ID: "A", Name: "Alice", IsOnline: false, IsAlive: true})
	r.Ingest(offline)
	r.Ingest(online)

	clock.Advance(2 * time.Minute)
	events = r.Ingest(online)
	assert.Contains(t, kinds(events), BecameIdle)
}
