package roster

// EventKind names a transition detected between two consecutive snapshots.
type EventKind string

const (
	MemberJoined  EventKind = "member_joined"
	MemberLeft    EventKind = "member_left"
	WentOnline    EventKind = "went_online"
	WentOffline   EventKind = "went_offline"
	BecameAlive   EventKind = "became_alive"
	BecameDead    EventKind = "became_dead"
	BecameIdle    EventKind = "became_idle"
	LeaderChanged EventKind = "leader_changed"
)

// Event is a single detected transition. MemberID is set for all kinds
// except LeaderChanged, which carries the old and new leader instead.
type Event struct {
	Kind        EventKind
	MemberID    string
	OldLeaderID string
	NewLeaderID string
}
