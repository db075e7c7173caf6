package roster

import (
	"errors"
	"fmt"
)

// ErrInvalidSnapshot is returned when a snapshot fails construction-time validation.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// MemberRecord is the raw per-member state as reported by the upstream
// server in a single snapshot. SpawnTime and DeathTime are unix seconds,
// 0 meaning the member never spawned / never died.
type MemberRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	IsOnline  bool    `json:"isOnline"`
	IsAlive   bool    `json:"isAlive"`
	SpawnTime int64   `json:"spawnTime"`
	DeathTime int64   `json:"deathTime"`
}

// Snapshot is a full point-in-time listing of a team's members.
// Member order is preserved as received; joined/remaining events are
// emitted in this order.
type Snapshot struct {
	LeaderID string
	Members  []MemberRecord
}

// NewSnapshot validates the raw records and builds a Snapshot.
// Records must carry non-empty, unique identifiers; everything else is
// trusted as-is from the upstream source.
func NewSnapshot(leaderID string, members []MemberRecord) (Snapshot, error) {
	seen := make(map[string]struct{}, len(members))
	for i, rec := range members {
		if rec.ID == "" {
			return Snapshot{}, fmt.Errorf("%w: member %d has empty id", ErrInvalidSnapshot, i)
		}
		if _, dup := seen[rec.ID]; dup {
			return Snapshot{}, fmt.Errorf("%w: duplicate member id %q", ErrInvalidSnapshot, rec.ID)
		}
		seen[rec.ID] = struct{}{}
	}
	return Snapshot{LeaderID: leaderID, Members: members}, nil
}
