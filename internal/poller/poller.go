// Package poller drives the reconciliation engine: one polling goroutine
// per tracked team fetches the latest snapshot, ingests it into the team's
// roster and fans the detected events out to the registered sinks.
//
// The per-team goroutine is what guarantees the roster's single-writer
// contract: ingests for one team never overlap, while different teams are
// processed concurrently.
package poller

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rustwatch/teamtracker/internal/roster"
)

// Fetcher supplies the authoritative team snapshot from the upstream source.
type Fetcher interface {
	TeamState(ctx context.Context, teamID string) (roster.Snapshot, error)
}

// Sink consumes the events of one ingest cycle. Sinks run synchronously in
// the team's polling goroutine, in registration order; the roster may be
// read but must not be retained past the call.
type Sink interface {
	HandleEvents(teamID string, events []roster.Event, team *roster.Roster)
}

// Config holds the dependencies for a Manager.
type Config struct {
	Fetcher       Fetcher
	Sinks         []Sink
	Interval      time.Duration
	RosterOptions []roster.Option
	Logger        zerolog.Logger
}

// Manager owns the polling loops for all tracked teams.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	teams    map[string]*teamLoop
	statuses map[string]TeamStatus

	// OTEL metrics
	cycles      metric.Int64Counter
	events      metric.Int64Counter
	fetchErrors metric.Int64Counter
	teamCount   metric.Int64ObservableGauge
}

type teamLoop struct {
	roster *roster.Roster
	cancel context.CancelFunc
	done   chan struct{}
}

// TeamStatus is a point-in-time summary of one tracked team, safe to read
// from outside the polling goroutine.
type TeamStatus struct {
	TeamID     string    `json:"teamId"`
	Members    int       `json:"members"`
	Online     int       `json:"online"`
	LeaderID   string    `json:"leaderId"`
	AllOnline  bool      `json:"allOnline"`
	AllOffline bool      `json:"allOffline"`
	LastPoll   time.Time `json:"lastPoll"`
}

// NewManager creates a Manager. Uses the global OTel meter for metrics
// (no-op if not configured).
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("poller requires a fetcher")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}

	m := &Manager{
		cfg:      cfg,
		teams:    make(map[string]*teamLoop),
		statuses: make(map[string]TeamStatus),
	}

	mtr := meter()
	var err error

	m.cycles, err = mtr.Int64Counter(
		"poller.cycles",
		metric.WithDescription("Total completed poll cycles"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating cycles counter: %w", err)
	}

	m.events, err = mtr.Int64Counter(
		"poller.events",
		metric.WithDescription("Total transition events emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	m.fetchErrors, err = mtr.Int64Counter(
		"poller.fetch.errors",
		metric.WithDescription("Total failed snapshot fetches"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fetch error counter: %w", err)
	}

	m.teamCount, err = mtr.Int64ObservableGauge(
		"poller.teams",
		metric.WithDescription("Currently tracked teams"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating team gauge: %w", err)
	}

	_, err = mtr.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			o.ObserveInt64(m.teamCount, int64(len(m.teams)))
			return nil
		},
		m.teamCount,
	)
	if err != nil {
		return nil, fmt.Errorf("registering team gauge callback: %w", err)
	}

	return m, nil
}

// Track starts a polling loop for the team. Tracking an already-tracked
// team is an error.
func (m *Manager) Track(teamID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.teams[teamID]; ok {
		return fmt.Errorf("team %s is already tracked", teamID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &teamLoop{
		roster: roster.New(m.cfg.RosterOptions...),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.teams[teamID] = loop

	go m.run(ctx, teamID, loop)

	m.cfg.Logger.Info().Str("team", teamID).Msg("Tracking team")
	return nil
}

// Untrack stops the team's polling loop and waits for it to finish.
func (m *Manager) Untrack(teamID string) {
	m.mu.Lock()
	loop, ok := m.teams[teamID]
	if ok {
		delete(m.teams, teamID)
		delete(m.statuses, teamID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	loop.cancel()
	<-loop.done
	m.cfg.Logger.Info().Str("team", teamID).Msg("Stopped tracking team")
}

// Stop stops all polling loops and waits for them.
func (m *Manager) Stop() {
	m.mu.Lock()
	loops := make(map[string]*teamLoop, len(m.teams))
	for id, loop := range m.teams {
		loops[id] = loop
		delete(m.teams, id)
		delete(m.statuses, id)
	}
	m.mu.Unlock()

	for _, loop := range loops {
		loop.cancel()
	}
	for _, loop := range loops {
		<-loop.done
	}
}

// IsTracking reports whether the team currently has a polling loop.
func (m *Manager) IsTracking(teamID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.teams[teamID]
	return ok
}

func (m *Manager) run(ctx context.Context, teamID string, loop *teamLoop) {
	defer close(loop.done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	// First cycle immediately, then on the ticker.
	m.pollOnce(ctx, teamID, loop.roster)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx, teamID, loop.roster)
		}
	}
}

func (m *Manager) pollOnce(ctx context.Context, teamID string, r *roster.Roster) {
	teamAttr := attribute.String("team", teamID)

	snap, err := m.cfg.Fetcher.TeamState(ctx, teamID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.fetchErrors.Add(ctx, 1, metric.WithAttributes(teamAttr))
		m.cfg.Logger.Error().Err(err).Str("team", teamID).Msg("Snapshot fetch failed")
		return
	}

	events := r.Ingest(snap)

	m.cycles.Add(ctx, 1, metric.WithAttributes(teamAttr))
	for _, e := range events {
		m.events.Add(ctx, 1, metric.WithAttributes(
			teamAttr,
			attribute.String("kind", string(e.Kind)),
		))
	}

	if len(events) > 0 {
		m.cfg.Logger.Debug().
			Str("team", teamID).
			Int("events", len(events)).
			Int("members", r.Size()).
			Msg("Snapshot reconciled")
	}

	for _, sink := range m.cfg.Sinks {
		sink.HandleEvents(teamID, events, r)
	}

	status := TeamStatus{
		TeamID:     teamID,
		Members:    r.Size(),
		Online:     r.OnlineCount(),
		LeaderID:   r.LeaderID(),
		AllOnline:  r.AllOnline(),
		AllOffline: r.AllOffline(),
		LastPoll:   time.Now(),
	}
	m.mu.Lock()
	if _, tracked := m.teams[teamID]; tracked {
		m.statuses[teamID] = status
	}
	m.mu.Unlock()
}

// Status returns the latest per-team summaries, sorted by team id.
func (m *Manager) Status() []TeamStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TeamStatus, 0, len(m.statuses))
	for _, s := range m.statuses {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out
}
