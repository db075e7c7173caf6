// Package monitor periodically writes a status file summarizing every
// tracked team, for operators to inspect while the tracker runs.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustwatch/teamtracker/internal/poller"
)

// StatusSource supplies the current per-team summaries.
type StatusSource interface {
	Status() []poller.TeamStatus
}

// Service manages status monitoring.
type Service struct {
	source     StatusSource
	statusPath string
	interval   time.Duration
	logger     zerolog.Logger

	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(source StatusSource, statusPath string, interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Service{
		source:     source,
		statusPath: statusPath,
		interval:   interval,
		logger:     log,
		stopChan:   make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	statusFile, err := os.Create(s.statusPath)
	if err != nil {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return fmt.Errorf("error creating status file: %w", err)
	}

	go func() {
		defer func() {
			statusFile.Close()
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.logger.Debug().Str("path", s.statusPath).Msg("Starting status monitor goroutine")

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				if err := s.writeStatus(statusFile); err != nil {
					s.logger.Error().Err(err).Msg("Error writing status file")
				}
			}
		}
	}()

	return nil
}

func (s *Service) writeStatus(statusFile *os.File) error {
	statuses := s.source.Status()

	payload, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}

	if err := statusFile.Truncate(0); err != nil {
		return err
	}
	if _, err := statusFile.Seek(0, 0); err != nil {
		return err
	}
	if _, err := statusFile.Write(append(payload, '\n')); err != nil {
		return err
	}
	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
