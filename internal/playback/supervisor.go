/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playback implements the background jukebox: player detection,
// directory scanning, and a supervised loop that plays the playlist through
// an external player process, one track at a time, for the life of the host.
package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_jukebox/internal/events"
)

// Phase is the supervisor lifecycle phase. It only ever moves forward: a
// stopped supervisor cannot be restarted.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseRunning    Phase = "running"
	PhaseStopped    Phase = "stopped"
)

// SupervisorConfig bundles construction parameters for the supervisor.
type SupervisorConfig struct {
	MusicDir     string
	Initial      MusicConfig
	PlayerBin    string        // optional override, bypasses catalog detection
	PollInterval time.Duration // zero means the default
}

// Supervisor is the public facade over the playback subsystem. New performs
// no I/O; Start runs the one-time detect+scan and launches the controller
// goroutine; Stop tears everything down and blocks until the child process is
// confirmed gone.
type Supervisor struct {
	cfg    SupervisorConfig
	store  *ConfigStore
	bus    *events.Bus
	logger zerolog.Logger

	mu    sync.Mutex
	phase Phase
	ctrl  *Controller
}

// NewSupervisor creates a supervisor. No detection, scanning, or spawning
// happens until Start.
func NewSupervisor(cfg SupervisorConfig, bus *events.Bus, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		store:  NewConfigStore(cfg.Initial),
		bus:    bus,
		logger: logger.With().Str("component", "jukebox").Logger(),
		phase:  PhaseNotStarted,
	}
}

// Start transitions NotStarted to Running, performs the one-time player
// detection and directory scan, and launches the controller goroutine. It
// always succeeds: detection or scan failure lands the controller in the
// dormant state rather than returning an error. Start after Stop, or a second
// Start, is a no-op.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseNotStarted {
		s.logger.Warn().Str("phase", string(s.phase)).Msg("start ignored")
		return
	}
	s.phase = PhaseRunning

	var player Player
	var hasPlayer bool
	if s.cfg.PlayerBin != "" {
		player, hasPlayer = ResolvePlayer(s.cfg.PlayerBin, s.logger)
	} else {
		player, hasPlayer = DetectPlayer(s.logger)
	}

	playlist := ScanDir(s.cfg.MusicDir, s.logger)

	s.ctrl = newController(playlist, player, hasPlayer, s.store, s.bus, s.logger, s.cfg.PollInterval)
	go s.ctrl.Run()

	s.logger.Info().
		Int("playlist_size", len(playlist)).
		Bool("player_available", hasPlayer).
		Msg("jukebox started")
}

// Stop signals shutdown and blocks until the controller goroutine has exited
// and any child process is terminated. It is idempotent: calling it twice, or
// before Start, is a safe no-op.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.phase != PhaseRunning {
		s.phase = PhaseStopped
		s.mu.Unlock()
		return
	}
	s.phase = PhaseStopped
	ctrl := s.ctrl
	s.mu.Unlock()

	ctrl.Stop()
	<-ctrl.Done()

	s.logger.Info().Msg("jukebox stopped")
}

// UpdateConfig sanitizes and stores the new config, returning the stored
// value. The running loop observes it at the next state-machine boundary,
// never mid-track. Callable at any lifecycle phase.
func (s *Supervisor) UpdateConfig(cfg MusicConfig) MusicConfig {
	stored := s.store.Update(cfg)
	s.bus.Publish(events.EventConfigUpdated, events.Payload{
		"fade_duration_ms":       stored.FadeDurationMS,
		"delay_between_songs_ms": stored.DelayBetweenSongsMS,
		"volume":                 stored.Volume,
	})
	s.logger.Info().
		Int("fade_ms", stored.FadeDurationMS).
		Int("delay_ms", stored.DelayBetweenSongsMS).
		Float64("volume", stored.Volume).
		Msg("music config updated")
	return stored
}

// GetConfig returns the currently stored config.
func (s *Supervisor) GetConfig() MusicConfig {
	return s.store.Get()
}

// SupervisorStatus is the externally visible snapshot.
type SupervisorStatus struct {
	Phase Phase `json:"phase"`
	Status
	Config MusicConfig `json:"config"`
}

// Status returns a snapshot of the supervisor and its controller.
func (s *Supervisor) Status() SupervisorStatus {
	s.mu.Lock()
	phase := s.phase
	ctrl := s.ctrl
	s.mu.Unlock()

	st := SupervisorStatus{
		Phase:  phase,
		Config: s.store.Get(),
	}
	if ctrl != nil {
		st.Status = ctrl.Status()
	} else {
		st.State = StateDormant
	}
	return st
}
