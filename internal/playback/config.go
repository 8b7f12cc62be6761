/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import "sync"

// MusicConfig holds the hot-swappable playback settings.
type MusicConfig struct {
	// FadeDurationMS is the fade/cutover window in milliseconds, applied as the
	// grace period between graceful and forceful termination when playback is
	// stopped mid-track.
	FadeDurationMS int `json:"fade_duration_ms"`
	// DelayBetweenSongsMS is the silent gap between tracks in milliseconds.
	DelayBetweenSongsMS int `json:"delay_between_songs_ms"`
	// Volume is the playback volume in [0.0, 1.0].
	Volume float64 `json:"volume"`
}

// DefaultMusicConfig returns the stock playback settings.
func DefaultMusicConfig() MusicConfig {
	return MusicConfig{
		FadeDurationMS:      1000,
		DelayBetweenSongsMS: 2000,
		Volume:              0.5,
	}
}

// Sanitized returns a copy with volume clamped into [0.0, 1.0] and durations
// floored at zero.
func (c MusicConfig) Sanitized() MusicConfig {
	if c.FadeDurationMS < 0 {
		c.FadeDurationMS = 0
	}
	if c.DelayBetweenSongsMS < 0 {
		c.DelayBetweenSongsMS = 0
	}
	if c.Volume < 0 {
		c.Volume = 0
	}
	if c.Volume > 1 {
		c.Volume = 1
	}
	return c
}

// ConfigStore holds the current MusicConfig behind a lock. The controller reads
// a snapshot at each state-machine boundary; callers may update at any time.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg MusicConfig
}

// NewConfigStore creates a store seeded with the sanitized initial config.
func NewConfigStore(initial MusicConfig) *ConfigStore {
	return &ConfigStore{cfg: initial.Sanitized()}
}

// Get returns a snapshot of the current config.
func (s *ConfigStore) Get() MusicConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update sanitizes and stores the new config, returning the value actually stored.
func (s *ConfigStore) Update(cfg MusicConfig) MusicConfig {
	sanitized := cfg.Sanitized()
	s.mu.Lock()
	s.cfg = sanitized
	s.mu.Unlock()
	return sanitized
}
