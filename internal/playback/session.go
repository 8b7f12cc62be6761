/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_jukebox/internal/telemetry"
)

// killTimeout caps how long Terminate waits after the grace window before
// giving up on SIGKILL delivery mattering; the final wait on the exited
// process is unconditional.
const killTimeout = 5 * time.Second

// Session owns exactly one spawned player process for one playlist entry.
// It is exclusively owned by the controller; no two sessions are ever live
// at the same time.
type Session struct {
	ID        string
	File      AudioFile
	Player    Player
	StartedAt time.Time

	logger zerolog.Logger
	cmd    *exec.Cmd
	done   chan struct{} // closed when the process has exited
}

// startSession spawns the player process for the file at the given volume.
func startSession(player Player, file AudioFile, volume float64, logger zerolog.Logger) (*Session, error) {
	cmd := exec.Command(player.Path, player.Args(file.Path, volume)...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.NewString(),
		File:      file,
		Player:    player,
		StartedAt: time.Now(),
		logger:    logger,
		cmd:       cmd,
		done:      make(chan struct{}),
	}

	// Single goroutine to wait for process completion. Exit status is not
	// inspected beyond logging: a crashed player is treated like a finished
	// track.
	go func() {
		err := cmd.Wait()
		close(s.done)
		if err != nil {
			s.logger.Debug().Err(err).Str("session_id", s.ID).Str("file", file.Path).Msg("player process exited")
		}
	}()

	s.logger.Debug().
		Str("session_id", s.ID).
		Str("player", player.Name).
		Str("file", file.Path).
		Float64("volume", volume).
		Msg("playback session started")

	return s, nil
}

// Done is closed once the player process has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Terminate requests process termination and waits for exit. The grace window
// separates the interrupt from the SIGKILL escalation. Terminate is idempotent:
// calling it on a nil, never-spawned, or already-exited session is a no-op.
func (s *Session) Terminate(grace time.Duration) {
	if s == nil || s.cmd == nil || s.done == nil {
		return
	}

	select {
	case <-s.done:
		return
	default:
	}

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
	}

	if grace < 0 {
		grace = 0
	}
	if grace > killTimeout {
		grace = killTimeout
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-s.done:
		// Process exited within the fade window.
	case <-timer.C:
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-s.done
		telemetry.SessionsKilled.Inc()
		s.logger.Warn().Str("session_id", s.ID).Str("file", s.File.Path).Msg("player process force-killed")
	}
}
