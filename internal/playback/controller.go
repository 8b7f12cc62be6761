/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_jukebox/internal/events"
	"github.com/friendsincode/skald_jukebox/internal/telemetry"
)

// State enumerates the playback controller states.
type State string

const (
	StateDormant      State = "dormant"
	StateSelecting    State = "selecting"
	StatePlaying      State = "playing"
	StateDelaying     State = "delaying"
	StateShuttingDown State = "shutting_down"
)

// StateNames lists all controller states, for metrics and tests.
func StateNames() []string {
	return []string{
		string(StateDormant),
		string(StateSelecting),
		string(StatePlaying),
		string(StateDelaying),
		string(StateShuttingDown),
	}
}

// validTransitions defines the allowed state transitions. Selecting permits a
// self-transition for the spawn-failure skip path.
var validTransitions = map[State][]State{
	StateDormant:      {StateSelecting, StateShuttingDown},
	StateSelecting:    {StateSelecting, StatePlaying, StateShuttingDown},
	StatePlaying:      {StateDelaying, StateShuttingDown},
	StateDelaying:     {StateSelecting, StateShuttingDown},
	StateShuttingDown: {},
}

func isValidTransition(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// defaultPollInterval spaces respawn attempts after a spawn failure so a
// broken player binary cannot hot-loop the controller.
const defaultPollInterval = 100 * time.Millisecond

// Status is a point-in-time snapshot of the controller.
type Status struct {
	State           State  `json:"state"`
	Player          string `json:"player,omitempty"`
	PlaylistSize    int    `json:"playlist_size"`
	CurrentTrack    string `json:"current_track,omitempty"`
	CurrentSession  string `json:"current_session,omitempty"`
	TracksStarted   int    `json:"tracks_started"`
	TracksCompleted int    `json:"tracks_completed"`
	TracksSkipped   int    `json:"tracks_skipped"`
}

// Controller runs the playback loop: select next track, play it to process
// exit, tear the session down, wait out the configured delay, repeat. Sessions
// are strictly sequential; at most one child process is alive at any instant.
type Controller struct {
	playlist     Playlist
	player       Player
	hasPlayer    bool
	store        *ConfigStore
	bus          *events.Bus
	logger       zerolog.Logger
	pollInterval time.Duration

	stop chan struct{}
	done chan struct{}

	mu              sync.Mutex
	state           State
	current         *Session
	tracksStarted   int
	tracksCompleted int
	tracksSkipped   int
}

func newController(playlist Playlist, player Player, hasPlayer bool, store *ConfigStore, bus *events.Bus, logger zerolog.Logger, pollInterval time.Duration) *Controller {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Controller{
		playlist:     playlist,
		player:       player,
		hasPlayer:    hasPlayer,
		store:        store,
		bus:          bus,
		logger:       logger.With().Str("component", "playback_controller").Logger(),
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		state:        StateDormant,
	}
}

// Run executes the playback loop until the stop channel is closed. It never
// returns an error: every failure degrades to skip or dormant.
func (c *Controller) Run() {
	defer close(c.done)
	telemetry.SetControllerState(string(StateDormant), StateNames())

	if len(c.playlist) == 0 || !c.hasPlayer {
		reason := "empty playlist"
		if !c.hasPlayer {
			reason = "no player detected"
		}
		c.logger.Warn().Str("reason", reason).Msg("playback dormant")
		c.bus.Publish(events.EventDormant, events.Payload{"reason": reason})
		<-c.stop
		c.transition(StateShuttingDown)
		return
	}

	index := -1
	for {
		select {
		case <-c.stop:
			c.transition(StateShuttingDown)
			return
		default:
		}

		c.transition(StateSelecting)
		index = (index + 1) % len(c.playlist)
		file := c.playlist[index]
		cfg := c.store.Get()

		session, err := startSession(c.player, file, cfg.Volume, c.logger)
		if err != nil {
			telemetry.SpawnFailures.WithLabelValues(c.player.Name).Inc()
			c.noteSkipped()
			c.logger.Warn().Err(err).Str("file", file.Path).Msg("failed to spawn player, skipping track")
			c.bus.Publish(events.EventTrackSkipped, events.Payload{
				"file":  file.Path,
				"index": index,
				"error": err.Error(),
			})
			// One poll tick between attempts so a broken player cannot hot-loop.
			if !c.sleep(c.pollInterval) {
				c.transition(StateShuttingDown)
				return
			}
			continue
		}

		c.setCurrent(session)
		c.transition(StatePlaying)
		c.noteStarted()
		telemetry.TracksStarted.WithLabelValues(c.player.Name).Inc()
		c.bus.Publish(events.EventTrackStarted, events.Payload{
			"session_id": session.ID,
			"file":       file.Path,
			"index":      index,
			"player":     c.player.Name,
			"volume":     cfg.Volume,
		})

		select {
		case <-session.Done():
			// Natural exit is the end-of-track signal; non-zero exit status is
			// treated identically to normal completion.
			c.noteCompleted()
			telemetry.TracksCompleted.Inc()
			c.bus.Publish(events.EventTrackEnded, events.Payload{
				"session_id": session.ID,
				"file":       file.Path,
				"index":      index,
			})
		case <-c.stop:
			c.transition(StateShuttingDown)
			session.Terminate(fadeGrace(cfg))
			c.setCurrent(nil)
			c.bus.Publish(events.EventStopped, events.Payload{
				"session_id": session.ID,
				"file":       file.Path,
			})
			return
		}

		session.Terminate(0) // no-op after natural exit
		c.setCurrent(nil)

		c.transition(StateDelaying)
		cfg = c.store.Get() // fresh snapshot at the delay boundary
		if !c.sleep(time.Duration(cfg.DelayBetweenSongsMS) * time.Millisecond) {
			c.transition(StateShuttingDown)
			return
		}
	}
}

// Stop signals the loop to shut down. The caller waits on Done.
func (c *Controller) Stop() {
	close(c.stop)
}

// Done is closed once the loop has fully exited and any session is torn down.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Status returns a snapshot safe to call concurrently with the running loop.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:           c.state,
		PlaylistSize:    len(c.playlist),
		TracksStarted:   c.tracksStarted,
		TracksCompleted: c.tracksCompleted,
		TracksSkipped:   c.tracksSkipped,
	}
	if c.hasPlayer {
		st.Player = c.player.Name
	}
	if c.current != nil {
		st.CurrentTrack = c.current.File.Path
		st.CurrentSession = c.current.ID
	}
	return st
}

// sleep waits exactly d or until the stop signal fires, whichever comes
// first. Returns false if stop was observed.
func (c *Controller) sleep(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-c.stop:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-c.stop:
		return false
	case <-timer.C:
		return true
	}
}

func (c *Controller) transition(to State) {
	c.mu.Lock()
	from := c.state
	if from == to {
		c.mu.Unlock()
		return
	}
	if !isValidTransition(from, to) {
		c.mu.Unlock()
		c.logger.Error().Str("from", string(from)).Str("to", string(to)).Msg("invalid state transition")
		return
	}
	c.state = to
	c.mu.Unlock()

	telemetry.SetControllerState(string(to), StateNames())
	c.logger.Debug().Str("from", string(from)).Str("to", string(to)).Msg("state transition")
}

func (c *Controller) setCurrent(s *Session) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}

func (c *Controller) noteStarted() {
	c.mu.Lock()
	c.tracksStarted++
	c.mu.Unlock()
}

func (c *Controller) noteCompleted() {
	c.mu.Lock()
	c.tracksCompleted++
	c.mu.Unlock()
}

func (c *Controller) noteSkipped() {
	c.mu.Lock()
	c.tracksSkipped++
	c.mu.Unlock()
}

// fadeGrace derives the termination grace window from the fade duration,
// floored so the player gets a chance to exit on interrupt and capped at the
// kill timeout.
func fadeGrace(cfg MusicConfig) time.Duration {
	grace := time.Duration(cfg.FadeDurationMS) * time.Millisecond
	if grace < 100*time.Millisecond {
		grace = 100 * time.Millisecond
	}
	if grace > killTimeout {
		grace = killTimeout
	}
	return grace
}
