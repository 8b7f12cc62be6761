package playback

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_jukebox/internal/events"
)

func musicDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestSupervisorFullCycle(t *testing.T) {
	player := fakePlayer(t, "exit 0")
	dir := musicDir(t, "a.mp3", "b.mp3")

	bus := events.NewBus()
	started := bus.Subscribe(events.EventTrackStarted)

	sup := NewSupervisor(SupervisorConfig{
		MusicDir:     dir,
		Initial:      MusicConfig{FadeDurationMS: 100, DelayBetweenSongsMS: 0, Volume: 0.5},
		PlayerBin:    player.Path,
		PollInterval: 5 * time.Millisecond,
	}, bus, zerolog.Nop())

	if st := sup.Status(); st.Phase != PhaseNotStarted || st.State != StateDormant {
		t.Fatalf("unexpected initial status: %+v", st)
	}

	sup.Start()

	select {
	case <-started:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for first track")
	}

	if st := sup.Status(); st.Phase != PhaseRunning || st.PlaylistSize != 2 {
		t.Fatalf("unexpected running status: %+v", st)
	}

	sup.Stop()

	if st := sup.Status(); st.Phase != PhaseStopped || st.CurrentSession != "" {
		t.Fatalf("unexpected stopped status: %+v", st)
	}
}

func TestSupervisorDormantWithoutPlayer(t *testing.T) {
	bus := events.NewBus()
	dormant := bus.Subscribe(events.EventDormant)

	sup := NewSupervisor(SupervisorConfig{
		MusicDir:     t.TempDir(),
		Initial:      DefaultMusicConfig(),
		PlayerBin:    filepath.Join(t.TempDir(), "no-such-player"),
		PollInterval: 5 * time.Millisecond,
	}, bus, zerolog.Nop())

	sup.Start()

	select {
	case <-dormant:
	case <-time.After(5 * time.Second):
		t.Fatal("expected dormant event")
	}

	// A dormant jukebox still stops promptly.
	start := time.Now()
	sup.Stop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("dormant stop took %s", elapsed)
	}
}

func TestSupervisorStopIdempotent(t *testing.T) {
	player := fakePlayer(t, "exit 0")
	sup := NewSupervisor(SupervisorConfig{
		MusicDir:     musicDir(t, "a.mp3"),
		Initial:      DefaultMusicConfig(),
		PlayerBin:    player.Path,
		PollInterval: 5 * time.Millisecond,
	}, events.NewBus(), zerolog.Nop())

	sup.Start()
	sup.Stop()
	sup.Stop()

	if st := sup.Status(); st.Phase != PhaseStopped {
		t.Fatalf("expected stopped, got %s", st.Phase)
	}
}

func TestSupervisorStopBeforeStart(t *testing.T) {
	sup := NewSupervisor(SupervisorConfig{
		MusicDir: t.TempDir(),
		Initial:  DefaultMusicConfig(),
	}, events.NewBus(), zerolog.Nop())

	sup.Stop()

	if st := sup.Status(); st.Phase != PhaseStopped {
		t.Fatalf("expected stopped, got %s", st.Phase)
	}

	// Start after Stop must not launch anything.
	sup.Start()
	if st := sup.Status(); st.Phase != PhaseStopped || st.State != StateDormant {
		t.Fatalf("start after stop should be a no-op: %+v", st)
	}
}

func TestSupervisorUpdateConfigClamps(t *testing.T) {
	bus := events.NewBus()
	updated := bus.Subscribe(events.EventConfigUpdated)

	sup := NewSupervisor(SupervisorConfig{
		MusicDir: t.TempDir(),
		Initial:  DefaultMusicConfig(),
	}, bus, zerolog.Nop())

	got := sup.UpdateConfig(MusicConfig{FadeDurationMS: 500, DelayBetweenSongsMS: 250, Volume: 1.7})
	if got.Volume != 1.0 {
		t.Fatalf("volume not clamped: %v", got.Volume)
	}
	if got.FadeDurationMS != 500 || got.DelayBetweenSongsMS != 250 {
		t.Fatalf("durations mangled: %+v", got)
	}
	if cfg := sup.GetConfig(); cfg != got {
		t.Fatalf("GetConfig = %+v, want %+v", cfg, got)
	}

	select {
	case payload := <-updated:
		if payload["volume"].(float64) != 1.0 {
			t.Fatalf("event carries unclamped volume: %v", payload["volume"])
		}
	case <-time.After(time.Second):
		t.Fatal("expected config updated event")
	}

	got = sup.UpdateConfig(MusicConfig{FadeDurationMS: -1, DelayBetweenSongsMS: -1, Volume: -0.3})
	if got.Volume != 0.0 || got.FadeDurationMS != 0 || got.DelayBetweenSongsMS != 0 {
		t.Fatalf("negative values not clamped: %+v", got)
	}
}
