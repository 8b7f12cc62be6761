package playback

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakePlayer writes a shell script standing in for a player binary. Scripts
// ignore their argument vector, so any catalog name works.
func fakePlayer(t *testing.T, script string) Player {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake players require a unix shell")
	}
	path := filepath.Join(t.TempDir(), "fakeplayer")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write fake player: %v", err)
	}
	return Player{Name: "fakeplayer", Path: path}
}

func waitClosed(t *testing.T, ch <-chan struct{}, timeout time.Duration) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestSessionNaturalExit(t *testing.T) {
	player := fakePlayer(t, "exit 0")

	session, err := startSession(player, AudioFile{Path: "/m/a.mp3", Ext: "mp3"}, 0.5, zerolog.Nop())
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	waitClosed(t, session.Done(), 5*time.Second)

	// Terminate after natural exit is a no-op.
	session.Terminate(time.Second)
}

func TestSessionTerminateKillsStubborProcess(t *testing.T) {
	// Trap the interrupt so only SIGKILL can end the process.
	player := fakePlayer(t, "trap '' INT TERM\nsleep 60")

	session, err := startSession(player, AudioFile{Path: "/m/a.mp3", Ext: "mp3"}, 0.5, zerolog.Nop())
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	start := time.Now()
	session.Terminate(200 * time.Millisecond)
	elapsed := time.Since(start)

	select {
	case <-session.Done():
	default:
		t.Fatal("expected process to be gone after Terminate")
	}

	if elapsed > 3*time.Second {
		t.Fatalf("Terminate took %s, expected bounded by grace window plus kill", elapsed)
	}
}

func TestSessionTerminateIdempotent(t *testing.T) {
	player := fakePlayer(t, "sleep 60")

	session, err := startSession(player, AudioFile{Path: "/m/a.mp3", Ext: "mp3"}, 0.5, zerolog.Nop())
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	session.Terminate(100 * time.Millisecond)
	session.Terminate(100 * time.Millisecond)
}

func TestSessionTerminateOnNilSession(t *testing.T) {
	var session *Session
	session.Terminate(time.Second)
}

func TestStartSessionSpawnFailure(t *testing.T) {
	player := Player{Name: "ghost", Path: filepath.Join(t.TempDir(), "missing")}

	if _, err := startSession(player, AudioFile{Path: "/m/a.mp3", Ext: "mp3"}, 0.5, zerolog.Nop()); err == nil {
		t.Fatal("expected spawn failure for missing binary")
	}
}
