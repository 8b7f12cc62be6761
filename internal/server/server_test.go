package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/skald_jukebox/internal/config"
	"github.com/friendsincode/skald_jukebox/internal/events"
	"github.com/friendsincode/skald_jukebox/internal/logbuffer"
	"github.com/friendsincode/skald_jukebox/internal/playback"
)

func testServer(t *testing.T) (*Server, *playback.Supervisor) {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		HTTPBind:    "127.0.0.1",
		HTTPPort:    0,
	}
	bus := events.NewBus()
	sup := playback.NewSupervisor(playback.SupervisorConfig{
		MusicDir:  t.TempDir(),
		Initial:   playback.DefaultMusicConfig(),
		PlayerBin: "/nonexistent/player",
	}, bus, zerolog.Nop())

	logBuf := logbuffer.New(100)
	return New(cfg, sup, bus, logBuf, zerolog.Nop()), sup
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestReadyzTracksSupervisorPhase(t *testing.T) {
	srv, sup := testServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before start = %d, want 503", rec.Code)
	}

	sup.Start()
	defer sup.Stop()

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz after start = %d, want 200", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, sup := testServer(t)
	sup.Start()
	defer sup.Stop()

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jukebox/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var st playback.SupervisorStatus
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Phase != playback.PhaseRunning {
		t.Fatalf("phase = %s, want running", st.Phase)
	}
	if st.Config.Volume != 0.5 {
		t.Fatalf("unexpected config in status: %+v", st.Config)
	}
}

func TestConfigPartialUpdate(t *testing.T) {
	srv, sup := testServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/jukebox/config",
		strings.NewReader(`{"volume": 0.8}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("config update = %d: %s", rec.Code, rec.Body.String())
	}

	var got playback.MusicConfig
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if got.Volume != 0.8 {
		t.Fatalf("volume = %v, want 0.8", got.Volume)
	}
	// Untouched fields keep their defaults.
	if got.FadeDurationMS != 1000 || got.DelayBetweenSongsMS != 2000 {
		t.Fatalf("partial update clobbered other fields: %+v", got)
	}
	if cfg := sup.GetConfig(); cfg != got {
		t.Fatalf("stored config %+v != response %+v", cfg, got)
	}
}

func TestConfigUpdateSanitizes(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/jukebox/config",
		strings.NewReader(`{"volume": 2.5, "fade_duration_ms": -10}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var got playback.MusicConfig
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if got.Volume != 1.0 || got.FadeDurationMS != 0 {
		t.Fatalf("values not sanitized: %+v", got)
	}
}

func TestConfigUpdateRejectsBadJSON(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/jukebox/config",
		strings.NewReader(`{volume:`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json = %d, want 400", rec.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	srv.logBuffer.Add(logbuffer.LogEntry{
		Timestamp: time.Now(),
		Level:     "info",
		Message:   "track started",
		Component: "playback_controller",
	})
	srv.logBuffer.Add(logbuffer.LogEntry{
		Timestamp: time.Now(),
		Level:     "warn",
		Message:   "failed to spawn player",
		Component: "playback_controller",
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/logs?level=warn", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("logs = %d", rec.Code)
	}

	var body struct {
		Entries []logbuffer.LogEntry `json:"entries"`
		Count   int                  `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
	if body.Count != 1 || len(body.Entries) != 1 {
		t.Fatalf("expected 1 warn entry, got %d", body.Count)
	}
	if body.Entries[0].Message != "failed to spawn player" {
		t.Fatalf("unexpected entry: %+v", body.Entries[0])
	}
}

func TestEventsFeed(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/jukebox/config",
		strings.NewReader(`{"volume": 0.3}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("config update = %d", rec.Code)
	}

	// The feed is filled by a collector goroutine; poll briefly.
	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("events = %d", rec.Code)
		}

		var body struct {
			Events []eventRecord `json:"events"`
			Count  int           `json:"count"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode events: %v", err)
		}
		if body.Count >= 1 {
			if body.Events[0].Type != "playback.config_updated" {
				t.Fatalf("unexpected event: %+v", body.Events[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("config event never reached the feed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestMetricsMounted(t *testing.T) {
	srv, _ := testServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatal("expected default Go collector output")
	}
}
