/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/skald_jukebox/internal/logbuffer"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.supervisor.Status())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.supervisor.GetConfig())
}

// configUpdateRequest allows partial updates. Absent fields keep their
// current value; present fields are sanitized by the supervisor.
type configUpdateRequest struct {
	FadeDurationMS      *int     `json:"fade_duration_ms"`
	DelayBetweenSongsMS *int     `json:"delay_between_songs_ms"`
	Volume              *float64 `json:"volume"`
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	cfg := s.supervisor.GetConfig()
	if req.FadeDurationMS != nil {
		cfg.FadeDurationMS = *req.FadeDurationMS
	}
	if req.DelayBetweenSongsMS != nil {
		cfg.DelayBetweenSongsMS = *req.DelayBetweenSongsMS
	}
	if req.Volume != nil {
		cfg.Volume = *req.Volume
	}

	stored := s.supervisor.UpdateConfig(cfg)
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.logBuffer == nil {
		writeError(w, http.StatusServiceUnavailable, "log_buffer_unavailable")
		return
	}

	params := logbuffer.QueryParams{
		Level:      r.URL.Query().Get("level"),
		Component:  r.URL.Query().Get("component"),
		Search:     r.URL.Query().Get("search"),
		Descending: true, // newest first
	}

	if since := r.URL.Query().Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			params.Since = t
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			params.Limit = n
		}
	} else {
		params.Limit = 500
	}

	if order := r.URL.Query().Get("order"); order == "asc" {
		params.Descending = false
	}

	entries := s.logBuffer.Query(params)

	writeJSON(w, http.StatusOK, map[string]any{
		"entries":    entries,
		"count":      len(entries),
		"components": s.logBuffer.GetComponents(),
		"stats":      s.logBuffer.Stats(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.evMu.Lock()
	// Newest first, same convention as the log endpoint.
	records := make([]eventRecord, len(s.recent))
	for i, rec := range s.recent {
		records[len(s.recent)-1-i] = rec
	}
	s.evMu.Unlock()

	limit := len(records)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}
	records = records[:limit]

	writeJSON(w, http.StatusOK, map[string]any{
		"events": records,
		"count":  len(records),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
