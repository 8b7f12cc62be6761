/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	// Jukebox configuration
	MusicDir  string // Directory scanned once at startup for audio files
	PlayerBin string // Optional player override; bypasses catalog detection when set
	FadeMS    int    // Initial fade/cutover window in milliseconds
	DelayMS   int    // Initial delay between songs in milliseconds
	Volume    float64

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64

	LogBufferSize int
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("SKALD_ENV", "development"),
		HTTPBind:    getEnv("SKALD_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("SKALD_HTTP_PORT", 8080),
		MetricsBind: getEnv("SKALD_METRICS_BIND", "127.0.0.1:9000"),

		MusicDir:  getEnv("SKALD_MUSIC_DIR", "./music"),
		PlayerBin: getEnv("SKALD_PLAYER_BIN", ""),
		FadeMS:    getEnvInt("SKALD_FADE_MS", 1000),
		DelayMS:   getEnvInt("SKALD_DELAY_MS", 2000),
		Volume:    getEnvFloat("SKALD_VOLUME", 0.5),

		TracingEnabled:    getEnvBool("SKALD_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("SKALD_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("SKALD_TRACING_SAMPLE_RATE", 1.0),

		LogBufferSize: getEnvInt("SKALD_LOG_BUFFER_SIZE", 5000),
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("SKALD_HTTP_PORT %d out of range", cfg.HTTPPort)
	}

	if cfg.MusicDir == "" {
		return nil, fmt.Errorf("SKALD_MUSIC_DIR must not be empty")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
