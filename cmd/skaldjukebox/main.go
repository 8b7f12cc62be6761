/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/friendsincode/skald_jukebox/internal/config"
	"github.com/friendsincode/skald_jukebox/internal/events"
	"github.com/friendsincode/skald_jukebox/internal/logbuffer"
	"github.com/friendsincode/skald_jukebox/internal/logging"
	"github.com/friendsincode/skald_jukebox/internal/playback"
	"github.com/friendsincode/skald_jukebox/internal/server"
	"github.com/friendsincode/skald_jukebox/internal/telemetry"
)

var (
	logger zerolog.Logger
	cfg    *config.Config
	logBuf *logbuffer.Buffer
)

var rootCmd = &cobra.Command{
	Use:   "skaldjukebox",
	Short: "Skald Jukebox - background music playback supervisor",
	Long:  "Skald Jukebox scans a music directory once at startup, detects an installed command-line audio player, and plays the collection in a loop until the process is asked to stop.",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the jukebox and its HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logBuf = logbuffer.New(cfg.LogBufferSize)
	logger = logging.SetupWithWriter(cfg.Environment, logbuffer.NewWriter(logBuf, nil))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logger.Info().Msg("Skald Jukebox starting")

	tracerProvider, err := telemetry.InitTracer(context.Background(), telemetry.TracerConfig{
		ServiceName:    "skald-jukebox",
		ServiceVersion: "0.0.1-alpha",
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRate:     cfg.TracingSampleRate,
	}, logger)
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown tracer provider")
		}
	}()

	bus := events.NewBus()

	sup := playback.NewSupervisor(playback.SupervisorConfig{
		MusicDir: cfg.MusicDir,
		Initial: playback.MusicConfig{
			FadeDurationMS:      cfg.FadeMS,
			DelayBetweenSongsMS: cfg.DelayMS,
			Volume:              cfg.Volume,
		},
		PlayerBin: cfg.PlayerBin,
	}, bus, logger)

	sup.Start()
	// Stop blocks until the child player process is confirmed gone, so the
	// deferred call is the shutdown guarantee for every exit path below.
	defer sup.Stop()

	srv := server.New(cfg, sup, bus, logBuf, logger)
	httpServer := srv.HTTPServer()

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Metrics are also scraped off the API port; the dedicated listener keeps
	// them reachable when the API is exposed behind an ingress.
	var metricsServer *http.Server
	if cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info().Str("addr", cfg.MetricsBind).Msg("metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down gracefully...")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(timeoutCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown failed")
		}
	}

	sup.Stop()
	logger.Info().Msg("Skald Jukebox stopped")
	return nil
}
