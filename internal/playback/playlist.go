/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// AudioFile is one playable playlist entry.
type AudioFile struct {
	Path string `json:"path"` // absolute path
	Ext  string `json:"ext"`  // lowercase extension without the dot
}

// Playlist is an ordered, immutable sequence of audio files built once at start.
type Playlist []AudioFile

// supportedExtensions is the fixed set of playable file extensions.
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
}

// ScanDir lists the directory's immediate entries and returns the playable ones
// ordered lexicographically by filename. A missing or unreadable directory
// yields an empty playlist, not an error.
func ScanDir(dir string, logger zerolog.Logger) Playlist {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn().Err(err).Str("dir", dir).Msg("music directory not readable, playlist is empty")
		return nil
	}

	var playlist Playlist
	// os.ReadDir returns entries sorted by filename, which fixes the cycle order.
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if !supportedExtensions[ext] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		playlist = append(playlist, AudioFile{
			Path: path,
			Ext:  strings.TrimPrefix(ext, "."),
		})
	}

	if len(playlist) == 0 {
		logger.Warn().Str("dir", dir).Msg("no playable audio files found")
	} else {
		logger.Info().Str("dir", dir).Int("count", len(playlist)).Msg("playlist built")
	}

	return playlist
}
