/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
)

// Player identifies one resolved external player executable.
type Player struct {
	Name string `json:"name"` // catalog name, e.g. "ffplay"
	Path string `json:"path"` // resolved executable path
}

// playerCatalog lists the candidate binaries in fixed priority order.
// The first one resolvable on PATH wins; the result is cached for the
// supervisor's lifetime and never re-probed.
var playerCatalog = []string{"ffplay", "mpg123", "play", "aplay", "paplay"}

// DetectPlayer probes the catalog in priority order and returns the first
// resolvable candidate.
func DetectPlayer(logger zerolog.Logger) (Player, bool) {
	for _, name := range playerCatalog {
		path, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		logger.Info().Str("player", name).Str("path", path).Msg("audio player detected")
		return Player{Name: name, Path: path}, true
	}
	logger.Warn().Msg("no supported audio player found on PATH")
	return Player{}, false
}

// ResolvePlayer resolves an operator-pinned binary, bypassing the catalog probe.
func ResolvePlayer(bin string, logger zerolog.Logger) (Player, bool) {
	path, err := exec.LookPath(bin)
	if err != nil {
		logger.Warn().Err(err).Str("player", bin).Msg("configured player not resolvable")
		return Player{}, false
	}
	name := filepath.Base(bin)
	logger.Info().Str("player", name).Str("path", path).Msg("using configured audio player")
	return Player{Name: name, Path: path}, true
}

// Args builds the player's argument vector for one file at the given volume.
// Players without a volume flag ignore the configured volume.
func (p Player) Args(file string, volume float64) []string {
	switch p.Name {
	case "ffplay":
		// ffplay volume range is 0..100
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet",
			"-volume", strconv.Itoa(int(volume * 100)), file}
	case "mpg123":
		// mpg123 -f scales output samples, full scale is 32768
		return []string{"-q", "-f", strconv.Itoa(int(volume * 32768)), file}
	case "play":
		// sox's play takes a trailing vol effect
		return []string{"-q", file, "vol", strconv.FormatFloat(volume, 'f', 2, 64)}
	case "paplay":
		// paplay volume range is 0..65536
		return []string{fmt.Sprintf("--volume=%d", int(volume*65536)), file}
	case "aplay":
		// aplay has no volume flag
		return []string{"-q", file}
	default:
		// Pinned binary outside the catalog: pass only the file.
		return []string{file}
	}
}
