package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ssargent/slippc/pkg/slp"
)

// Settings file names written into a match table directory
const (
	MatchSettingsFile  = "match-settings.jsonl"
	PlayerSettingsFile = "player-settings.jsonl"
	StageSettingsFile  = "settings.json"
)

// MatchSettings is one line of match-settings.jsonl
type MatchSettings struct {
	MatchID       string `json:"match_id"`
	SlpFileName   string `json:"slp_file_name"`
	SlippiVersion string `json:"slippi_version"`
	Timer         uint32 `json:"timer"`
	FrameCount    int    `json:"frame_count"`
	WinnerID      int8   `json:"winner_id"`
	Stage         uint16 `json:"stage"`
	EndType       uint8  `json:"end_type"`
}

// PlayerSettings is one line of player-settings.jsonl
type PlayerSettings struct {
	MatchID     string `json:"match_id"`
	Port        int    `json:"port"`
	SlippiCode  string `json:"slippi_code"`
	PlayerTag   string `json:"player_tag"`
	PlayerType  uint8  `json:"player_type"`
	PlayerIndex int    `json:"player_index"`
	ExtChar     uint8  `json:"ext_char"`
}

// StageSettings is the content of settings.json
type StageSettings struct {
	MatchID string `json:"match_id"`
	Stage   uint16 `json:"stage"`
}

// NewMatchSettings returns the match line for r, decoded from the file sourceName
func NewMatchSettings(r *slp.Replay, sourceName string) MatchSettings {
	return MatchSettings{
		MatchID:       r.StartTime,
		SlpFileName:   sourceName,
		SlippiVersion: r.SlippiVersion(),
		Timer:         r.Timer,
		FrameCount:    r.FrameCount,
		WinnerID:      r.WinnerID,
		Stage:         r.Stage,
		EndType:       r.EndType,
	}
}

// NewPlayerSettings returns one line per occupied port 0-3
func NewPlayerSettings(r *slp.Replay) []PlayerSettings {
	var out []PlayerSettings
	for i := 0; i < 4; i++ {
		p := &r.Players[i]
		if !p.Active() {
			continue
		}
		out = append(out, PlayerSettings{
			MatchID:     r.StartTime,
			Port:        i + 1,
			SlippiCode:  p.TagCode,
			PlayerTag:   p.Tag,
			PlayerType:  uint8(p.Type),
			PlayerIndex: i,
			ExtChar:     p.ExtCharID,
		})
	}
	return out
}

// MatchDir returns the table directory for r under root. Match ids are
// timestamps, so characters that are awkward in paths are replaced.
func MatchDir(root string, r *slp.Replay, sourceName string) string {
	key := r.StartTime
	if key == "" {
		key = strings.TrimSuffix(filepath.Base(sourceName), filepath.Ext(sourceName))
	}
	key = strings.NewReplacer(":", "-", "/", "_", "\\", "_", " ", "_").Replace(key)
	return filepath.Join(root, key)
}

// WriteSettingsJSONL writes match-settings.jsonl, player-settings.jsonl and settings.json into dir
func WriteSettingsJSONL(dir string, r *slp.Replay, sourceName string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	if err := writeLines(filepath.Join(dir, MatchSettingsFile), NewMatchSettings(r, sourceName)); err != nil {
		return err
	}

	players := NewPlayerSettings(r)
	lines := make([]interface{}, len(players))
	for i := range players {
		lines[i] = players[i]
	}
	if err := writeLines(filepath.Join(dir, PlayerSettingsFile), lines...); err != nil {
		return err
	}

	return writeLines(filepath.Join(dir, StageSettingsFile), StageSettings{MatchID: r.StartTime, Stage: r.Stage})
}

func writeLines(path string, values ...interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := enc.Encode(v); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
