// Package analysis derives per-player match statistics from a decoded replay.
package analysis

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/ssargent/slippc/pkg/slp"
)

// L-cancel status values of the post-frame update
const (
	lCancelSuccess uint8 = 1
	lCancelFailure uint8 = 2
)

// Analyzer turns a replay into an Analysis
type Analyzer interface {
	Analyze(r *slp.Replay) *Analysis
}

// Analysis is the result of analyzing one replay
type Analysis struct {
	Success       bool          `json:"success"`
	MatchID       string        `json:"match_id"`
	SlippiVersion string        `json:"slippi_version"`
	Stage         uint16        `json:"stage"`
	FrameCount    int           `json:"frame_count"`
	WinnerID      int8          `json:"winner_id"`
	EndType       uint8         `json:"end_type"`
	Incomplete    bool          `json:"incomplete"`
	Players       []PlayerStats `json:"players"`
}

// PlayerStats summarizes one port
type PlayerStats struct {
	Port           int     `json:"port"`
	Tag            string  `json:"tag"`
	TagCode        string  `json:"tag_code"`
	ExtChar        uint8   `json:"ext_char"`
	StartStocks    uint8   `json:"start_stocks"`
	EndStocks      uint8   `json:"end_stocks"`
	Deaths         int     `json:"deaths"`
	DamageTaken    float32 `json:"damage_taken"`
	DamageDealt    float32 `json:"damage_dealt"`
	EndPercent     float32 `json:"end_percent"`
	LCancelHit     int     `json:"l_cancel_hit"`
	LCancelMiss    int     `json:"l_cancel_miss"`
	AirborneFrames int     `json:"airborne_frames"`
	HitstunFrames  int     `json:"hitstun_frames"`
	ActionChanges  int     `json:"action_changes"`
}

// LCancelRate is the share of successful L-cancels, or 0 with none attempted
func (p PlayerStats) LCancelRate() float64 {
	n := p.LCancelHit + p.LCancelMiss
	if n == 0 {
		return 0
	}
	return float64(p.LCancelHit) / float64(n)
}

// Basic computes stock, damage and technique counters from post-frame state
type Basic struct{}

// Analyze never fails outright; Success is false when the replay holds no player frames
func (Basic) Analyze(r *slp.Replay) *Analysis {
	a := &Analysis{
		MatchID:       r.StartTime,
		SlippiVersion: r.SlippiVersion(),
		Stage:         r.Stage,
		FrameCount:    r.FrameCount,
		WinnerID:      r.WinnerID,
		EndType:       r.EndType,
		Incomplete:    r.Incomplete,
	}

	var byPort [4]*PlayerStats
	for i := 0; i < 4; i++ {
		p := &r.Players[i]
		if !p.Active() {
			continue
		}
		a.Players = append(a.Players, PlayerStats{
			Port:        i + 1,
			Tag:         p.Tag,
			TagCode:     p.TagCode,
			ExtChar:     p.ExtCharID,
			StartStocks: p.StartStocks,
		})
	}
	for i := range a.Players {
		byPort[a.Players[i].Port-1] = &a.Players[i]
	}

	for i := 0; i < 4; i++ {
		if s := byPort[i]; s != nil {
			collect(s, r.Players[i].Frames, i, byPort)
		}
	}

	a.Success = len(a.Players) > 0 && r.FrameCount > 0
	return a
}

func collect(s *PlayerStats, frames []slp.PlayerFrame, port int, byPort [4]*PlayerStats) {
	for i := range frames {
		f := &frames[i]
		switch f.LCancel {
		case lCancelSuccess:
			s.LCancelHit++
		case lCancelFailure:
			s.LCancelMiss++
		}
		if f.Airborne {
			s.AirborneFrames++
		}
		if f.Hitstun > 0 {
			s.HitstunFrames++
		}
		if i == 0 {
			continue
		}

		prev := &frames[i-1]
		if f.ActionPost != prev.ActionPost {
			s.ActionChanges++
		}
		if f.Stocks < prev.Stocks {
			s.Deaths++
		}
		// percent resets on a new stock, so only increases count as damage
		if d := f.PercentPost - prev.PercentPost; d > 0 {
			s.DamageTaken += d
			if by := int(f.HurtBy); by < 4 && by != port && byPort[by] != nil {
				byPort[by].DamageDealt += d
			}
		}
	}
	if n := len(frames); n > 0 {
		s.EndStocks = frames[n-1].Stocks
		s.EndPercent = frames[n-1].PercentPost
	}
}

// JSON returns the indented JSON form of the analysis
func (a *Analysis) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}
	return b, nil
}

// Save writes the JSON form to path, or to standard output for "-"
func (a *Analysis) Save(path string) error {
	b, err := a.JSON()
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(b)
		return err
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write analysis: %w", err)
	}
	return nil
}
