// Package export writes decoded replays as a JSON document, JSON Lines settings,
// Parquet frame tables and a SQLite settings database.
package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/ssargent/slippc/pkg/slp"
)

// StdoutPath is the output path that selects standard output
const StdoutPath = "-"

// FrameRange restricts exported frames to From..To inclusive
type FrameRange struct {
	From int32
	To   int32
}

func (fr *FrameRange) contains(frame int32) bool {
	return fr == nil || (frame >= fr.From && frame <= fr.To)
}

// DocumentOptions controls the JSON document
type DocumentOptions struct {
	// Full writes every field on every frame instead of only the fields that changed
	Full  bool
	Range *FrameRange
}

// Settings is the match header of the JSON document
type Settings struct {
	MatchID        string  `json:"match_id"`
	SlippiVersion  string  `json:"slippi_version"`
	Stage          uint16  `json:"stage"`
	Timer          uint32  `json:"timer"`
	WinnerID       int8    `json:"winner_id"`
	EndType        uint8   `json:"end_type"`
	LRASInitiator  int8    `json:"lras_initiator"`
	Placements     [4]int8 `json:"placements"`
	FirstFrame     int32   `json:"first_frame"`
	LastFrame      int32   `json:"last_frame"`
	FrameCount     int     `json:"frame_count"`
	RollbackFrames int     `json:"rollback_frames"`
	Seed           uint32  `json:"seed"`
	Teams          bool    `json:"teams"`
	PAL            bool    `json:"pal"`
	FrozenStadium  bool    `json:"frozen_stadium"`
	GameNumber     uint32  `json:"game_number"`
	PlayedOn       string  `json:"played_on,omitempty"`
	ConsoleNick    string  `json:"console_nick,omitempty"`
	Incomplete     bool    `json:"incomplete"`
}

// NewSettings returns the document header for r
func NewSettings(r *slp.Replay) Settings {
	return Settings{
		MatchID:        r.StartTime,
		SlippiVersion:  r.SlippiVersion(),
		Stage:          r.Stage,
		Timer:          r.Timer,
		WinnerID:       r.WinnerID,
		EndType:        r.EndType,
		LRASInitiator:  r.LRASInitiator,
		Placements:     r.Placements,
		FirstFrame:     r.FirstFrame,
		LastFrame:      r.LastFrame,
		FrameCount:     r.FrameCount,
		RollbackFrames: r.RollbackFrames,
		Seed:           r.Seed,
		Teams:          r.Teams,
		PAL:            r.PAL,
		FrozenStadium:  r.FrozenStadium,
		GameNumber:     r.GameNumber,
		PlayedOn:       r.Metadata.PlayedOn,
		ConsoleNick:    r.Metadata.ConsoleNick,
		Incomplete:     r.Incomplete,
	}
}

// PlayerHeader describes one player record of the JSON document
type PlayerHeader struct {
	PlayerIndex int    `json:"player_index"`
	Port        int    `json:"port"`
	Type        string `json:"type"`
	ExtChar     uint8  `json:"ext_char"`
	StartStocks uint8  `json:"start_stocks"`
	Costume     uint8  `json:"costume"`
	TeamID      uint8  `json:"team_id"`
	CPULevel    uint8  `json:"cpu_level"`
	Tag         string `json:"tag"`
	TagCode     string `json:"tag_code"`
	Nametag     string `json:"nametag"`
	UID         string `json:"uid,omitempty"`
}

func newPlayerHeader(i int, p *slp.PlayerSlot) PlayerHeader {
	return PlayerHeader{
		PlayerIndex: i,
		Port:        int(p.Port) + 1,
		Type:        p.Type.String(),
		ExtChar:     p.ExtCharID,
		StartStocks: p.StartStocks,
		Costume:     p.Costume,
		TeamID:      p.TeamID,
		CPULevel:    p.CPULevel,
		Tag:         p.Tag,
		TagCode:     p.TagCode,
		Nametag:     p.Nametag,
		UID:         p.UID,
	}
}

// ItemHeader describes one item record of the JSON document
type ItemHeader struct {
	SpawnID uint32 `json:"spawn_id"`
	Type    uint16 `json:"type"`
}

type platformEntry struct {
	Frame       int32   `json:"frame"`
	LeftHeight  float32 `json:"left_height"`
	RightHeight float32 `json:"right_height"`
}

// docWriter holds the first write error so the document can be emitted without checks at every step
type docWriter struct {
	w   *bufio.Writer
	err error
}

func (d *docWriter) raw(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.w.WriteString(s)
}

func (d *docWriter) value(v interface{}) {
	if d.err != nil {
		return
	}
	if f, ok := v.(float32); ok && (math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)) {
		d.raw("null")
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		d.err = fmt.Errorf("failed to encode value: %w", err)
		return
	}
	_, d.err = d.w.Write(b)
}

// same compares two column values, treating NaN as equal to itself
func same(a, b interface{}) bool {
	if fa, ok := a.(float32); ok {
		fb, ok := b.(float32)
		return ok && (fa == fb || (math.IsNaN(float64(fa)) && math.IsNaN(float64(fb))))
	}
	return a == b
}

func writeFrames[T any](d *docWriter, frames []T, cols []column[T], frameOf func(int, *T) int32, opts DocumentOptions) {
	var prev *T
	n := 0
	for i := range frames {
		f := &frames[i]
		frame := frameOf(i, f)
		if !opts.Range.contains(frame) {
			continue
		}
		if n > 0 {
			d.raw(",")
		}
		n++

		d.raw(`{"frame":`)
		d.value(frame)
		for _, c := range cols {
			v := c.get(f)
			if !opts.Full && prev != nil && same(c.get(prev), v) {
				continue
			}
			d.raw(`,"` + c.name + `":`)
			d.value(v)
		}
		d.raw("}")
		prev = f
	}
}

// WriteDocument writes r as a JSON document: settings, then one record per
// active player and one per live item, each with its frames
func WriteDocument(w io.Writer, r *slp.Replay, opts DocumentOptions) error {
	bw := bufio.NewWriter(w)
	d := &docWriter{w: bw}

	d.raw(`{"settings":`)
	d.value(NewSettings(r))

	d.raw(`,"players":[`)
	for n, i := range r.ActivePorts() {
		if n > 0 {
			d.raw(",")
		}
		p := &r.Players[i]
		d.raw(`{"player":`)
		d.value(newPlayerHeader(i, p))
		d.raw(`,"frames":[`)
		writeFrames(d, p.Frames, playerColumns, func(idx int, _ *slp.PlayerFrame) int32 {
			return r.FirstFrame + int32(idx)
		}, opts)
		d.raw("]}")
	}

	d.raw(`],"items":[`)
	n := 0
	for _, it := range r.Items.Live() {
		if opts.Range != nil && !itemOverlaps(it, opts.Range) {
			continue
		}
		if n > 0 {
			d.raw(",")
		}
		n++
		d.raw(`{"item":`)
		d.value(ItemHeader{SpawnID: it.SpawnID, Type: it.Type})
		d.raw(`,"frames":[`)
		writeFrames(d, it.Frames, itemColumns, func(_ int, f *slp.ItemFrame) int32 {
			return f.Frame
		}, opts)
		d.raw("]}")
	}

	platforms := make([]platformEntry, 0, len(r.PlatformFrames))
	for _, pf := range r.PlatformFrames {
		if opts.Range.contains(pf.Frame) {
			platforms = append(platforms, platformEntry(pf))
		}
	}
	d.raw(`],"platforms":`)
	d.value(platforms)
	d.raw("}\n")

	if d.err != nil {
		return d.err
	}
	return bw.Flush()
}

func itemOverlaps(it *slp.ItemSlot, fr *FrameRange) bool {
	for i := range it.Frames {
		if fr.contains(it.Frames[i].Frame) {
			return true
		}
	}
	return false
}

// WriteDocumentFile writes the JSON document to path. StdoutPath writes to
// standard output and a .zst suffix compresses the file.
func WriteDocumentFile(path string, r *slp.Replay, opts DocumentOptions) error {
	if path == StdoutPath {
		return WriteDocument(os.Stdout, r, opts)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	if !strings.HasSuffix(path, ".zst") {
		if err := WriteDocument(f, r, opts); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	if err := WriteDocument(enc, r, opts); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return f.Close()
}
