package export

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slippc/pkg/slp"
	"github.com/ssargent/slippc/pkg/slp/slptest"
)

const matchID = "mode.direct-2024-03-01T20:00:00.00-0"

// sampleReplay decodes three frames of a two player Fountain of Dreams match
// with one item alive for the first two frames
func sampleReplay(t *testing.T) *slp.Replay {
	t.Helper()

	w := slptest.NewWriter(slp.V(3, 18, 0))
	w.GameStart(slptest.GameStart{
		Stage: slp.StageFountainOfDreams,
		Timer: 480,
		Players: []slptest.Player{
			{Char: 2, Type: slp.PlayerHuman, Stocks: 4, DisplayName: "fox", ConnectCode: "FOX#1"},
			{Char: 20, Type: slp.PlayerCPU, Stocks: 4, CPULevel: 9},
		},
		MatchID: matchID,
	})
	w.Frames(3, func(frame int32, port uint8, _ bool) slptest.Post {
		return slptest.Post{Stocks: 4, X: float32(frame) * 2, Percent: float32(port) * 10}
	})
	w.Item(slptest.Item{Frame: -123, Type: 0x63, SpawnID: 7, X: 1, Owner: 1})
	w.Item(slptest.Item{Frame: -122, Type: 0x63, SpawnID: 7, X: 2, Owner: 1})
	w.Platform(-122, 0, 27.5)
	w.GameEnd(slp.EndGame, -1, [4]int8{0, 1, -1, -1})

	r, err := slp.Load(w.Bytes())
	require.NoError(t, err)
	return r
}

type document struct {
	Settings Settings `json:"settings"`
	Players  []struct {
		Player PlayerHeader             `json:"player"`
		Frames []map[string]interface{} `json:"frames"`
	} `json:"players"`
	Items []struct {
		Item   ItemHeader               `json:"item"`
		Frames []map[string]interface{} `json:"frames"`
	} `json:"items"`
	Platforms []platformEntry `json:"platforms"`
}

func decodeDocument(t *testing.T, b []byte) document {
	t.Helper()
	var doc document
	require.NoError(t, json.Unmarshal(b, &doc))
	return doc
}

func TestWriteDocument_Records(t *testing.T) {
	r := sampleReplay(t)

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, r, DocumentOptions{}))
	doc := decodeDocument(t, buf.Bytes())

	assert.Equal(t, matchID, doc.Settings.MatchID)
	assert.Equal(t, "3.18.0", doc.Settings.SlippiVersion)
	assert.Equal(t, 3, doc.Settings.FrameCount)
	assert.Equal(t, int8(0), doc.Settings.WinnerID)
	assert.Equal(t, slp.StageFountainOfDreams, doc.Settings.Stage)

	require.Len(t, doc.Players, 2)
	assert.Equal(t, 1, doc.Players[0].Player.Port)
	assert.Equal(t, "FOX#1", doc.Players[0].Player.TagCode)
	assert.Equal(t, "cpu", doc.Players[1].Player.Type)
	assert.Equal(t, uint8(9), doc.Players[1].Player.CPULevel)
	for _, p := range doc.Players {
		require.Len(t, p.Frames, 3)
		assert.Equal(t, float64(-123), p.Frames[0]["frame"])
		assert.Equal(t, float64(-121), p.Frames[2]["frame"])
	}

	require.Len(t, doc.Items, 1)
	assert.Equal(t, uint32(7), doc.Items[0].Item.SpawnID)
	require.Len(t, doc.Items[0].Frames, 2)
	assert.Equal(t, float64(1), doc.Items[0].Frames[0]["owner"])

	require.Len(t, doc.Platforms, 1)
	assert.Equal(t, int32(-122), doc.Platforms[0].Frame)
	assert.Equal(t, float32(27.5), doc.Platforms[0].RightHeight)
}

func TestWriteDocument_DeltaAndFull(t *testing.T) {
	r := sampleReplay(t)

	testCases := []struct {
		name string
		full bool
	}{
		{name: "delta", full: false},
		{name: "full", full: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteDocument(&buf, r, DocumentOptions{Full: tc.full}))
			doc := decodeDocument(t, buf.Bytes())

			frames := doc.Players[0].Frames
			// the first frame always carries every column
			assert.Len(t, frames[0], len(playerColumns)+1)
			assert.Contains(t, frames[0], "joy_x")

			// position moves every frame, the stick does not
			assert.Contains(t, frames[1], "pos_x_pre")
			assert.Contains(t, frames[1], "pos_x_post")
			if tc.full {
				assert.Len(t, frames[1], len(playerColumns)+1)
				assert.Contains(t, frames[1], "joy_x")
			} else {
				assert.NotContains(t, frames[1], "joy_x")
				assert.NotContains(t, frames[1], "stocks")
			}

			items := doc.Items[0].Frames
			assert.Contains(t, items[1], "xpos")
			assert.Equal(t, !tc.full, !containsKey(items[1], "owner"))
		})
	}
}

func containsKey(m map[string]interface{}, k string) bool {
	_, ok := m[k]
	return ok
}

func TestWriteDocument_Range(t *testing.T) {
	r := sampleReplay(t)

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, r, DocumentOptions{Range: &FrameRange{From: -121, To: 100}}))
	doc := decodeDocument(t, buf.Bytes())

	require.Len(t, doc.Players, 2)
	require.Len(t, doc.Players[0].Frames, 1)
	assert.Equal(t, float64(-121), doc.Players[0].Frames[0]["frame"])
	// a range starts a fresh delta chain
	assert.Contains(t, doc.Players[0].Frames[0], "joy_x")

	assert.Empty(t, doc.Items)
	assert.Empty(t, doc.Platforms)
}

func TestWriteDocumentFile(t *testing.T) {
	r := sampleReplay(t)
	dir := t.TempDir()

	plain := filepath.Join(dir, "game.json")
	require.NoError(t, WriteDocumentFile(plain, r, DocumentOptions{}))
	b, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, matchID, decodeDocument(t, b).Settings.MatchID)

	packed := filepath.Join(dir, "game.json.zst")
	require.NoError(t, WriteDocumentFile(packed, r, DocumentOptions{}))
	raw, err := os.ReadFile(packed)
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	b, err = dec.DecodeAll(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, matchID, decodeDocument(t, b).Settings.MatchID)

	err = WriteDocumentFile(filepath.Join(dir, "missing", "game.json"), r, DocumentOptions{})
	assert.Error(t, err)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	require.NoError(t, s.Err())
	return lines
}

func TestWriteSettingsJSONL(t *testing.T) {
	r := sampleReplay(t)
	dir := MatchDir(t.TempDir(), r, "game.slp")
	assert.False(t, strings.Contains(filepath.Base(dir), ":"))

	require.NoError(t, WriteSettingsJSONL(dir, r, "game.slp"))

	assert.Equal(t, []string{
		`{"match_id":"` + matchID + `","slp_file_name":"game.slp","slippi_version":"3.18.0","timer":480,"frame_count":3,"winner_id":0,"stage":2,"end_type":2}`,
	}, readLines(t, filepath.Join(dir, MatchSettingsFile)))

	assert.Equal(t, []string{
		`{"match_id":"` + matchID + `","port":1,"slippi_code":"FOX#1","player_tag":"fox","player_type":0,"player_index":0,"ext_char":2}`,
		`{"match_id":"` + matchID + `","port":2,"slippi_code":"","player_tag":"","player_type":1,"player_index":1,"ext_char":20}`,
	}, readLines(t, filepath.Join(dir, PlayerSettingsFile)))

	assert.Equal(t, []string{
		`{"match_id":"` + matchID + `","stage":2}`,
	}, readLines(t, filepath.Join(dir, StageSettingsFile)))
}

func TestWriteDocument_EndsBeforeFirstFrame(t *testing.T) {
	w := slptest.NewWriter(slp.V(3, 18, 0))
	w.GameStart(slptest.GameStart{
		Stage: slp.StageFountainOfDreams,
		Players: []slptest.Player{
			{Char: 2, Type: slp.PlayerHuman, Stocks: 4, ConnectCode: "FOX#1"},
			{Char: 20, Type: slp.PlayerCPU, Stocks: 4, CPULevel: 9},
		},
		MatchID: matchID,
	})
	r, _ := slp.Load(w.Bytes())
	require.NotNil(t, r)
	require.Equal(t, 0, r.FrameCount)

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, r, DocumentOptions{}))
	doc := decodeDocument(t, buf.Bytes())

	require.Len(t, doc.Players, 2)
	assert.Equal(t, "FOX#1", doc.Players[0].Player.TagCode)
	for _, p := range doc.Players {
		assert.Empty(t, p.Frames)
	}
	assert.Len(t, NewPlayerSettings(r), len(doc.Players))
}

func TestMatchDir(t *testing.T) {
	r := &slp.Replay{StartTime: "2024-03-01T20:00:00Z"}
	assert.Equal(t, filepath.Join("out", "2024-03-01T20-00-00Z"), MatchDir("out", r, "x.slp"))

	r.StartTime = ""
	assert.Equal(t, filepath.Join("out", "Game_1"), MatchDir("out", r, "/captures/Game_1.slp"))
}

func TestWriteParquet(t *testing.T) {
	r := sampleReplay(t)
	dir := t.TempDir()
	require.NoError(t, WriteParquet(dir, r))

	frames, err := parquet.ReadFile[PlayerFrameRow](filepath.Join(dir, FramesTable))
	require.NoError(t, err)
	require.Len(t, frames, 6)
	for i, row := range frames {
		assert.Equal(t, matchID, row.MatchID)
		assert.Equal(t, uint8(i/3), row.PlayerIndex)
		assert.Equal(t, uint32(i%3), row.FrameNumber)
		assert.Equal(t, float32(row.FrameNumber)-123, row.PosXPre)
	}
	assert.Equal(t, "FOX#1", frames[0].PlayerID)
	assert.Equal(t, float32(10), frames[3].PercentPost)

	items, err := parquet.ReadFile[ItemFrameRow](filepath.Join(dir, ItemsTable))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint32(0), items[0].Frame)
	assert.Equal(t, uint32(1), items[1].Frame)
	assert.Equal(t, int8(1), items[1].Owner)

	platforms, err := parquet.ReadFile[PlatformFrameRow](filepath.Join(dir, PlatformsTable))
	require.NoError(t, err)
	require.Len(t, platforms, 1)
	assert.Equal(t, slp.PlatformLeftStart, platforms[0].LeftHeight)
}

func TestWriteParquet_NoPlatforms(t *testing.T) {
	w := slptest.NewWriter(slp.V(3, 18, 0))
	w.GameStart(slptest.GameStart{
		Stage:   31,
		Players: []slptest.Player{{Char: 2, Type: slp.PlayerHuman, Stocks: 4}},
		MatchID: matchID,
	})
	w.Frames(2, nil)
	w.GameEnd(slp.EndGame, -1, [4]int8{0, -1, -1, -1})
	r, err := slp.Load(w.Bytes())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, WriteParquet(dir, r))
	assert.FileExists(t, filepath.Join(dir, FramesTable))
	assert.FileExists(t, filepath.Join(dir, ItemsTable))
	assert.NoFileExists(t, filepath.Join(dir, PlatformsTable))
}

func TestSettingsDB(t *testing.T) {
	ctx := context.Background()
	r := sampleReplay(t)

	db, err := OpenSettingsDB(filepath.Join(t.TempDir(), SettingsDBFile))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Insert(ctx, r, "game.slp"))
	require.NoError(t, db.Insert(ctx, r, "game-copy.slp"))

	m, ok, err := db.Match(ctx, matchID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, NewMatchSettings(r, "game-copy.slp"), m)

	players, err := db.Players(ctx, matchID)
	require.NoError(t, err)
	assert.Equal(t, NewPlayerSettings(r), players)

	_, ok, err = db.Match(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, db.Insert(ctx, &slp.Replay{}, "empty.slp"))

	_, err = OpenSettingsDB(" ")
	assert.Error(t, err)
}
