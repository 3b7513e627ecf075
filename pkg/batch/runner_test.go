package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slippc/pkg/capture"
	"github.com/ssargent/slippc/pkg/export"
	"github.com/ssargent/slippc/pkg/slp"
	"github.com/ssargent/slippc/pkg/slp/slptest"
	"github.com/ssargent/slippc/pkg/storage"
)

func writeCapture(t *testing.T, path, matchID string, ended bool) {
	t.Helper()
	w := slptest.NewWriter(slp.V(3, 18, 0))
	w.GameStart(slptest.GameStart{
		Stage: 31,
		Players: []slptest.Player{
			{Char: 2, Type: slp.PlayerHuman, Stocks: 4, ConnectCode: "FOX#1"},
			{Char: 20, Type: slp.PlayerHuman, Stocks: 4, ConnectCode: "FALC#2"},
		},
		MatchID: matchID,
	})
	w.Frames(5, nil)
	if ended {
		w.GameEnd(slp.EndGame, -1, [4]int8{0, 1, -1, -1})
	}
	require.NoError(t, os.WriteFile(path, w.Bytes(), 0600))
}

// captureDir holds two complete captures, one truncated capture and one that is not a capture at all
func captureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCapture(t, filepath.Join(dir, "a.slp"), "m-a", true)
	writeCapture(t, filepath.Join(dir, "b.slp"), "m-b", true)
	writeCapture(t, filepath.Join(dir, "c.slp"), "m-c", false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.slp"), []byte("not a capture"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))
	return dir
}

func resultFor(t *testing.T, sum *Summary, name string) FileResult {
	t.Helper()
	for _, res := range sum.Files {
		if filepath.Base(res.Path) == name {
			return res
		}
	}
	t.Fatalf("no result for %s", name)
	return FileResult{}
}

func TestRunner_Directory(t *testing.T) {
	in := captureDir(t)
	out := t.TempDir()
	req := Request{
		Input:       in,
		JSONOut:     filepath.Join(out, "json"),
		AnalysisOut: filepath.Join(out, "analysis"),
		TablesDir:   filepath.Join(out, "tables"),
		SettingsDB:  true,
	}

	r := NewRunner(WithWorkers(3))
	sum, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, sum.Files, 4)

	assert.Equal(t, 2, sum.OK)
	assert.Equal(t, 1, sum.Partial)
	assert.Equal(t, 1, sum.Failed)
	assert.Error(t, sum.Err())

	a := resultFor(t, sum, "a.slp")
	assert.Equal(t, StatusOK, a.Status)
	assert.Equal(t, "m-a", a.MatchID)
	assert.Equal(t, 5, a.Frames)
	assert.Positive(t, a.Duration)

	c := resultFor(t, sum, "c.slp")
	assert.Equal(t, StatusPartial, c.Status)
	assert.ErrorIs(t, c.Err, slp.ErrTruncatedStream)

	bad := resultFor(t, sum, "bad.slp")
	assert.Equal(t, StatusFailed, bad.Status)
	assert.ErrorIs(t, bad.Err, slp.ErrMalformedContainer)

	assert.FileExists(t, filepath.Join(req.JSONOut, "a.slp.json"))
	assert.FileExists(t, filepath.Join(req.JSONOut, "c.slp.json"))
	assert.NoFileExists(t, filepath.Join(req.JSONOut, "bad.slp.json"))
	assert.FileExists(t, filepath.Join(req.AnalysisOut, "b-analysis.json"))
	assert.FileExists(t, filepath.Join(req.TablesDir, "m-a", export.FramesTable))
	assert.FileExists(t, filepath.Join(req.TablesDir, "m-b", export.MatchSettingsFile))

	db, err := export.OpenSettingsDB(filepath.Join(req.TablesDir, export.SettingsDBFile))
	require.NoError(t, err)
	defer db.Close()
	m, ok, err := db.Match(context.Background(), "m-b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b.slp", m.SlpFileName)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.Metrics().filesTotal.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Metrics().decodeErrors.WithLabelValues("malformed_container")))
	assert.Equal(t, float64(15), testutil.ToFloat64(r.Metrics().framesTotal))
}

func TestRunner_Compressed(t *testing.T) {
	in := t.TempDir()
	writeCapture(t, filepath.Join(in, "a.slp"), "m-a", true)
	raw, err := os.ReadFile(filepath.Join(in, "a.slp"))
	require.NoError(t, err)
	packed, err := capture.Compress(raw)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(in, "a.slp")))
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.slp.zst"), packed, 0600))

	out := t.TempDir()
	sum, err := NewRunner().Run(context.Background(), Request{Input: in, JSONOut: out, Compress: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.OK)
	assert.FileExists(t, filepath.Join(out, "a.slp.json.zst"))
}

func TestRunner_SingleFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "game.slp")
	writeCapture(t, in, "m-1", true)

	jsonOut := filepath.Join(dir, "game.json")
	analysisOut := filepath.Join(dir, "game-analysis.json")
	sum, err := NewRunner().Run(context.Background(), Request{Input: in, JSONOut: jsonOut, AnalysisOut: analysisOut, Full: true})
	require.NoError(t, err)
	require.NoError(t, sum.Err())
	assert.Equal(t, 1, sum.OK)
	assert.FileExists(t, jsonOut)
	assert.FileExists(t, analysisOut)
}

func TestRunner_SingleFileIgnoresCatalogSkip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "game.slp")
	writeCapture(t, in, "m-1", true)

	cat, err := storage.Open(filepath.Join(dir, "catalog"))
	require.NoError(t, err)
	defer cat.Close()

	r := NewRunner(WithCatalog(cat))
	for run := 0; run < 2; run++ {
		jsonOut := filepath.Join(dir, "game.json")
		require.NoError(t, os.RemoveAll(jsonOut))

		sum, err := r.Run(context.Background(), Request{Input: in, JSONOut: jsonOut})
		require.NoError(t, err)
		assert.Equal(t, 1, sum.OK, "run %d", run)
		assert.Equal(t, 0, sum.Skipped, "run %d", run)
		assert.FileExists(t, jsonOut)
	}

	has, err := cat.Has("m-1")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRunner_InvalidRequests(t *testing.T) {
	in := captureDir(t)
	blocker := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(blocker, nil, 0600))

	testCases := []struct {
		name string
		req  Request
	}{
		{name: "no input", req: Request{}},
		{name: "missing input", req: Request{Input: filepath.Join(in, "nope")}},
		{name: "directory without outputs", req: Request{Input: in}},
		{name: "json output is a file", req: Request{Input: in, JSONOut: blocker}},
		{name: "analysis output is a file", req: Request{Input: in, JSONOut: t.TempDir(), AnalysisOut: blocker}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sum, err := NewRunner().Run(context.Background(), tc.req)
			assert.Error(t, err)
			assert.Nil(t, sum)
		})
	}
}

func TestRunner_CatalogSkipsProcessedMatches(t *testing.T) {
	in := captureDir(t)
	cat, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	defer cat.Close()

	r := NewRunner(WithCatalog(cat), WithWorkers(2))
	req := Request{Input: in, JSONOut: t.TempDir()}

	first, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Skipped)

	entry, err := cat.Get("m-a")
	require.NoError(t, err)
	assert.Equal(t, first.RunID, entry.RunID)
	assert.Equal(t, []string{"FOX#1", "FALC#2"}, entry.Players)
	partial, err := cat.Get("m-c")
	require.NoError(t, err)
	assert.True(t, partial.Incomplete)

	second, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Skipped)
	assert.Equal(t, 1, second.Failed)
	assert.NotEqual(t, first.RunID, second.RunID)

	req.Force = true
	forced, err := r.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, forced.Skipped)
	assert.Equal(t, 2, forced.OK)
}

func TestRunner_Cancelled(t *testing.T) {
	in := captureDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := NewRunner().Run(ctx, Request{Input: in, JSONOut: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.Equal(t, 4, sum.Failed)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordFile(StatusOK, 100, 0)
	m.RecordError(slp.ErrTruncatedStream)

	path := filepath.Join(t.TempDir(), "slippc.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `slippc_files_total{status="ok"} 1`)
	assert.Contains(t, string(b), `slippc_decode_errors_total{kind="truncated_stream"} 1`)
	assert.Contains(t, string(b), "slippc_frames_decoded_total 100")
}
