package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/slippc/pkg/capture"
	"github.com/ssargent/slippc/pkg/slp"
	"github.com/ssargent/slippc/pkg/slp/slptest"
	"github.com/ssargent/slippc/pkg/storage"
)

const testMatchID = "mode.direct-2025-03-01T20:00:00.00-0"

func testCapture(ended bool) []byte {
	w := slptest.NewWriter(slp.V(3, 18, 0))
	w.GameStart(slptest.GameStart{
		Stage: 31,
		Players: []slptest.Player{
			{Char: 2, Type: slp.PlayerHuman, Stocks: 4, ConnectCode: "FOX#1"},
			{Char: 20, Type: slp.PlayerCPU, Stocks: 4, CPULevel: 9},
		},
		MatchID: testMatchID,
	})
	w.Frames(5, nil)
	if ended {
		w.GameEnd(slp.EndGame, -1, [4]int8{0, 1, -1, -1})
	}
	return w.Bytes()
}

func setupTestServer(t *testing.T, withCatalog bool) (*Server, *storage.Catalog) {
	t.Helper()
	var cat *storage.Catalog
	var store MatchStore
	if withCatalog {
		c, err := storage.Open(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { c.Close() })
		cat, store = c, c
	}
	cfg := ServerConfig{Bind: "127.0.0.1", Port: 0, MaxUploadBytes: 1 << 20}
	return NewServer(store, cfg, nil, nil), cat
}

func postCapture(t *testing.T, s *Server, query string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/replays"+query, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	return w
}

type testDocument struct {
	Settings map[string]interface{} `json:"settings"`
	Players  []struct {
		Player map[string]interface{}   `json:"player"`
		Frames []map[string]interface{} `json:"frames"`
	} `json:"players"`
	Items     []interface{} `json:"items"`
	Platforms []interface{} `json:"platforms"`
}

func decodeDocument(t *testing.T, w *httptest.ResponseRecorder) testDocument {
	t.Helper()
	var doc testDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	return doc
}

func TestHandleDecode_Document(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := postCapture(t, s, "", testCapture(true))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get(IncompleteHeader))

	doc := decodeDocument(t, w)
	assert.Equal(t, testMatchID, doc.Settings["match_id"])
	assert.Equal(t, "3.18.0", doc.Settings["slippi_version"])
	require.Len(t, doc.Players, 2)
	require.Len(t, doc.Players[0].Frames, 5)
	assert.Empty(t, doc.Items)
	assert.Empty(t, doc.Platforms)

	// delta mode repeats only what changed after the first frame
	first, second := doc.Players[0].Frames[0], doc.Players[0].Frames[1]
	assert.Equal(t, float64(slp.FirstFrame), first["frame"])
	assert.Contains(t, first, "stocks")
	assert.NotContains(t, second, "stocks")
	assert.Contains(t, second, "pos_x_pre")
}

func TestHandleDecode_FullAndRange(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := postCapture(t, s, "?full=true&frameStart=-121&frameEnd=-120", testCapture(true))
	require.Equal(t, http.StatusOK, w.Code)

	doc := decodeDocument(t, w)
	require.Len(t, doc.Players, 2)
	frames := doc.Players[1].Frames
	require.Len(t, frames, 2)
	assert.Equal(t, float64(-121), frames[0]["frame"])
	assert.Equal(t, float64(-120), frames[1]["frame"])
	assert.Contains(t, frames[1], "stocks")
}

func TestHandleDecode_Compressed(t *testing.T) {
	s, _ := setupTestServer(t, false)

	packed, err := capture.Compress(testCapture(true))
	require.NoError(t, err)

	w := postCapture(t, s, "", packed)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeDocument(t, w).Players, 2)
}

func TestHandleDecode_Formats(t *testing.T) {
	s, _ := setupTestServer(t, false)

	t.Run("analysis", func(t *testing.T) {
		w := postCapture(t, s, "?format=analysis", testCapture(true))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Success    bool   `json:"success"`
				MatchID    string `json:"match_id"`
				FrameCount int    `json:"frame_count"`
				Players    []struct {
					Port    int    `json:"port"`
					TagCode string `json:"tag_code"`
				} `json:"players"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.True(t, resp.Data.Success)
		assert.Equal(t, testMatchID, resp.Data.MatchID)
		assert.Equal(t, 5, resp.Data.FrameCount)
		require.Len(t, resp.Data.Players, 2)
		assert.Equal(t, "FOX#1", resp.Data.Players[0].TagCode)
	})

	t.Run("settings", func(t *testing.T) {
		w := postCapture(t, s, "?format=settings&name=game1.slp", testCapture(true))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Match struct {
					MatchID  string `json:"match_id"`
					FileName string `json:"slp_file_name"`
				} `json:"match"`
				Players []map[string]interface{} `json:"players"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, testMatchID, resp.Data.Match.MatchID)
		assert.Equal(t, "game1.slp", resp.Data.Match.FileName)
		assert.Len(t, resp.Data.Players, 2)
	})

	t.Run("unknown", func(t *testing.T) {
		w := postCapture(t, s, "?format=csv", testCapture(true))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleDecode_Malformed(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := postCapture(t, s, "", []byte("definitely not a capture"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Success bool        `json:"success"`
		Error   string      `json:"error"`
		Data    DecodeError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "malformed container", resp.Data.Kind)
	assert.NotEmpty(t, resp.Data.Detail)
}

func TestHandleDecode_Truncated(t *testing.T) {
	s, _ := setupTestServer(t, false)

	w := postCapture(t, s, "", testCapture(false))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(IncompleteHeader))

	doc := decodeDocument(t, w)
	assert.Equal(t, true, doc.Settings["incomplete"])
	assert.Len(t, doc.Players, 2)
}

func TestHandleDecode_BadQuery(t *testing.T) {
	s, _ := setupTestServer(t, false)

	tests := []struct {
		name  string
		query string
	}{
		{"bad full flag", "?full=maybe"},
		{"bad start", "?frameStart=abc"},
		{"bad end", "?frameEnd=1.5"},
		{"start after end", "?frameStart=10&frameEnd=-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postCapture(t, s, tt.query, testCapture(true))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHandleDecode_TooLarge(t *testing.T) {
	s := NewServer(nil, ServerConfig{MaxUploadBytes: 64}, nil, nil)

	w := postCapture(t, s, "", testCapture(true))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleDecode_DecompressedTooLarge(t *testing.T) {
	s := NewServer(nil, ServerConfig{MaxUploadBytes: 64 << 10}, nil, nil)

	packed, err := capture.Compress(make([]byte, 4<<20))
	require.NoError(t, err)
	require.Less(t, len(packed), 64<<10)

	w := postCapture(t, s, "", packed)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMatchRoutes(t *testing.T) {
	s, cat := setupTestServer(t, true)
	h := s.Routes()

	w := postCapture(t, s, "?catalog=true&name=game1.slp", testCapture(true))
	require.Equal(t, http.StatusOK, w.Code)

	has, err := cat.Has(testMatchID)
	require.NoError(t, err)
	assert.True(t, has)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/matches", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []storage.Entry `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "game1.slp", resp.Data[0].Source)
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/matches/"+testMatchID, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data storage.Entry `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, testMatchID, resp.Data.MatchID)
		assert.Equal(t, []string{"FOX#1", ""}, resp.Data.Players)
	})

	t.Run("unknown match", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/matches/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMatchRoutes_EmptyCatalog(t *testing.T) {
	s, _ := setupTestServer(t, true)

	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/matches", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())
}

func TestMatchRoutes_NoCatalog(t *testing.T) {
	s, _ := setupTestServer(t, false)
	h := s.Routes()

	for _, path := range []string{"/api/v1/matches", "/api/v1/matches/" + testMatchID} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	// catalog=true without a catalog still decodes
	w := postCapture(t, s, "?catalog=true", testCapture(true))
	assert.Equal(t, http.StatusOK, w.Code)
}
