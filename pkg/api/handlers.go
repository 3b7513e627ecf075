package api

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/slippc/pkg/analysis"
	"github.com/ssargent/slippc/pkg/capture"
	"github.com/ssargent/slippc/pkg/export"
	"github.com/ssargent/slippc/pkg/slp"
	"github.com/ssargent/slippc/pkg/storage"
)

// IncompleteHeader is set on decode responses built from a partial replay
const IncompleteHeader = "X-Slippc-Incomplete"

// Server holds the API server state
type Server struct {
	catalog  MatchStore
	analyzer analysis.Analyzer
	config   ServerConfig
	metrics  *Metrics
	log      logrus.FieldLogger
	runID    ksuid.KSUID
}

// NewServer creates a new API server. catalog may be nil, which disables the match routes.
func NewServer(catalog MatchStore, config ServerConfig, metrics *Metrics, log logrus.FieldLogger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		log = silent
	}
	return &Server{
		catalog:  catalog,
		analyzer: analysis.Basic{},
		config:   config,
		metrics:  metrics,
		log:      log,
		runID:    ksuid.New(),
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Report that the server is up along with its run id
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy", "run_id": s.runID.String()})
}

// documentOptions reads full, frameStart and frameEnd from the query
func documentOptions(q url.Values) (export.DocumentOptions, error) {
	var opts export.DocumentOptions
	if v := q.Get("full"); v != "" {
		full, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid full flag %q", v)
		}
		opts.Full = full
	}

	start, end := q.Get("frameStart"), q.Get("frameEnd")
	if start == "" && end == "" {
		return opts, nil
	}
	fr := &export.FrameRange{From: math.MinInt32, To: math.MaxInt32}
	if start != "" {
		n, err := strconv.ParseInt(start, 10, 32)
		if err != nil {
			return opts, fmt.Errorf("invalid frameStart %q", start)
		}
		fr.From = int32(n)
	}
	if end != "" {
		n, err := strconv.ParseInt(end, 10, 32)
		if err != nil {
			return opts, fmt.Errorf("invalid frameEnd %q", end)
		}
		fr.To = int32(n)
	}
	if fr.From > fr.To {
		return opts, fmt.Errorf("frameStart %d is after frameEnd %d", fr.From, fr.To)
	}
	opts.Range = fr
	return opts, nil
}

func decodeErrorBody(err error) DecodeError {
	body := DecodeError{Kind: "unknown", Offset: -1, Detail: err.Error()}
	var de *slp.DecodeError
	if errors.As(err, &de) {
		body.Kind = de.Kind.String()
		body.Offset = de.Offset
	}
	return body
}

// handleDecode decodes an uploaded capture (raw or zstd) and returns the JSON
// document, or the analysis or settings with format=analysis|settings.
// catalog=true records the match.
//
//	@Summary		Decode a capture
//	@Description	Decode an uploaded capture (raw or zstd) into a JSON document, analysis or settings
//	@Tags			replays
//	@Accept			octet-stream
//	@Produce		json
//	@Param			body		body		[]byte	true	"Capture bytes"
//	@Param			format		query		string	false	"Response format"	Enums(document, analysis, settings)
//	@Param			full		query		bool	false	"Write every frame field instead of deltas"
//	@Param			frameStart	query		int		false	"First frame to include"
//	@Param			frameEnd	query		int		false	"Last frame to include"
//	@Param			catalog		query		bool	false	"Record the match in the catalog"
//	@Param			name		query		string	false	"Capture name recorded in the catalog"
//	@Success		200			{object}	map[string]interface{}
//	@Failure		400			{object}	APIResponse
//	@Failure		413			{object}	APIResponse
//	@Failure		422			{object}	DecodeError
//	@Security		ApiKeyAuth
//	@Router			/replays [post]
func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()

	opts, err := documentOptions(q)
	if err != nil {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	body := io.Reader(r.Body)
	limit := capture.DefaultMaxBytes
	if s.config.MaxUploadBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
		limit = s.config.MaxUploadBytes
	}
	data, err := capture.ReadLimit(body, limit)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, capture.ErrTooLarge) {
			sendError(w, "Capture exceeds upload limit", http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, fmt.Sprintf("Failed to read capture: %v", err), http.StatusBadRequest)
		return
	}

	name := q.Get("name")
	if name == "" {
		name = "upload" + capture.Extension
	}
	log := s.log.WithField("name", name)

	replay, derr := slp.Load(data, slp.WithLogger(log))
	s.metrics.RecordDecode(len(data), replay != nil, derr, time.Since(start))
	if replay == nil {
		log.WithError(derr).Info("rejected upload")
		sendErrorData(w, "Failed to decode capture", decodeErrorBody(derr), http.StatusUnprocessableEntity)
		return
	}
	if derr != nil {
		log.WithError(derr).Info("upload decoded partially")
		w.Header().Set(IncompleteHeader, "true")
	}

	if q.Get("catalog") == "true" && s.catalog != nil && replay.StartTime != "" {
		if err := s.catalog.Put(storage.NewEntry(replay, name, s.runID)); err != nil {
			sendError(w, fmt.Sprintf("Failed to catalog match: %v", err), http.StatusInternalServerError)
			return
		}
	}

	switch q.Get("format") {
	case "", "document":
	case "analysis":
		sendSuccess(w, s.analyzer.Analyze(replay))
		return
	case "settings":
		sendSuccess(w, map[string]interface{}{
			"match":   export.NewMatchSettings(replay, name),
			"players": export.NewPlayerSettings(replay),
		})
		return
	default:
		sendError(w, fmt.Sprintf("Unknown format %q", q.Get("format")), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := export.WriteDocument(w, replay, opts); err != nil {
		log.WithError(err).Warn("failed to write document")
	}
}

// handleListMatches godoc
//
//	@Summary		List matches
//	@Description	List every cataloged match
//	@Tags			matches
//	@Produce		json
//	@Success		200	{object}	APIResponse
//	@Failure		404	{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/matches [get]
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		sendError(w, "Catalog is not configured", http.StatusNotFound)
		return
	}
	entries, err := s.catalog.List()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list matches: %v", err), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []storage.Entry{}
	}
	sendSuccess(w, entries)
}

// handleGetMatch godoc
//
//	@Summary		Get a match
//	@Description	Get one cataloged match by its match id
//	@Tags			matches
//	@Produce		json
//	@Param			matchID	path		string	true	"Match id"
//	@Success		200		{object}	APIResponse
//	@Failure		400		{object}	APIResponse
//	@Failure		404		{object}	APIResponse
//	@Security		ApiKeyAuth
//	@Router			/matches/{matchID} [get]
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		sendError(w, "Catalog is not configured", http.StatusNotFound)
		return
	}
	matchID, err := url.PathUnescape(chi.URLParam(r, "matchID"))
	if err != nil || matchID == "" {
		sendError(w, "Invalid match id", http.StatusBadRequest)
		return
	}

	entry, err := s.catalog.Get(matchID)
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, "Match not found", http.StatusNotFound)
		return
	}
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to get match: %v", err), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, entry)
}
