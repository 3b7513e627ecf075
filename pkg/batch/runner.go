// Package batch decodes one capture or a directory of captures and writes the
// requested exports, isolating failures per file.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ssargent/slippc/pkg/analysis"
	"github.com/ssargent/slippc/pkg/capture"
	"github.com/ssargent/slippc/pkg/export"
	"github.com/ssargent/slippc/pkg/slp"
	"github.com/ssargent/slippc/pkg/storage"
)

// Status is the outcome of one capture
type Status string

const (
	StatusOK      Status = "ok"
	StatusPartial Status = "partial"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Catalog records processed matches
type Catalog interface {
	Has(matchID string) (bool, error)
	Put(e storage.Entry) error
}

// Request describes one run. Input is a capture file or a directory of captures.
// In directory mode every output is a directory.
type Request struct {
	Input       string
	JSONOut     string
	AnalysisOut string
	TablesDir   string

	Full       bool
	Compress   bool
	Force      bool
	SettingsDB bool
}

func (req Request) hasOutput() bool {
	return req.JSONOut != "" || req.AnalysisOut != "" || req.TablesDir != ""
}

// FileResult is the outcome of one capture
type FileResult struct {
	Path     string
	MatchID  string
	Status   Status
	Frames   int
	Err      error
	Duration time.Duration
}

// Summary is the outcome of a run
type Summary struct {
	RunID   ksuid.KSUID
	Files   []FileResult
	OK      int
	Partial int
	Skipped int
	Failed  int
}

// Err reports failed files, nil when every file decoded at least partially
func (s *Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d files failed", s.Failed, len(s.Files))
}

// Runner executes batch requests
type Runner struct {
	log      logrus.FieldLogger
	workers  int
	catalog  Catalog
	analyzer analysis.Analyzer
	metrics  *Metrics
}

// Option configures a Runner
type Option func(*Runner)

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) { r.log = log }
}

// WithWorkers bounds the number of captures decoded at once
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithCatalog skips matches already in c and records new ones
func WithCatalog(c Catalog) Option {
	return func(r *Runner) { r.catalog = c }
}

func WithAnalyzer(a analysis.Analyzer) Option {
	return func(r *Runner) { r.analyzer = a }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner returns a runner with one worker and the basic analyzer unless configured otherwise
func NewRunner(opts ...Option) *Runner {
	r := &Runner{workers: 1, analyzer: analysis.Basic{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		r.log = silent
	}
	if r.metrics == nil {
		r.metrics = NewMetrics()
	}
	return r
}

// Metrics returns the runner's metrics
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// job is one capture and where its exports go
type job struct {
	path        string
	jsonOut     string
	analysisOut string
	tablesDir   string
	// dedupe skips matches already in the catalog; only directory runs set it
	dedupe bool
}

// Run processes req. Per-file failures are reported in the summary; the
// returned error covers invalid requests and cancellation.
func (r *Runner) Run(ctx context.Context, req Request) (*Summary, error) {
	if req.Input == "" {
		return nil, fmt.Errorf("input is required")
	}
	info, err := os.Stat(req.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	var jobs []job
	if info.IsDir() {
		jobs, err = r.directoryJobs(req)
	} else {
		jobs = []job{{path: req.Input, jsonOut: req.JSONOut, analysisOut: req.AnalysisOut, tablesDir: req.TablesDir}}
	}
	if err != nil {
		return nil, err
	}

	var db *export.SettingsDB
	if req.SettingsDB && req.TablesDir != "" {
		if err := os.MkdirAll(req.TablesDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create table directory: %w", err)
		}
		db, err = export.OpenSettingsDB(filepath.Join(req.TablesDir, export.SettingsDBFile))
		if err != nil {
			return nil, err
		}
		defer db.Close()
	}

	sum := &Summary{RunID: ksuid.New(), Files: make([]FileResult, len(jobs))}
	log := r.log.WithField("run", sum.RunID.String())
	log.WithFields(logrus.Fields{"files": len(jobs), "workers": r.workers}).Info("starting run")

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, j := range jobs {
		if ctx.Err() != nil {
			sum.Files[i] = FileResult{Path: j.path, Status: StatusFailed, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			sum.Files[i] = r.process(ctx, log, req, j, db, sum.RunID)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range sum.Files {
		switch res.Status {
		case StatusOK:
			sum.OK++
		case StatusPartial:
			sum.Partial++
		case StatusSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}
	r.metrics.RecordRun(time.Now())

	log.WithFields(logrus.Fields{
		"ok":      sum.OK,
		"partial": sum.Partial,
		"skipped": sum.Skipped,
		"failed":  sum.Failed,
	}).Info("run finished")

	return sum, ctx.Err()
}

func (r *Runner) directoryJobs(req Request) ([]job, error) {
	if !req.hasOutput() {
		return nil, fmt.Errorf("directory input requires a JSON, analysis or table output directory")
	}
	for _, dir := range []string{req.JSONOut, req.AnalysisOut, req.TablesDir} {
		if dir == "" {
			continue
		}
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}

	files, err := capture.List(req.Input)
	if err != nil {
		return nil, err
	}

	jobs := make([]job, 0, len(files))
	for _, path := range files {
		base := filepath.Base(path)
		stem := strings.TrimSuffix(strings.TrimSuffix(base, ".zst"), filepath.Ext(strings.TrimSuffix(base, ".zst")))
		j := job{path: path, tablesDir: req.TablesDir, dedupe: true}
		if req.JSONOut != "" {
			name := stem + capture.Extension + ".json"
			if req.Compress {
				name += ".zst"
			}
			j.jsonOut = filepath.Join(req.JSONOut, name)
		}
		if req.AnalysisOut != "" {
			j.analysisOut = filepath.Join(req.AnalysisOut, stem+"-analysis.json")
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// ensureDir creates dir, failing when the path is an existing non-directory
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("output path %q exists and is not a directory", dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}
	return nil
}

func (r *Runner) process(ctx context.Context, log logrus.FieldLogger, req Request, j job, db *export.SettingsDB, run ksuid.KSUID) (res FileResult) {
	start := time.Now()
	res = FileResult{Path: j.path}
	log = log.WithField("file", filepath.Base(j.path))

	defer func() {
		res.Duration = time.Since(start)
		r.metrics.RecordFile(res.Status, res.Frames, res.Duration)
		if res.Err != nil {
			entry := log.WithError(res.Err).WithField("status", res.Status)
			if res.Status == StatusFailed {
				entry.Warn("encountered errors processing capture")
			} else {
				entry.Info("capture decoded partially")
			}
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	data, err := capture.ReadFile(j.path)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	replay, err := slp.Load(data, slp.WithLogger(log))
	if replay == nil {
		r.metrics.RecordError(err)
		res.Status, res.Err = StatusFailed, err
		return res
	}
	res.MatchID = replay.StartTime
	res.Frames = replay.FrameCount
	res.Status = StatusOK
	if err != nil {
		r.metrics.RecordError(err)
		res.Status, res.Err = StatusPartial, err
	}

	if r.catalog != nil && j.dedupe && !req.Force && replay.StartTime != "" {
		seen, err := r.catalog.Has(replay.StartTime)
		if err != nil {
			res.Status, res.Err = StatusFailed, err
			return res
		}
		if seen {
			log.WithField("match", replay.StartTime).Debug("match already cataloged")
			res.Status = StatusSkipped
			return res
		}
	}

	if err := r.write(ctx, req, j, replay, db); err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	if r.catalog != nil && replay.StartTime != "" {
		if err := r.catalog.Put(storage.NewEntry(replay, j.path, run)); err != nil {
			res.Status, res.Err = StatusFailed, err
		}
	}
	return res
}

func (r *Runner) write(ctx context.Context, req Request, j job, replay *slp.Replay, db *export.SettingsDB) error {
	if j.jsonOut != "" {
		if err := export.WriteDocumentFile(j.jsonOut, replay, export.DocumentOptions{Full: req.Full}); err != nil {
			return err
		}
	}

	if j.analysisOut != "" {
		a := r.analyzer.Analyze(replay)
		if a.Success {
			if err := a.Save(j.analysisOut); err != nil {
				return err
			}
		}
	}

	if j.tablesDir != "" {
		source := filepath.Base(j.path)
		dir := export.MatchDir(j.tablesDir, replay, source)
		if err := export.WriteParquet(dir, replay); err != nil {
			return err
		}
		if err := export.WriteSettingsJSONL(dir, replay, source); err != nil {
			return err
		}
		if db != nil && replay.StartTime != "" {
			if err := db.Insert(ctx, replay, source); err != nil {
				return err
			}
		}
	}
	return nil
}
