// Package storage keeps a pebble catalog of processed matches, used to skip
// captures that were already exported and to serve match listings.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/goccy/go-json"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"

	"github.com/ssargent/slippc/pkg/slp"
)

var matchPrefix = []byte("match/")

// ErrNotFound is returned by Get for a match that was never cataloged
var ErrNotFound = errors.New("match not found")

// Entry is the catalog record of one processed match
type Entry struct {
	MatchID       string      `json:"match_id"`
	RunID         ksuid.KSUID `json:"run_id"`
	Source        string      `json:"source"`
	SlippiVersion string      `json:"slippi_version"`
	Stage         uint16      `json:"stage"`
	FrameCount    int         `json:"frame_count"`
	WinnerID      int8        `json:"winner_id"`
	EndType       uint8       `json:"end_type"`
	Players       []string    `json:"players"`
	Incomplete    bool        `json:"incomplete"`
	CatalogedAt   time.Time   `json:"cataloged_at"`
}

// NewEntry describes r as decoded from source during run
func NewEntry(r *slp.Replay, source string, run ksuid.KSUID) Entry {
	e := Entry{
		MatchID:       r.StartTime,
		RunID:         run,
		Source:        source,
		SlippiVersion: r.SlippiVersion(),
		Stage:         r.Stage,
		FrameCount:    r.FrameCount,
		WinnerID:      r.WinnerID,
		EndType:       r.EndType,
		Incomplete:    r.Incomplete,
		CatalogedAt:   time.Now().UTC(),
	}
	for i := 0; i < 4; i++ {
		if p := &r.Players[i]; p.Type != slp.PlayerEmpty {
			name := p.TagCode
			if name == "" {
				name = p.Tag
			}
			e.Players = append(e.Players, name)
		}
	}
	return e
}

// Catalog is a match catalog backed by pebble
type Catalog struct {
	db *pebble.DB
}

// Option configures Open
type Option func(*options)

type options struct {
	log logrus.FieldLogger
}

// WithLogger routes pebble's log output through log
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// pebbleLogger adapts a logrus logger to pebble.Logger
type pebbleLogger struct {
	log logrus.FieldLogger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	l.log.Fatalf(format, args...)
}

// Open opens or creates the catalog in dir
func Open(dir string, opts ...Option) (*Catalog, error) {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := pebble.Open(dir, &pebble.Options{
		Logger: pebbleLogger{log: o.log.WithField("component", "catalog")},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

func matchKey(matchID string) []byte {
	return append(append([]byte{}, matchPrefix...), matchID...)
}

// Put stores e, replacing any earlier entry for the same match
func (c *Catalog) Put(e Entry) error {
	if e.MatchID == "" {
		return fmt.Errorf("match id is required")
	}
	if e.RunID == ksuid.Nil {
		e.RunID = ksuid.New()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	return c.db.Set(matchKey(e.MatchID), data, pebble.Sync)
}

// Get returns the entry for matchID, or ErrNotFound
func (c *Catalog) Get(matchID string) (Entry, error) {
	data, closer, err := c.db.Get(matchKey(matchID))
	if errors.Is(err, pebble.ErrNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read entry: %w", err)
	}
	defer closer.Close()

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("failed to decode entry: %w", err)
	}
	return e, nil
}

// Has reports whether matchID is cataloged
func (c *Catalog) Has(matchID string) (bool, error) {
	_, err := c.Get(matchID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete removes matchID from the catalog
func (c *Catalog) Delete(matchID string) error {
	return c.db.Delete(matchKey(matchID), pebble.Sync)
}

// List returns every entry ordered by match id
func (c *Catalog) List() ([]Entry, error) {
	upper := append([]byte{}, matchPrefix...)
	upper[len(upper)-1]++

	iter, err := c.db.NewIter(&pebble.IterOptions{LowerBound: matchPrefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate catalog: %w", err)
	}
	defer iter.Close()

	var out []Entry
	for iter.First(); iter.Valid(); iter.Next() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("failed to decode entry %q: %w", iter.Key(), err)
		}
		out = append(out, e)
	}
	return out, iter.Error()
}

// Close closes the underlying database
func (c *Catalog) Close() error {
	return c.db.Close()
}
