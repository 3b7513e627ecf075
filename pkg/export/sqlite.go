package export

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ssargent/slippc/pkg/slp"

	_ "modernc.org/sqlite"
)

const settingsSchema = `
CREATE TABLE IF NOT EXISTS match_settings (
	match_id       TEXT PRIMARY KEY,
	slp_file_name  TEXT NOT NULL,
	slippi_version TEXT NOT NULL,
	timer          INTEGER NOT NULL,
	frame_count    INTEGER NOT NULL,
	winner_id      INTEGER NOT NULL,
	stage          INTEGER NOT NULL,
	end_type       INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS player_settings (
	match_id     TEXT NOT NULL,
	port         INTEGER NOT NULL,
	slippi_code  TEXT NOT NULL,
	player_tag   TEXT NOT NULL,
	player_type  INTEGER NOT NULL,
	player_index INTEGER NOT NULL,
	ext_char     INTEGER NOT NULL,
	PRIMARY KEY (match_id, port)
);`

// SettingsDBFile is the database file name inside a table directory
const SettingsDBFile = "settings.db"

// SettingsDB holds match and player settings for every exported match
type SettingsDB struct {
	db *sql.DB
}

// OpenSettingsDB opens or creates the settings database at path
func OpenSettingsDB(path string) (*SettingsDB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings database path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// batch workers share one handle
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(settingsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create settings tables: %w", err)
	}
	return &SettingsDB{db: db}, nil
}

// Close closes the database handle
func (s *SettingsDB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert stores the settings of r, replacing any earlier rows for the same match
func (s *SettingsDB) Insert(ctx context.Context, r *slp.Replay, sourceName string) error {
	m := NewMatchSettings(r, sourceName)
	if m.MatchID == "" {
		return fmt.Errorf("match id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO match_settings (
		   match_id, slp_file_name, slippi_version, timer, frame_count, winner_id, stage, end_type
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MatchID, m.SlpFileName, m.SlippiVersion, m.Timer, m.FrameCount, m.WinnerID, m.Stage, m.EndType,
	)
	if err != nil {
		return fmt.Errorf("insert match settings: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM player_settings WHERE match_id = ?`, m.MatchID); err != nil {
		return fmt.Errorf("clear player settings: %w", err)
	}
	for _, p := range NewPlayerSettings(r) {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO player_settings (
			   match_id, port, slippi_code, player_tag, player_type, player_index, ext_char
			 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.MatchID, p.Port, p.SlippiCode, p.PlayerTag, p.PlayerType, p.PlayerIndex, p.ExtChar,
		)
		if err != nil {
			return fmt.Errorf("insert player settings: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}

// Match returns the stored settings of one match
func (s *SettingsDB) Match(ctx context.Context, matchID string) (MatchSettings, bool, error) {
	var m MatchSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT match_id, slp_file_name, slippi_version, timer, frame_count, winner_id, stage, end_type
		   FROM match_settings WHERE match_id = ?`, matchID,
	).Scan(&m.MatchID, &m.SlpFileName, &m.SlippiVersion, &m.Timer, &m.FrameCount, &m.WinnerID, &m.Stage, &m.EndType)
	if err == sql.ErrNoRows {
		return MatchSettings{}, false, nil
	}
	if err != nil {
		return MatchSettings{}, false, fmt.Errorf("query match settings: %w", err)
	}
	return m, true, nil
}

// Players returns the stored player settings of one match ordered by port
func (s *SettingsDB) Players(ctx context.Context, matchID string) ([]PlayerSettings, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id, port, slippi_code, player_tag, player_type, player_index, ext_char
		   FROM player_settings WHERE match_id = ? ORDER BY port`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query player settings: %w", err)
	}
	defer rows.Close()

	var out []PlayerSettings
	for rows.Next() {
		var p PlayerSettings
		if err := rows.Scan(&p.MatchID, &p.Port, &p.SlippiCode, &p.PlayerTag, &p.PlayerType, &p.PlayerIndex, &p.ExtChar); err != nil {
			return nil, fmt.Errorf("scan player settings: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
