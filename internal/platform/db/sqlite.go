package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the SQLite file at path and ensures
// the intake schema exists.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; concurrent claims still race between their
	// select and their conditional update, which is what MarkUsedIf guards.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	if err := EnsureSQLiteSchema(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// EnsureSQLiteSchema creates the intake tables. Safe to call repeatedly.
func EnsureSQLiteSchema(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS participants (
    participant_number   TEXT PRIMARY KEY,
    participant_password TEXT NOT NULL,
    id_used              INTEGER NOT NULL DEFAULT 0,
    study_group          TEXT CHECK (study_group IN ('Intervention', 'Control')),
    claimed_at           DATETIME,
    CHECK ((id_used = 1) = (study_group IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_participants_unused ON participants (participant_number) WHERE id_used = 0;

CREATE TABLE IF NOT EXISTS pretest_responses (
    id                         TEXT PRIMARY KEY,
    participant_number         TEXT NOT NULL,
    is_registered_nurse        INTEGER NOT NULL,
    provides_consent           INTEGER NOT NULL,
    understands_voluntary      INTEGER NOT NULL,
    who5_cheerful              INTEGER,
    who5_calm                  INTEGER,
    who5_active                INTEGER,
    who5_rested                INTEGER,
    who5_interested            INTEGER,
    pss4_unable_control        INTEGER,
    pss4_confident_handle      INTEGER,
    pss4_going_your_way        INTEGER,
    pss4_difficulties_piling   INTEGER,
    cope_concentrating_efforts INTEGER,
    cope_taking_action         INTEGER,
    cope_strategy              INTEGER,
    cope_thinking_steps        INTEGER,
    cope_different_light       INTEGER,
    cope_looking_good          INTEGER,
    cope_accepting_reality     INTEGER,
    cope_learning_live         INTEGER,
    cope_emotional_support     INTEGER,
    cope_comfort_understanding INTEGER,
    cope_work_activities       INTEGER,
    cope_movies_tv_reading     INTEGER,
    cope_criticizing_myself    INTEGER,
    cope_blaming_myself        INTEGER,
    burnout_level              TEXT,
    additional_comments        TEXT NOT NULL DEFAULT '',
    submitted_at               DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pretest_responses_participant ON pretest_responses (participant_number);

CREATE TABLE IF NOT EXISTS demographic_surveys (
    id                        TEXT PRIMARY KEY,
    participant_id            TEXT NOT NULL,
    age_group                 TEXT,
    gender                    TEXT,
    marital_status            TEXT,
    educational_qualification TEXT,
    educational_other         TEXT,
    designation               TEXT,
    income_level              TEXT,
    years_experience          TEXT,
    working_unit              TEXT,
    working_unit_other        TEXT,
    work_shift                TEXT,
    hours_per_day             TEXT,
    night_shifts_per_month    TEXT,
    night_shifts_other        TEXT,
    place_of_residence        TEXT,
    residence_other           TEXT,
    created_at                DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_demographic_surveys_participant ON demographic_surveys (participant_id);
`
