package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS postings (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    company TEXT,
    city TEXT,
    state TEXT,
    country TEXT,
    url TEXT,
    description TEXT,
    salary_min REAL,
    salary_max REAL,
    salary_currency TEXT,
    posted_date TEXT,
    source TEXT NOT NULL,
    fetch_day TEXT NOT NULL,
    collected_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS forecasts (
    date TEXT NOT NULL,
    category TEXT NOT NULL,
    forecast REAL NOT NULL,
    lower REAL NOT NULL,
    upper REAL NOT NULL,
    generated_at TEXT DEFAULT (datetime('now')),
    PRIMARY KEY (date, category)
);

CREATE TABLE IF NOT EXISTS run_reports (
    id TEXT PRIMARY KEY,
    fetch_day TEXT NOT NULL,
    degraded INTEGER DEFAULT 0,
    posting_count INTEGER DEFAULT 0,
    alert_count INTEGER DEFAULT 0,
    momentum_score REAL DEFAULT 0,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_postings_fetch_day ON postings(fetch_day);
CREATE INDEX IF NOT EXISTS idx_postings_posted_date ON postings(posted_date);
CREATE INDEX IF NOT EXISTS idx_postings_source ON postings(source);
CREATE INDEX IF NOT EXISTS idx_forecasts_category ON forecasts(category);
CREATE INDEX IF NOT EXISTS idx_run_reports_fetch_day ON run_reports(fetch_day);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
