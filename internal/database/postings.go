package database

import (
	"database/sql"
	"fmt"
)

// InsertPostings inserts a batch of postings for a fetch day inside a single
// transaction. Postings whose ID already exists are silently skipped, so the
// stored corpus only ever grows. Returns the number actually inserted.
func (db *DB) InsertPostings(postings []Posting) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO postings
		(id, title, company, city, state, country, url, description,
		 salary_min, salary_max, salary_currency, posted_date, source, fetch_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, p := range postings {
		result, err := stmt.Exec(
			p.ID, p.Title, p.Company, p.City, p.State, p.Country, p.URL,
			p.Description, p.SalaryMin, p.SalaryMax, p.Currency,
			p.PostedDate, p.Source, p.FetchDay,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("inserting posting %s: %w", p.ID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

const postingColumns = `id, title, company, city, state, country, url, description,
	salary_min, salary_max, salary_currency, posted_date, source, fetch_day, collected_at`

// GetAllPostings returns the entire stored corpus ordered by posted date.
func (db *DB) GetAllPostings() ([]Posting, error) {
	rows, err := db.conn.Query(
		`SELECT ` + postingColumns + ` FROM postings ORDER BY posted_date, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPostings(rows)
}

// GetPostingsForDay returns all postings collected on a given fetch day.
func (db *DB) GetPostingsForDay(fetchDay string) ([]Posting, error) {
	rows, err := db.conn.Query(
		`SELECT `+postingColumns+` FROM postings WHERE fetch_day = ? ORDER BY id`,
		fetchDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPostings(rows)
}

// LatestFetchDay returns the most recent fetch day strictly before the given
// day, or "" if no earlier batch exists.
func (db *DB) LatestFetchDay(before string) (string, error) {
	var day string
	err := db.conn.QueryRow(
		"SELECT fetch_day FROM postings WHERE fetch_day < ? ORDER BY fetch_day DESC LIMIT 1",
		before,
	).Scan(&day)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return day, nil
}

// UpdatePostingDescription fills in a posting's description after fetching.
func (db *DB) UpdatePostingDescription(id string, description *string) error {
	_, err := db.conn.Exec(
		"UPDATE postings SET description = ? WHERE id = ?", description, id,
	)
	return err
}

// GetPostingsNeedingDescription returns postings with an empty description
// and a URL to fetch from.
func (db *DB) GetPostingsNeedingDescription() ([]Posting, error) {
	rows, err := db.conn.Query(
		`SELECT ` + postingColumns + ` FROM postings
		WHERE (description IS NULL OR description = '')
		AND url IS NOT NULL AND url != ''
		ORDER BY fetch_day DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPostings(rows)
}

// GetStats returns aggregate corpus statistics.
func (db *DB) GetStats() (*Stats, error) {
	var s Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM postings", &s.TotalPostings},
		{"SELECT COUNT(DISTINCT fetch_day) FROM postings", &s.FetchDays},
		{"SELECT COUNT(DISTINCT source) FROM postings", &s.Sources},
		{"SELECT COUNT(*) FROM forecasts", &s.Forecasts},
		{"SELECT COUNT(*) FROM run_reports", &s.Runs},
	}
	for _, q := range queries {
		if err := db.conn.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func scanPostings(rows *sql.Rows) ([]Posting, error) {
	var postings []Posting
	for rows.Next() {
		var p Posting
		if err := rows.Scan(&p.ID, &p.Title, &p.Company, &p.City, &p.State,
			&p.Country, &p.URL, &p.Description, &p.SalaryMin, &p.SalaryMax,
			&p.Currency, &p.PostedDate, &p.Source, &p.FetchDay, &p.CollectedAt); err != nil {
			return nil, err
		}
		postings = append(postings, p)
	}
	return postings, rows.Err()
}
