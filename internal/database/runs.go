package database

import "database/sql"

// InsertRunReport records metadata for a completed pipeline run.
func (db *DB) InsertRunReport(r RunReport) error {
	degraded := 0
	if r.Degraded {
		degraded = 1
	}
	_, err := db.conn.Exec(
		`INSERT INTO run_reports (id, fetch_day, degraded, posting_count, alert_count, momentum_score)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.FetchDay, degraded, r.PostingCount, r.AlertCount, r.MomentumScore,
	)
	return err
}

// GetLatestRunReport returns the most recent run report, or nil if none exists.
func (db *DB) GetLatestRunReport() (*RunReport, error) {
	row := db.conn.QueryRow(
		`SELECT id, fetch_day, degraded, posting_count, alert_count, momentum_score, generated_at
		FROM run_reports ORDER BY generated_at DESC, fetch_day DESC LIMIT 1`,
	)
	var r RunReport
	var degraded int
	err := row.Scan(&r.ID, &r.FetchDay, &degraded, &r.PostingCount,
		&r.AlertCount, &r.MomentumScore, &r.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Degraded = degraded != 0
	return &r, nil
}
