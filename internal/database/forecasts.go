package database

import "fmt"

// ReplaceCategoryForecasts replaces all stored forecasts for a category with
// a fresh set, so each run keeps exactly one horizon per category.
func (db *DB) ReplaceCategoryForecasts(category string, forecasts []Forecast) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin forecast replace: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM forecasts WHERE category = ?", category); err != nil {
		tx.Rollback()
		return fmt.Errorf("clearing forecasts for %s: %w", category, err)
	}

	for _, f := range forecasts {
		_, err := tx.Exec(
			`INSERT INTO forecasts (date, category, forecast, lower, upper)
			VALUES (?, ?, ?, ?, ?)`,
			f.Date, category, f.Forecast, f.Lower, f.Upper,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting forecast %s/%s: %w", f.Date, category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit forecast replace: %w", err)
	}
	return nil
}

// GetAllForecasts returns every stored forecast ordered by category and date.
func (db *DB) GetAllForecasts() ([]Forecast, error) {
	rows, err := db.conn.Query(
		`SELECT date, category, forecast, lower, upper, generated_at
		FROM forecasts ORDER BY category, date`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []Forecast
	for rows.Next() {
		var f Forecast
		if err := rows.Scan(&f.Date, &f.Category, &f.Forecast, &f.Lower,
			&f.Upper, &f.GeneratedAt); err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, rows.Err()
}
