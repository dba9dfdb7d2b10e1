package database

import "time"

// Today returns today's UTC date as YYYY-MM-DD. Fetch batches are keyed by
// this value so repeated fetches on the same day merge into one batch.
func Today() string {
	return time.Now().UTC().Format("2006-01-02")
}
