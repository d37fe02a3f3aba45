// Package ingest holds what every history importer reports.
package ingest

// Result holds the outcome of an ingest operation.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	SessionsInserted int `json:"sessions_inserted"`
	SessionsSkipped  int `json:"sessions_skipped"`
	// SessionsUnsynced were accepted in memory but their write failed.
	SessionsUnsynced int `json:"sessions_unsynced,omitempty"`

	SetsReceived int `json:"sets_received"`

	Message string `json:"message,omitempty"`
}

// Add accumulates o into r.
func (r *Result) Add(o Result) {
	r.SessionsReceived += o.SessionsReceived
	r.SessionsInserted += o.SessionsInserted
	r.SessionsSkipped += o.SessionsSkipped
	r.SessionsUnsynced += o.SessionsUnsynced
	r.SetsReceived += o.SetsReceived
}
