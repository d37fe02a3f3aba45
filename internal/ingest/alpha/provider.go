package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/wotracker/internal/ingest"
	"github.com/claude/wotracker/internal/models"
	"github.com/claude/wotracker/internal/store"
)

// SessionImporter accepts finished sessions into a user's history.
type SessionImporter interface {
	ImportSessions(ctx context.Context, sessions []models.Session) (store.ImportResult, store.PersistResult, error)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	log *slog.Logger
	loc *time.Location
}

// NewProvider creates a provider reading export timestamps in loc.
func NewProvider(log *slog.Logger, loc *time.Location) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{log: log, loc: loc}
}

// Ingest parses an export and imports its sessions into dst. Sessions that
// were already imported are skipped.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, dst SessionImporter) (*ingest.Result, error) {
	parsed, err := ParseIn(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(parsed)}
	sessions := make([]models.Session, 0, len(parsed))
	for _, s := range parsed {
		sess := ToSession(s)
		for _, l := range sess.ExerciseLogs {
			result.SetsReceived += len(l.Sets)
		}
		sessions = append(sessions, sess)
	}
	if len(sessions) == 0 {
		result.Message = "no sessions found"
		return result, nil
	}

	imported, res, err := dst.ImportSessions(ctx, sessions)
	if err != nil {
		return nil, fmt.Errorf("importing sessions: %w", err)
	}
	result.SessionsInserted = imported.Inserted
	result.SessionsSkipped = imported.Skipped
	result.SessionsUnsynced = imported.Failed
	if !res.OK() {
		p.log.Warn("imported sessions not fully persisted", "failed", imported.Failed, "error", res.Err)
	}
	p.log.Info("alpha import",
		"received", result.SessionsReceived,
		"inserted", result.SessionsInserted,
		"skipped", result.SessionsSkipped,
		"sets", result.SetsReceived,
	)
	return result, nil
}
