// Package importer walks a directory of Alpha Progression CSV exports and
// sends each new or changed file to a Sink.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/wotracker/internal/ingest"
	"github.com/claude/wotracker/internal/ingest/alpha"
)

// Sink accepts one export file. *client.Client and ProviderSink satisfy it.
type Sink interface {
	ImportAlpha(ctx context.Context, name string, r io.Reader) (*ingest.Result, error)
}

// ProviderSink imports straight into a session importer, bypassing HTTP.
type ProviderSink struct {
	Provider *alpha.Provider
	Dst      alpha.SessionImporter
}

// ImportAlpha parses r and imports its sessions.
func (p ProviderSink) ImportAlpha(ctx context.Context, name string, r io.Reader) (*ingest.Result, error) {
	res, err := p.Provider.Ingest(ctx, r, p.Dst)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", name, err)
	}
	return res, nil
}

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	ingest.Result
}

// Importer sends export files to a sink, remembering what it sent.
type Importer struct {
	sink   Sink
	state  *StateDB
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates an Importer. state may be nil to import every file on every
// run. In dry-run mode files are parsed and counted but nothing is sent.
func New(sink Sink, state *StateDB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{sink: sink, state: state, log: log, dryRun: dryRun}
}

// IsExport reports whether name looks like a CSV export.
func IsExport(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".csv.gz")
}

// Import processes root, which is either one export file or a directory
// searched recursively. A file that fails to parse or send is counted and
// logged, and the walk continues. Context cancellation stops the walk.
func (imp *Importer) Import(ctx context.Context, root string) (*Stats, error) {
	files, err := findExports(root)
	if err != nil {
		return &imp.stats, err
	}
	base := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		base = filepath.Dir(root)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}
		if err := imp.importFile(ctx, base, f); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return &imp.stats, err
			}
			imp.log.Warn("import failed", "file", f, "error", err)
			imp.stats.FilesErrored++
		}
	}
	return &imp.stats, nil
}

func findExports(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsExport(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (imp *Importer) importFile(ctx context.Context, base, path string) error {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		rel = path
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}

	if imp.state != nil {
		done, err := imp.state.IsImported(rel, info.Size(), hash)
		if err != nil {
			return err
		}
		if done {
			imp.log.Debug("unchanged, skipping", "file", rel)
			imp.stats.FilesSkipped++
			return nil
		}
	}

	r, err := openExport(path)
	if err != nil {
		return err
	}
	defer r.Close()

	if imp.dryRun {
		sessions, err := alpha.Parse(r)
		if err != nil {
			return fmt.Errorf("parsing: %w", err)
		}
		imp.stats.FilesProcessed++
		imp.stats.SessionsReceived += len(sessions)
		for _, s := range sessions {
			for _, e := range s.Exercises {
				imp.stats.SetsReceived += len(e.WorkingSets())
			}
		}
		return nil
	}

	res, err := imp.sink.ImportAlpha(ctx, rel, r)
	if err != nil {
		return err
	}
	imp.stats.FilesProcessed++
	imp.stats.Add(*res)
	imp.log.Info("imported", "file", rel,
		"sessions", res.SessionsReceived, "inserted", res.SessionsInserted, "skipped", res.SessionsSkipped)

	// Files whose sessions were only kept in memory are retried next run.
	if imp.state != nil && res.SessionsUnsynced == 0 {
		if err := imp.state.MarkImported(rel, info.Size(), hash); err != nil {
			return err
		}
	}
	return nil
}
