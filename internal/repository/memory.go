package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/wotracker/internal/models"
)

// Memory is an in-process Repository. It backs tests and ephemeral runs.
// FailWrites makes every save, delete and activate return the given error.
type Memory struct {
	mu         sync.Mutex
	plans      map[int]map[uuid.UUID]models.Plan
	active     map[int]uuid.UUID
	sessions   map[int]map[uuid.UUID]models.Session
	settings   map[int]models.Settings
	imports    []models.ImportLog
	failWrites error
	writes     int
}

var (
	_ Repository = (*Memory)(nil)
	_ Admin      = (*Memory)(nil)
)

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		plans:    make(map[int]map[uuid.UUID]models.Plan),
		active:   make(map[int]uuid.UUID),
		sessions: make(map[int]map[uuid.UUID]models.Session),
		settings: make(map[int]models.Settings),
	}
}

// FailWrites sets the error returned by subsequent writes. nil restores them.
func (m *Memory) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = err
}

// Writes counts write calls that reached storage successfully.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *Memory) write() error {
	if m.failWrites != nil {
		return m.failWrites
	}
	m.writes++
	return nil
}

func (m *Memory) FetchPlans(_ context.Context, userID int) ([]models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Plan, 0, len(m.plans[userID]))
	for _, p := range m.plans[userID] {
		p = p.Clone()
		p.IsActive = p.ID == m.active[userID]
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) SavePlan(_ context.Context, userID int, p models.Plan) (models.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(); err != nil {
		return models.Plan{}, err
	}
	if m.plans[userID] == nil {
		m.plans[userID] = make(map[uuid.UUID]models.Plan)
	}
	m.plans[userID][p.ID] = p.Clone()
	return p, nil
}

func (m *Memory) DeletePlan(_ context.Context, userID int, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(); err != nil {
		return false, err
	}
	if _, ok := m.plans[userID][id]; !ok {
		return false, nil
	}
	delete(m.plans[userID], id)
	if m.active[userID] == id {
		delete(m.active, userID)
	}
	return true, nil
}

func (m *Memory) SetActivePlan(_ context.Context, userID int, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(); err != nil {
		return err
	}
	if id == uuid.Nil {
		delete(m.active, userID)
		return nil
	}
	if _, ok := m.plans[userID][id]; !ok {
		return ErrNotFound
	}
	m.active[userID] = id
	return nil
}

func (m *Memory) ActivePlanID(_ context.Context, userID int) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[userID], nil
}

func (m *Memory) FetchSessions(_ context.Context, userID int) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Session, 0, len(m.sessions[userID]))
	for _, s := range m.sessions[userID] {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

func (m *Memory) SaveSession(_ context.Context, userID int, s models.Session) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(); err != nil {
		return models.Session{}, err
	}
	if m.sessions[userID] == nil {
		m.sessions[userID] = make(map[uuid.UUID]models.Session)
	}
	m.sessions[userID][s.ID] = s.Clone()
	return s, nil
}

func (m *Memory) ActiveSession(_ context.Context, userID int) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *models.Session
	for _, s := range m.sessions[userID] {
		if s.Status != models.StatusInProgress {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			c := s.Clone()
			latest = &c
		}
	}
	return latest, nil
}

func (m *Memory) FetchSettings(_ context.Context, userID int) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.settings[userID]; ok {
		return s, nil
	}
	return models.DefaultSettings(), nil
}

func (m *Memory) SaveSettings(_ context.Context, userID int, s models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(); err != nil {
		return err
	}
	m.settings[userID] = s
	return nil
}

func (m *Memory) InsertImportLog(_ context.Context, log models.ImportLog) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.ID = int64(len(m.imports) + 1)
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	m.imports = append(m.imports, log)
	return log.ID, nil
}

func (m *Memory) QueryImportLogs(_ context.Context, userID, limit int) ([]models.ImportLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		limit = DefaultImportLogLimit
	}
	var out []models.ImportLog
	for i := len(m.imports) - 1; i >= 0 && len(out) < limit; i-- {
		if m.imports[i].UserID == userID {
			out = append(out, m.imports[i])
		}
	}
	return out, nil
}

func (m *Memory) DataStats(_ context.Context, userID int) (models.DataStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := models.DataStats{TotalPlans: int64(len(m.plans[userID]))}
	for _, s := range m.sessions[userID] {
		stats.TotalSessions++
		switch s.Status {
		case models.StatusCompleted:
			stats.Completed++
		case models.StatusAbandoned:
			stats.Abandoned++
		}
		started := s.StartedAt
		if stats.EarliestData == nil || started.Before(*stats.EarliestData) {
			stats.EarliestData = &started
		}
		last := s.LastActivity()
		if stats.LatestData == nil || last.After(*stats.LatestData) {
			stats.LatestData = &last
		}
	}
	return stats, nil
}
