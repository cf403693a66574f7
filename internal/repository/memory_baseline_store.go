package repository

import (
	"context"
	"sort"
	"sync"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
)

var _ repository.BaselineRepository = (*MemoryBaselineStore)(nil)

// MemoryBaselineStore keeps baselines in process. Used for tests and the
// "memory" backend.
type MemoryBaselineStore struct {
	mu   sync.RWMutex
	rows map[string]models.Baseline
}

func NewMemoryBaselineStore() *MemoryBaselineStore {
	return &MemoryBaselineStore{rows: make(map[string]models.Baseline)}
}

func memKey(userID string, metric models.MetricType) string {
	return userID + "\x00" + string(metric)
}

func (s *MemoryBaselineStore) Get(_ context.Context, userID string, metric models.MetricType) (*models.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.rows[memKey(userID, metric)]
	if !ok {
		return nil, nil
	}
	out := b.Clone()
	return &out, nil
}

func (s *MemoryBaselineStore) Upsert(_ context.Context, b models.Baseline) (models.Baseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(b.UserID, b.MetricType)
	var current int64
	if cur, ok := s.rows[k]; ok {
		current = cur.Version
	}
	if current != b.Version {
		return models.Baseline{}, models.ErrConflict
	}
	stored := b.Clone()
	stored.Version = current + 1
	s.rows[k] = stored
	return stored.Clone(), nil
}

func (s *MemoryBaselineStore) ListByUser(_ context.Context, userID string) ([]models.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Baseline, 0)
	for _, b := range s.rows {
		if b.UserID == userID {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricType < out[j].MetricType })
	return out, nil
}

// Put stores b unconditionally, bumping its version. Seeds fixtures in tests.
func (s *MemoryBaselineStore) Put(b models.Baseline) models.Baseline {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(b.UserID, b.MetricType)
	stored := b.Clone()
	stored.Version = s.rows[k].Version + 1
	s.rows[k] = stored
	return stored.Clone()
}
