package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"VitalPulse/internal/domain/models"
	"VitalPulse/internal/domain/repository"
)

var _ repository.RecordsStore = (*MemoryRecordsStore)(nil)

// MemoryRecordsStore is the in-process stand-in for the ClickHouse record tables.
type MemoryRecordsStore struct {
	mu        sync.RWMutex
	latest    map[string]models.Observation
	activity  map[string]models.ActivityRecord
	sleep     map[string]models.SleepRecord
	doses     map[string][]models.MedicationDose
	syncs     map[string]time.Time
	locations map[string]*time.Location
}

func NewMemoryRecordsStore() *MemoryRecordsStore {
	return &MemoryRecordsStore{
		latest:    make(map[string]models.Observation),
		activity:  make(map[string]models.ActivityRecord),
		sleep:     make(map[string]models.SleepRecord),
		doses:     make(map[string][]models.MedicationDose),
		syncs:     make(map[string]time.Time),
		locations: make(map[string]*time.Location),
	}
}

// Store keeps the newest observation per (user, metric).
func (s *MemoryRecordsStore) Store(_ context.Context, obs models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(obs.UserID, obs.MetricType)
	if cur, ok := s.latest[k]; ok && cur.Timestamp.After(obs.Timestamp) {
		return nil
	}
	s.latest[k] = obs
	return nil
}

func (s *MemoryRecordsStore) Latest(_ context.Context, userID string, metric models.MetricType) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obs, ok := s.latest[memKey(userID, metric)]
	return obs.Value, ok, nil
}

func (s *MemoryRecordsStore) PutActivity(userID string, r models.ActivityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[userID] = r
}

func (s *MemoryRecordsStore) PutSleep(userID string, r models.SleepRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleep[userID] = r
}

func (s *MemoryRecordsStore) AddDose(userID string, d models.MedicationDose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doses[userID] = append(s.doses[userID], d)
}

func (s *MemoryRecordsStore) PutSync(userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs[userID] = at
}

func (s *MemoryRecordsStore) SetLocation(userID string, loc *time.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[userID] = loc
}

func (s *MemoryRecordsStore) LatestActivity(_ context.Context, userID string) (*models.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.activity[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryRecordsStore) LatestSleep(_ context.Context, userID string) (*models.SleepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.sleep[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *MemoryRecordsStore) UnconfirmedDoses(_ context.Context, userID string, from, to time.Time) ([]models.MedicationDose, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.MedicationDose, 0)
	for _, d := range s.doses[userID] {
		if d.ConfirmedAt == nil && !d.ScheduledAt.Before(from) && !d.ScheduledAt.After(to) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (s *MemoryRecordsStore) LastDeviceSync(_ context.Context, userID string) (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.syncs[userID]
	if !ok {
		return nil, nil
	}
	return &at, nil
}

func (s *MemoryRecordsStore) UserLocation(_ context.Context, userID string) (*time.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locations[userID], nil
}
