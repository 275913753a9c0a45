package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStorage implements EventStorage in process memory
type MemoryStorage struct {
	runs  map[string][]Record
	mutex sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		runs: make(map[string][]Record),
	}
}

// Append stores one event record
func (m *MemoryStorage) Append(ctx context.Context, rec Record) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rec.Payload = append([]byte(nil), rec.Payload...)
	m.runs[rec.RunID] = append(m.runs[rec.RunID], rec)
	return nil
}

// Events returns the records of a run ordered by sequence number
func (m *MemoryStorage) Events(ctx context.Context, runID string) ([]Record, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	recs, ok := m.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}

	out := make([]Record, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Runs returns summaries of the most recent runs, newest first
func (m *MemoryStorage) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	summaries := make([]RunSummary, 0, len(m.runs))
	for id, recs := range m.runs {
		s := RunSummary{RunID: id, Events: len(recs)}
		for i, rec := range recs {
			if i == 0 || rec.Time.Before(s.Started) {
				s.Started = rec.Time
			}
			if rec.Time.After(s.Ended) {
				s.Ended = rec.Time
			}
		}
		summaries = append(summaries, s)
	}

	sortRuns(summaries)
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// DeleteRun removes every record of a run
func (m *MemoryStorage) DeleteRun(ctx context.Context, runID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.runs[runID]; !ok {
		return ErrRunNotFound
	}
	delete(m.runs, runID)
	return nil
}

// Close is a no-op
func (m *MemoryStorage) Close() error {
	return nil
}

// Health always succeeds
func (m *MemoryStorage) Health(ctx context.Context) error {
	return nil
}

func sortRuns(summaries []RunSummary) {
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Started.Equal(summaries[j].Started) {
			return summaries[i].RunID < summaries[j].RunID
		}
		return summaries[i].Started.After(summaries[j].Started)
	})
}
