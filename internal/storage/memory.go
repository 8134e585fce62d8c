package storage

import (
	"context"
	"sort"
	"sync"

	"genepool/internal/model"
)

type snapshotKey struct {
	runID  string
	poolID int
}

type MemoryStore struct {
	mu          sync.RWMutex
	runs        map[string]model.RunRecord
	diagnostics map[string][]model.TickDiagnostics
	snapshots   map[snapshotKey]model.PoolSnapshot
	lineage     map[string][]model.LineageRecord
	reference   map[string][]model.ReferenceResult
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

// Init clears everything stored so far.
func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	return nil
}

func (s *MemoryStore) reset() {
	s.runs = make(map[string]model.RunRecord)
	s.diagnostics = make(map[string][]model.TickDiagnostics)
	s.snapshots = make(map[snapshotKey]model.PoolSnapshot)
	s.lineage = make(map[string][]model.LineageRecord)
	s.reference = make(map[string][]model.ReferenceResult)
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.Pools = append([]string(nil), run.Pools...)
	s.runs[run.RunID] = run
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, runID string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	run.Pools = append([]string(nil), run.Pools...)
	return run, true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		run.Pools = append([]string(nil), run.Pools...)
		runs = append(runs, run)
	}
	sortRunsNewestFirst(runs)
	return runs, nil
}

func (s *MemoryStore) SaveTickDiagnostics(_ context.Context, runID string, diagnostics []model.TickDiagnostics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diagnostics[runID] = append([]model.TickDiagnostics(nil), diagnostics...)
	return nil
}

func (s *MemoryStore) GetTickDiagnostics(_ context.Context, runID string) ([]model.TickDiagnostics, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	diagnostics, ok := s.diagnostics[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.TickDiagnostics(nil), diagnostics...), true, nil
}

func (s *MemoryStore) SavePoolSnapshot(_ context.Context, snapshot model.PoolSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshotKey{snapshot.RunID, snapshot.PoolID}] = cloneSnapshot(snapshot)
	return nil
}

func (s *MemoryStore) GetPoolSnapshot(_ context.Context, runID string, poolID int) (model.PoolSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[snapshotKey{runID, poolID}]
	if !ok {
		return model.PoolSnapshot{}, false, nil
	}
	return cloneSnapshot(snapshot), true, nil
}

func (s *MemoryStore) SaveLineage(_ context.Context, runID string, lineage []model.LineageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]model.LineageRecord, len(lineage))
	for i, record := range lineage {
		record.Parents = append([]uint64(nil), record.Parents...)
		copied[i] = record
	}
	s.lineage[runID] = copied
	return nil
}

func (s *MemoryStore) GetLineage(_ context.Context, runID string) ([]model.LineageRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineage, ok := s.lineage[runID]
	if !ok {
		return nil, false, nil
	}
	copied := make([]model.LineageRecord, len(lineage))
	for i, record := range lineage {
		record.Parents = append([]uint64(nil), record.Parents...)
		copied[i] = record
	}
	return copied, true, nil
}

func (s *MemoryStore) SaveReferenceResults(_ context.Context, runID string, results []model.ReferenceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reference[runID] = append([]model.ReferenceResult(nil), results...)
	return nil
}

func (s *MemoryStore) GetReferenceResults(_ context.Context, runID string) ([]model.ReferenceResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results, ok := s.reference[runID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.ReferenceResult(nil), results...), true, nil
}

func cloneSnapshot(snapshot model.PoolSnapshot) model.PoolSnapshot {
	members := make([]model.MemberRecord, len(snapshot.Members))
	for i, m := range snapshot.Members {
		if m.MaxFitness != nil {
			v := *m.MaxFitness
			m.MaxFitness = &v
		}
		m.LastFitness = append([]uint64(nil), m.LastFitness...)
		m.Raw = append([]uint64(nil), m.Raw...)
		members[i] = m
	}
	snapshot.Members = members
	return snapshot
}

func sortRunsNewestFirst(runs []model.RunRecord) {
	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].RunID < runs[j].RunID
	})
}
