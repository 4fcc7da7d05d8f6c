package snapshot

import (
	"context"
	"sort"
	"sync"

	"lumine/internal/dataset/models"
	"lumine/pkg/platform/sentinel"
)

// InMemoryStore holds both collections in maps. ReplaceAll builds the new maps
// first and swaps them in one step, so readers never see a half-written dataset.
type InMemoryStore struct {
	mu          sync.RWMutex
	individuals map[string]models.Individual
	records     map[string]models.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		individuals: make(map[string]models.Individual),
		records:     make(map[string]models.Record),
	}
}

func (s *InMemoryStore) ListIndividuals(_ context.Context) ([]models.Individual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Individual, 0, len(s.individuals))
	for _, ind := range s.individuals {
		out = append(out, ind.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) ListRecords(_ context.Context) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) Counts(_ context.Context) (models.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.Counts{Individuals: len(s.individuals), Records: len(s.records)}, nil
}

func (s *InMemoryStore) FindIndividual(_ context.Context, id string) (models.Individual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ind, ok := s.individuals[id]
	if !ok {
		return models.Individual{}, sentinel.ErrNotFound
	}
	return ind.Clone(), nil
}

func (s *InMemoryStore) FindRecord(_ context.Context, id string) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return models.Record{}, sentinel.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (s *InMemoryStore) UpsertIndividual(_ context.Context, ind models.Individual) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.individuals[ind.ID] = ind.Clone()
	return nil
}

// InsertRecord returns sentinel.ErrConflict when the id already exists.
func (s *InMemoryStore) InsertRecord(_ context.Context, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return sentinel.ErrConflict
	}
	s.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *InMemoryStore) ReplaceAll(ctx context.Context, individuals []models.Individual, records []models.Record) error {
	nextIndividuals := make(map[string]models.Individual, len(individuals))
	for _, ind := range individuals {
		nextIndividuals[ind.ID] = ind.Clone()
	}
	nextRecords := make(map[string]models.Record, len(records))
	for _, rec := range records {
		nextRecords[rec.ID] = cloneRecord(rec)
	}
	// caller gave up while the new maps were being built
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.individuals = nextIndividuals
	s.records = nextRecords
	return nil
}

func cloneRecord(r models.Record) models.Record {
	out := r
	out.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}
