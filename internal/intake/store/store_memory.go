package store

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"lumine/internal/intake/models"
	"lumine/pkg/platform/sentinel"
)

// InMemoryStore keeps intake rows in maps. Uniqueness of fingerprints and
// guardian phones is enforced the same way the PostgreSQL constraints do.
type InMemoryStore struct {
	mu               sync.RWMutex
	guardians        map[uuid.UUID]models.Guardian
	guardiansByPhone map[string]uuid.UUID
	preRegistrations map[uuid.UUID]models.PreRegistrationRecord
	preByFingerprint map[string]uuid.UUID
	triages          map[uuid.UUID]models.TriageRecord
	enrollments      map[string]models.EnrollmentRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		guardians:        make(map[uuid.UUID]models.Guardian),
		guardiansByPhone: make(map[string]uuid.UUID),
		preRegistrations: make(map[uuid.UUID]models.PreRegistrationRecord),
		preByFingerprint: make(map[string]uuid.UUID),
		triages:          make(map[uuid.UUID]models.TriageRecord),
		enrollments:      make(map[string]models.EnrollmentRecord),
	}
}

func (s *InMemoryStore) FindPreRegistrationByFingerprint(_ context.Context, fingerprint string) (models.PreRegistrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.preByFingerprint[fingerprint]
	if !ok {
		return models.PreRegistrationRecord{}, sentinel.ErrNotFound
	}
	return s.preRegistrations[id], nil
}

func (s *InMemoryStore) FindPreRegistration(_ context.Context, id uuid.UUID) (models.PreRegistrationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.preRegistrations[id]
	if !ok {
		return models.PreRegistrationRecord{}, sentinel.ErrNotFound
	}
	return rec, nil
}

// ClaimFingerprint inserts the pre-registration. sentinel.ErrConflict means the
// fingerprint already belongs to another submission.
func (s *InMemoryStore) ClaimFingerprint(_ context.Context, rec models.PreRegistrationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.preByFingerprint[rec.Fingerprint]; taken {
		return sentinel.ErrConflict
	}
	s.preRegistrations[rec.ID] = rec
	s.preByFingerprint[rec.Fingerprint] = rec.ID
	return nil
}

// AttachPreRegistration records the guardian and public id resolved after the claim.
func (s *InMemoryStore) AttachPreRegistration(_ context.Context, id, guardianID uuid.UUID, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.preRegistrations[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.GuardianID = guardianID
	rec.PublicID = publicID
	s.preRegistrations[id] = rec
	return nil
}

func (s *InMemoryStore) MarkConverted(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.preRegistrations[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec.Converted = true
	s.preRegistrations[id] = rec
	return nil
}

func (s *InMemoryStore) FindGuardianByPhone(_ context.Context, phone string) (models.Guardian, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.guardiansByPhone[phone]
	if !ok {
		return models.Guardian{}, sentinel.ErrNotFound
	}
	return s.guardians[id], nil
}

// CreateGuardian returns sentinel.ErrConflict when the phone is already taken.
func (s *InMemoryStore) CreateGuardian(_ context.Context, g models.Guardian) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.guardiansByPhone[g.PrimaryPhone]; taken {
		return sentinel.ErrConflict
	}
	s.guardians[g.ID] = g
	s.guardiansByPhone[g.PrimaryPhone] = g.ID
	return nil
}

func (s *InMemoryStore) UpdateGuardian(_ context.Context, g models.Guardian) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guardians[g.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.guardians[g.ID] = g
	return nil
}

func (s *InMemoryStore) UpsertTriage(_ context.Context, rec models.TriageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triages[rec.PreRegistrationID] = rec
	return nil
}

func (s *InMemoryStore) UpsertEnrollment(_ context.Context, rec models.EnrollmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ParticipationDays = slices.Clone(rec.ParticipationDays)
	rec.Documents = slices.Clone(rec.Documents)
	s.enrollments[rec.IndividualID] = rec
	return nil
}

// FindTriage and FindEnrollment read back stored rows.
func (s *InMemoryStore) FindTriage(_ context.Context, preRegistrationID uuid.UUID) (models.TriageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.triages[preRegistrationID]
	if !ok {
		return models.TriageRecord{}, sentinel.ErrNotFound
	}
	return rec, nil
}

func (s *InMemoryStore) FindEnrollment(_ context.Context, individualID string) (models.EnrollmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.enrollments[individualID]
	if !ok {
		return models.EnrollmentRecord{}, sentinel.ErrNotFound
	}
	return rec, nil
}

// GuardianCount is used by tests to assert deduplication.
func (s *InMemoryStore) GuardianCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.guardians)
}
