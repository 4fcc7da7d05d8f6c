package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,IndividualStore,RevisionStore,IDAllocator,AuditPublisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	dsmodels "lumine/internal/dataset/models"
	"lumine/internal/dataset/revision"
	"lumine/internal/dataset/store/counter"
	"lumine/internal/dataset/store/snapshot"
	"lumine/internal/enrollment"
	"lumine/internal/intake/models"
	"lumine/internal/intake/service/mocks"
	"lumine/internal/intake/store"
	"lumine/internal/mirror"
	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/platform/audit"
	"lumine/pkg/platform/audit/publisher"
	auditmemory "lumine/pkg/platform/audit/store/memory"
	"lumine/pkg/platform/sentinel"
	"lumine/pkg/platform/tx"
	"lumine/pkg/requestcontext"
)

// =============================================================================
// Intake pipeline over in-memory stores
// =============================================================================

type IntakeSuite struct {
	suite.Suite
	ctx         context.Context
	store       *store.InMemoryStore
	individuals *snapshot.InMemoryStore
	counters    *counter.InMemoryCounter
	audits      *auditmemory.InMemoryStore
	mirror      *recordingMirror
	service     *Service
}

func TestIntakeSuite(t *testing.T) {
	suite.Run(t, new(IntakeSuite))
}

func (s *IntakeSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	s.store = store.NewInMemoryStore()
	s.individuals = snapshot.NewInMemoryStore()
	s.counters = counter.NewInMemoryCounter()
	s.audits = auditmemory.NewInMemoryStore()
	s.mirror = &recordingMirror{}

	svc, err := New(
		s.store,
		s.individuals,
		revision.NewStore(s.counters),
		revision.NewAllocator(s.counters, revision.DefaultPrefix),
		tx.NewMemoryRunner(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(publisher.NewPublisher(s.audits)),
		WithMirror(s.mirror),
	)
	s.Require().NoError(err)
	s.service = svc
}

func submission() models.PreRegistration {
	return models.PreRegistration{
		IndividualName:     "Ana Souza",
		BirthDate:          "2017-04-09",
		GuardianName:       "Maria Souza",
		PrimaryPhone:       "(11) 98888-7777",
		Neighbourhood:      "Centro",
		School:             "EMEF Azul",
		SchoolShift:        "manha",
		ReferralSource:     "CRAS",
		SchoolCommuteAlone: "nao",
		DataConsent:        true,
	}
}

func (s *IntakeSuite) requireCode(err error, code dErrors.Code) {
	s.Require().Error(err)
	s.Require().True(dErrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func (s *IntakeSuite) TestCreateThenResubmitIsDuplicated() {
	first, err := s.service.CreateIntake(s.ctx, submission())
	s.Require().NoError(err)
	s.False(first.Duplicated)
	s.Equal("CRI-0001", first.PublicID)

	again := submission()
	again.IndividualName = "  ANA   souza "
	second, err := s.service.CreateIntake(s.ctx, again)
	s.Require().NoError(err)
	s.True(second.Duplicated)
	s.Equal(first.EntityID, second.EntityID)
	s.Equal(first.PreRegistrationID, second.PreRegistrationID)
	s.Equal(first.Revision+1, second.Revision)

	counts, err := s.individuals.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, counts.Individuals)
	s.Len(s.audits.ByAction(audit.ActionIntakeCreate), 1)
	dup := s.audits.ByAction(audit.ActionIntakeDuplicate)
	s.Require().Len(dup, 1)
	s.Equal(true, dup[0].Meta["duplicated"])
}

func (s *IntakeSuite) TestCreateWritesInitialStatusAndHistory() {
	res, err := s.service.CreateIntake(s.ctx, submission())
	s.Require().NoError(err)

	ind, err := s.individuals.FindIndividual(s.ctx, res.EntityID)
	s.Require().NoError(err)
	s.Equal(enrollment.StatusInTriage, ind.Status)
	s.Equal("Ana Souza", ind.Profile["name"])
	s.Require().Len(ind.StatusHistory, 1)

	var entry dsmodels.HistoryEntry
	s.Require().NoError(json.Unmarshal(ind.StatusHistory[0], &entry))
	s.Equal("none", entry.From)
	s.Equal("in_triage", entry.To)
	s.Equal(reasonInitial, entry.Reason)

	pre, err := s.store.FindPreRegistration(s.ctx, res.PreRegistrationID)
	s.Require().NoError(err)
	s.Equal(res.PublicID, pre.PublicID)
	s.NotEqual(uuid.Nil, pre.GuardianID)

	last := s.mirror.last()
	s.Equal(mirror.StagePreRegistration, last.Stage)
	s.Equal(mirror.StatusSuccess, last.Status)
}

func (s *IntakeSuite) TestSiblingsShareGuardianAndEnrichBlanks() {
	first := submission()
	_, err := s.service.CreateIntake(s.ctx, first)
	s.Require().NoError(err)

	sibling := submission()
	sibling.IndividualName = "Bruno Souza"
	sibling.BirthDate = "2015-08-20"
	sibling.AlternatePhone = "(11) 97777-6666"
	sibling.Neighbourhood = "Vila Nova"
	res, err := s.service.CreateIntake(s.ctx, sibling)
	s.Require().NoError(err)
	s.False(res.Duplicated)
	s.Equal("CRI-0002", res.PublicID)

	s.Equal(1, s.store.GuardianCount())
	g, err := s.store.FindGuardianByPhone(s.ctx, first.PrimaryPhone)
	s.Require().NoError(err)
	s.Equal("(11) 97777-6666", g.AlternatePhone)
	s.Equal("Centro", g.Neighbourhood)
}

func (s *IntakeSuite) TestConcurrentIdenticalSubmissionsCreateOnce() {
	const n = 6
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]struct{}{}
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.service.CreateIntake(s.ctx, submission())
			s.NoError(err)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if !res.Duplicated {
				created++
			}
			ids[res.EntityID] = struct{}{}
		}()
	}
	wg.Wait()
	s.Equal(1, created)
	s.Len(ids, 1)
}

func (s *IntakeSuite) TestTriageAdvancesStatus() {
	created, err := s.service.CreateIntake(s.ctx, submission())
	s.Require().NoError(err)

	res, err := s.service.AdvanceToTriage(s.ctx, models.Triage{
		PreRegistrationID: created.PreRegistrationID,
		Result:            enrollment.StatusApproved,
		Priority:          "alta",
	})
	s.Require().NoError(err)
	s.Equal(enrollment.StatusInTriage, res.StatusBefore)
	s.Equal(enrollment.StatusApproved, res.StatusAfter)
	s.Equal(created.Revision+1, res.Revision)

	ind, err := s.individuals.FindIndividual(s.ctx, created.EntityID)
	s.Require().NoError(err)
	s.Equal(enrollment.StatusApproved, ind.Status)
	s.Len(ind.StatusHistory, 2)

	pre, err := s.store.FindPreRegistration(s.ctx, created.PreRegistrationID)
	s.Require().NoError(err)
	s.True(pre.Converted)
	row, err := s.store.FindTriage(s.ctx, created.PreRegistrationID)
	s.Require().NoError(err)
	s.Equal("alta", row.Priority)
	s.Len(s.audits.ByAction(audit.ActionTriageUpdate), 1)
}

func (s *IntakeSuite) TestTriageSameResultKeepsHistory() {
	created, err := s.service.CreateIntake(s.ctx, submission())
	s.Require().NoError(err)

	res, err := s.service.AdvanceToTriage(s.ctx, models.Triage{
		PreRegistrationID: created.PreRegistrationID,
		Result:            enrollment.StatusInTriage,
	})
	s.Require().NoError(err)
	s.Equal(res.StatusBefore, res.StatusAfter)

	ind, err := s.individuals.FindIndividual(s.ctx, created.EntityID)
	s.Require().NoError(err)
	s.Len(ind.StatusHistory, 1)
}

func (s *IntakeSuite) TestTriageUnknownPreRegistration() {
	_, err := s.service.AdvanceToTriage(s.ctx, models.Triage{PreRegistrationID: uuid.New(), Result: enrollment.StatusApproved})
	s.requireCode(err, dErrors.CodeNotFound)
	s.Equal(mirror.StatusError, s.mirror.last().Status)
}

func (s *IntakeSuite) TestEnrollmentFromApproved() {
	created, err := s.service.CreateIntake(s.ctx, submission())
	s.Require().NoError(err)
	_, err = s.service.AdvanceToTriage(s.ctx, models.Triage{PreRegistrationID: created.PreRegistrationID, Result: enrollment.StatusApproved})
	s.Require().NoError(err)

	res, err := s.service.AdvanceToEnrollment(s.ctx, models.Enrollment{
		IndividualID:      created.EntityID,
		StartDate:         "2026-03-01",
		ParticipationDays: []string{"seg", "qua"},
		AuthorizedPickup:  "Maria",
		CanLeaveAlone:     "nao",
		TermsAccepted:     true,
		Documents:         []string{"certidao_nascimento"},
	})
	s.Require().NoError(err)
	s.Equal(enrollment.StatusApproved, res.StatusBefore)
	s.Equal(enrollment.StatusEnrolled, res.StatusAfter)

	ind, err := s.individuals.FindIndividual(s.ctx, created.EntityID)
	s.Require().NoError(err)
	s.Equal(enrollment.StatusEnrolled, ind.Status)
	s.Equal("2026-03-01", ind.Profile["startDate"])

	row, err := s.store.FindEnrollment(s.ctx, created.EntityID)
	s.Require().NoError(err)
	s.Equal([]string{"seg", "qua"}, row.ParticipationDays)
}

func (s *IntakeSuite) TestEnrolledCannotBeTriagedBack() {
	created, err := s.service.CreateIntake(s.ctx, submission())
	s.Require().NoError(err)
	_, err = s.service.AdvanceToEnrollment(s.ctx, models.Enrollment{
		IndividualID:      created.EntityID,
		StartDate:         "2026-03-01",
		ParticipationDays: []string{"sex"},
		AuthorizedPickup:  "Maria",
		CanLeaveAlone:     "nao",
		TermsAccepted:     true,
	})
	s.Require().NoError(err)

	_, err = s.service.AdvanceToTriage(s.ctx, models.Triage{PreRegistrationID: created.PreRegistrationID, Result: enrollment.StatusWaitlisted})
	s.requireCode(err, dErrors.CodeTransitionNotAllowed)

	ind, err := s.individuals.FindIndividual(s.ctx, created.EntityID)
	s.Require().NoError(err)
	s.Equal(enrollment.StatusEnrolled, ind.Status)
}

func (s *IntakeSuite) TestEnrollmentUnknownIndividual() {
	_, err := s.service.AdvanceToEnrollment(s.ctx, models.Enrollment{IndividualID: "missing"})
	s.requireCode(err, dErrors.CodeNotFound)
}

// =============================================================================
// Failure paths with mocked collaborators
// =============================================================================

type IntakeFailureSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	store       *mocks.MockStore
	individuals *mocks.MockIndividualStore
	revisions   *mocks.MockRevisionStore
	ids         *mocks.MockIDAllocator
	auditor     *mocks.MockAuditPublisher
	service     *Service
}

func TestIntakeFailureSuite(t *testing.T) {
	suite.Run(t, new(IntakeFailureSuite))
}

func (s *IntakeFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.individuals = mocks.NewMockIndividualStore(s.ctrl)
	s.revisions = mocks.NewMockRevisionStore(s.ctrl)
	s.ids = mocks.NewMockIDAllocator(s.ctrl)
	s.auditor = mocks.NewMockAuditPublisher(s.ctrl)

	svc, err := New(s.store, s.individuals, s.revisions, s.ids, tx.NewMemoryRunner(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.auditor),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *IntakeFailureSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *IntakeFailureSuite) TestNewRequiresCollaborators() {
	_, err := New(s.store, nil, s.revisions, s.ids, tx.NewMemoryRunner())
	s.Error(err)
}

func (s *IntakeFailureSuite) TestLostClaimReentersDuplicatePath() {
	p := submission()
	winner := models.PreRegistrationRecord{ID: uuid.New(), IndividualID: "ind-1", PublicID: "CRI-0009"}

	gomock.InOrder(
		s.store.EXPECT().FindPreRegistrationByFingerprint(gomock.Any(), p.Fingerprint()).Return(models.PreRegistrationRecord{}, sentinel.ErrNotFound),
		s.store.EXPECT().ClaimFingerprint(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict),
		s.store.EXPECT().FindPreRegistrationByFingerprint(gomock.Any(), p.Fingerprint()).Return(winner, nil),
		s.revisions.EXPECT().Bump(gomock.Any()).Return(int64(12), nil),
		s.auditor.EXPECT().Append(gomock.Any(), gomock.Any()).Do(func(_ context.Context, e audit.Entry) {
			s.Equal(audit.ActionIntakeDuplicate, e.Action)
		}),
	)

	res, err := s.service.CreateIntake(context.Background(), p)
	s.Require().NoError(err)
	s.True(res.Duplicated)
	s.Equal("ind-1", res.EntityID)
	s.Equal(int64(12), res.Revision)
}

func (s *IntakeFailureSuite) TestSerializationConflictIsReturnedNotRetried() {
	p := submission()
	winner := models.PreRegistrationRecord{ID: uuid.New(), IndividualID: "ind-1", PublicID: "CRI-0009"}
	conflict := dErrors.New(dErrors.CodeRevisionMismatch, "concurrent modification detected")

	s.store.EXPECT().FindPreRegistrationByFingerprint(gomock.Any(), p.Fingerprint()).Return(winner, nil).Times(1)
	s.revisions.EXPECT().Bump(gomock.Any()).Return(int64(0), conflict).Times(1)

	_, err := s.service.CreateIntake(context.Background(), p)
	s.True(dErrors.HasCode(err, dErrors.CodeRevisionMismatch), "got %v", err)
}

func (s *IntakeFailureSuite) TestGuardianCreateRaceReusesWinner() {
	p := submission()
	existing := models.Guardian{ID: uuid.New(), PrimaryPhone: p.PrimaryPhone}

	s.store.EXPECT().FindPreRegistrationByFingerprint(gomock.Any(), gomock.Any()).Return(models.PreRegistrationRecord{}, sentinel.ErrNotFound)
	s.store.EXPECT().ClaimFingerprint(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().FindGuardianByPhone(gomock.Any(), p.PrimaryPhone).Return(models.Guardian{}, sentinel.ErrNotFound)
	s.store.EXPECT().CreateGuardian(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)
	s.store.EXPECT().FindGuardianByPhone(gomock.Any(), p.PrimaryPhone).Return(existing, nil)
	s.ids.EXPECT().Next(gomock.Any()).Return("CRI-0003", nil)
	s.store.EXPECT().AttachPreRegistration(gomock.Any(), gomock.Any(), existing.ID, "CRI-0003").Return(nil)
	s.individuals.EXPECT().UpsertIndividual(gomock.Any(), gomock.Any()).Return(nil)
	s.revisions.EXPECT().Bump(gomock.Any()).Return(int64(2), nil)
	s.auditor.EXPECT().Append(gomock.Any(), gomock.Any())

	res, err := s.service.CreateIntake(context.Background(), p)
	s.Require().NoError(err)
	s.False(res.Duplicated)
}

func (s *IntakeFailureSuite) TestAllocatorFailureIsInternalAndNotAudited() {
	s.store.EXPECT().FindPreRegistrationByFingerprint(gomock.Any(), gomock.Any()).Return(models.PreRegistrationRecord{}, sentinel.ErrNotFound)
	s.store.EXPECT().ClaimFingerprint(gomock.Any(), gomock.Any()).Return(nil)
	s.store.EXPECT().FindGuardianByPhone(gomock.Any(), gomock.Any()).Return(models.Guardian{}, sentinel.ErrNotFound)
	s.store.EXPECT().CreateGuardian(gomock.Any(), gomock.Any()).Return(nil)
	s.ids.EXPECT().Next(gomock.Any()).Return("", errors.New("counter unavailable"))

	_, err := s.service.CreateIntake(context.Background(), submission())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *IntakeFailureSuite) TestTriageStoreFailureDoesNotBump() {
	preID := uuid.New()
	s.store.EXPECT().FindPreRegistration(gomock.Any(), preID).Return(models.PreRegistrationRecord{ID: preID, IndividualID: "ind-1"}, nil)
	s.individuals.EXPECT().FindIndividual(gomock.Any(), "ind-1").Return(dsmodels.Individual{ID: "ind-1", Status: enrollment.StatusInTriage}, nil)
	s.store.EXPECT().UpsertTriage(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	_, err := s.service.AdvanceToTriage(context.Background(), models.Triage{PreRegistrationID: preID, Result: enrollment.StatusApproved})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

type recordingMirror struct {
	mu     sync.Mutex
	events []mirror.Event
}

func (m *recordingMirror) Publish(_ context.Context, e mirror.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *recordingMirror) last() mirror.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return mirror.Event{}
	}
	return m.events[len(m.events)-1]
}
