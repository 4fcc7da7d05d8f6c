//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lumine/internal/enrollment"
	"lumine/internal/intake/models"
	"lumine/internal/intake/store"
	"lumine/pkg/platform/sentinel"
	"lumine/pkg/platform/tx"
	"lumine/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(),
		"pre_registrations", "guardians", "triages", "enrollments"))
}

func (s *PostgresStoreSuite) record(fingerprint string) models.PreRegistrationRecord {
	return models.PreRegistrationRecord{
		ID:           uuid.New(),
		Fingerprint:  fingerprint,
		IndividualID: uuid.NewString(),
		Submission:   models.PreRegistration{IndividualName: "Ana Souza", BirthDate: "2017-04-09"},
		CreatedAt:    s.now,
	}
}

func (s *PostgresStoreSuite) TestClaimFingerprintOnce() {
	ctx := context.Background()

	first := s.record("fp-1")
	s.Require().NoError(s.store.ClaimFingerprint(ctx, first))

	err := s.store.ClaimFingerprint(ctx, s.record("fp-1"))
	s.ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.FindPreRegistrationByFingerprint(ctx, "fp-1")
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID)
	s.Equal("Ana Souza", got.Submission.IndividualName)
	s.Equal(uuid.Nil, got.GuardianID)
}

func (s *PostgresStoreSuite) TestClaimLosingToCommitOutsideSnapshotIsConflict() {
	ctx := context.Background()
	runner := tx.NewPostgresRunner(s.postgres.DB)

	err := runner.RunInTx(ctx, func(txCtx context.Context) error {
		_, err := s.store.FindPreRegistrationByFingerprint(txCtx, "fp-race")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		s.Require().NoError(s.store.ClaimFingerprint(ctx, s.record("fp-race")))
		return s.store.ClaimFingerprint(txCtx, s.record("fp-race"))
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestAttachAndConvert() {
	ctx := context.Background()
	rec := s.record("fp-2")
	s.Require().NoError(s.store.ClaimFingerprint(ctx, rec))

	guardian := models.Guardian{ID: uuid.New(), Name: "Maria", PrimaryPhone: "11988887777", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateGuardian(ctx, guardian))
	s.Require().NoError(s.store.AttachPreRegistration(ctx, rec.ID, guardian.ID, "CRI-0001"))
	s.Require().NoError(s.store.MarkConverted(ctx, rec.ID))

	got, err := s.store.FindPreRegistration(ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(guardian.ID, got.GuardianID)
	s.Equal("CRI-0001", got.PublicID)
	s.True(got.Converted)

	s.ErrorIs(s.store.MarkConverted(ctx, uuid.New()), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestGuardianPhoneIsUnique() {
	ctx := context.Background()
	g := models.Guardian{ID: uuid.New(), Name: "Maria", PrimaryPhone: "11988887777", CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.CreateGuardian(ctx, g))

	dup := g
	dup.ID = uuid.New()
	s.ErrorIs(s.store.CreateGuardian(ctx, dup), sentinel.ErrConflict)

	g.Enrich("1133334444", "Centro")
	s.Require().NoError(s.store.UpdateGuardian(ctx, g))
	got, err := s.store.FindGuardianByPhone(ctx, "11988887777")
	s.Require().NoError(err)
	s.Equal("1133334444", got.AlternatePhone)
	s.Equal("Centro", got.Neighbourhood)
}

func (s *PostgresStoreSuite) TestUpsertsOverwrite() {
	ctx := context.Background()
	preID := uuid.New()

	triage := models.TriageRecord{
		Triage:       models.Triage{PreRegistrationID: preID, Result: enrollment.StatusWaitlisted},
		IndividualID: "ind-1",
		UpdatedAt:    s.now,
	}
	s.Require().NoError(s.store.UpsertTriage(ctx, triage))
	triage.Result = enrollment.StatusApproved
	s.Require().NoError(s.store.UpsertTriage(ctx, triage))

	gotTriage, err := s.store.FindTriage(ctx, preID)
	s.Require().NoError(err)
	s.Equal(enrollment.StatusApproved, gotTriage.Result)

	enroll := models.EnrollmentRecord{
		Enrollment: models.Enrollment{
			IndividualID:      "ind-1",
			StartDate:         "2026-03-01",
			ParticipationDays: []string{"seg", "qua"},
			TermsAccepted:     true,
			CanLeaveAlone:     "nao",
		},
		UpdatedAt: s.now,
	}
	s.Require().NoError(s.store.UpsertEnrollment(ctx, enroll))
	enroll.ParticipationDays = []string{"sex"}
	s.Require().NoError(s.store.UpsertEnrollment(ctx, enroll))

	gotEnroll, err := s.store.FindEnrollment(ctx, "ind-1")
	s.Require().NoError(err)
	s.Equal([]string{"sex"}, gotEnroll.ParticipationDays)
	s.Empty(gotEnroll.Documents)
}

func (s *PostgresStoreSuite) TestWritesJoinTransaction() {
	ctx := context.Background()
	runner := tx.NewPostgresRunner(s.postgres.DB)
	boom := errors.New("boom")

	err := runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.ClaimFingerprint(ctx, s.record("fp-rollback")); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.store.FindPreRegistrationByFingerprint(ctx, "fp-rollback")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
