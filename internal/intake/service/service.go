// Package service runs the intake pipeline: idempotent pre-registration keyed by
// a content fingerprint, then the triage and enrollment stages that advance the
// individual's status through the enrollment guard.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dsmodels "lumine/internal/dataset/models"
	"lumine/internal/enrollment"
	"lumine/internal/intake/metrics"
	"lumine/internal/intake/models"
	"lumine/internal/mirror"
	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/platform/audit"
	"lumine/pkg/platform/sentinel"
	"lumine/pkg/platform/tx"
	"lumine/pkg/requestcontext"
)

type Store interface {
	FindPreRegistrationByFingerprint(ctx context.Context, fingerprint string) (models.PreRegistrationRecord, error)
	FindPreRegistration(ctx context.Context, id uuid.UUID) (models.PreRegistrationRecord, error)
	ClaimFingerprint(ctx context.Context, rec models.PreRegistrationRecord) error
	AttachPreRegistration(ctx context.Context, id, guardianID uuid.UUID, publicID string) error
	MarkConverted(ctx context.Context, id uuid.UUID) error
	FindGuardianByPhone(ctx context.Context, phone string) (models.Guardian, error)
	CreateGuardian(ctx context.Context, g models.Guardian) error
	UpdateGuardian(ctx context.Context, g models.Guardian) error
	UpsertTriage(ctx context.Context, rec models.TriageRecord) error
	UpsertEnrollment(ctx context.Context, rec models.EnrollmentRecord) error
}

// IndividualStore is the slice of the dataset store the pipeline writes to.
type IndividualStore interface {
	FindIndividual(ctx context.Context, id string) (dsmodels.Individual, error)
	UpsertIndividual(ctx context.Context, ind dsmodels.Individual) error
}

type RevisionStore interface {
	Bump(ctx context.Context) (int64, error)
}

type IDAllocator interface {
	Next(ctx context.Context) (string, error)
}

type AuditPublisher interface {
	Append(ctx context.Context, entry audit.Entry)
}

const (
	reasonInitial    = "initial registration"
	reasonTriage     = "triage update"
	reasonEnrollment = "enrollment confirmed"

	// createAttempts covers one re-entry after losing a fingerprint race.
	createAttempts = 2
)

var (
	tracer = otel.Tracer("lumine/intake")

	errFingerprintTaken = errors.New("fingerprint claimed by a concurrent submission")
)

// Service is the intake pipeline.
type Service struct {
	store       Store
	individuals IndividualStore
	revisions   RevisionStore
	ids         IDAllocator
	tx          tx.Runner
	auditor     AuditPublisher
	mirror      mirror.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithMirror(p mirror.Publisher) Option {
	return func(s *Service) {
		s.mirror = p
	}
}

func New(store Store, individuals IndividualStore, revisions RevisionStore, ids IDAllocator, runner tx.Runner, opts ...Option) (*Service, error) {
	if store == nil || individuals == nil || revisions == nil || ids == nil || runner == nil {
		return nil, errors.New("intake service: store, individuals, revisions, ids and runner are required")
	}
	s := &Service{
		store:       store,
		individuals: individuals,
		revisions:   revisions,
		ids:         ids,
		tx:          runner,
		mirror:      mirror.Noop{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.auditor == nil {
		s.auditor = discardAudit{}
	}
	return s, nil
}

type discardAudit struct{}

func (discardAudit) Append(context.Context, audit.Entry) {}

// CreateIntake registers a first-contact submission at most once per
// fingerprint. A repeat submission bumps the revision and returns the original
// identifiers with Duplicated set.
func (s *Service) CreateIntake(ctx context.Context, p models.PreRegistration) (*models.IntakeResult, error) {
	start := time.Now()
	fingerprint := p.Fingerprint()
	ctx, span := tracer.Start(ctx, "intake.create", trace.WithAttributes(attribute.String("fingerprint", fingerprint)))
	defer span.End()

	var (
		result *models.IntakeResult
		err    error
	)
	for attempt := 1; attempt <= createAttempts; attempt++ {
		result, err = s.createOnce(ctx, p, fingerprint)
		if !errors.Is(err, errFingerprintTaken) {
			break
		}
		s.logger.InfoContext(ctx, "intake claim lost a race, re-entering", "attempt", attempt)
	}
	if err != nil {
		return nil, s.fail(ctx, span, mirror.StagePreRegistration, start, err)
	}

	action := audit.ActionIntakeCreate
	outcome := "ok"
	if result.Duplicated {
		action = audit.ActionIntakeDuplicate
		outcome = "duplicated"
	}
	s.auditor.Append(ctx, audit.Entry{
		Action:       action,
		ResourceType: audit.ResourcePreRegistration,
		ResourceID:   result.PreRegistrationID.String(),
		Success:      true,
		Meta: map[string]any{
			"entityId":   result.EntityID,
			"publicId":   result.PublicID,
			"duplicated": result.Duplicated,
			"revision":   result.Revision,
		},
	})
	details := map[string]any{"duplicated": result.Duplicated}
	if !result.Duplicated {
		details["statusAfter"] = enrollment.StatusInTriage
	}
	s.mirror.Publish(ctx, mirror.Success(mirror.StagePreRegistration, result.EntityID, result.Revision, details))
	s.metrics.ObserveStage(mirror.StagePreRegistration, outcome, time.Since(start))
	span.SetAttributes(attribute.Bool("duplicated", result.Duplicated), attribute.String("entity_id", result.EntityID))
	s.logger.InfoContext(ctx, "pre-registration processed",
		"entity_id", result.EntityID,
		"duplicated", result.Duplicated,
		"revision", result.Revision,
	)
	return result, nil
}

func (s *Service) createOnce(ctx context.Context, p models.PreRegistration, fingerprint string) (*models.IntakeResult, error) {
	var result models.IntakeResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.store.FindPreRegistrationByFingerprint(txCtx, fingerprint)
		if err == nil {
			rev, err := s.revisions.Bump(txCtx)
			if err != nil {
				return err
			}
			result = models.IntakeResult{
				PreRegistrationID: existing.ID,
				EntityID:          existing.IndividualID,
				PublicID:          existing.PublicID,
				Duplicated:        true,
				Revision:          rev,
			}
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		now := requestcontext.Now(txCtx)
		rec := models.PreRegistrationRecord{
			ID:           uuid.New(),
			Fingerprint:  fingerprint,
			IndividualID: uuid.NewString(),
			Submission:   p,
			CreatedAt:    now,
		}
		// The claim is the first write so a concurrent twin fails before it
		// creates anything else.
		if err := s.store.ClaimFingerprint(txCtx, rec); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return errFingerprintTaken
			}
			return err
		}

		guardian, err := s.ensureGuardian(txCtx, p, now)
		if err != nil {
			return err
		}
		publicID, err := s.ids.Next(txCtx)
		if err != nil {
			return err
		}
		if err := s.store.AttachPreRegistration(txCtx, rec.ID, guardian.ID, publicID); err != nil {
			return err
		}

		ind := dsmodels.Individual{
			ID:       rec.IndividualID,
			PublicID: publicID,
			Status:   enrollment.StatusInTriage,
			StatusHistory: []json.RawMessage{dsmodels.NewHistoryEntry(
				now, enrollment.StatusNone, enrollment.StatusInTriage, reasonInitial, requestcontext.Actor(txCtx).UserID)},
			Profile: profileFor(p),
		}
		if err := s.individuals.UpsertIndividual(txCtx, ind); err != nil {
			return err
		}
		rev, err := s.revisions.Bump(txCtx)
		if err != nil {
			return err
		}
		result = models.IntakeResult{
			PreRegistrationID: rec.ID,
			EntityID:          ind.ID,
			PublicID:          publicID,
			Revision:          rev,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ensureGuardian reuses the guardian registered under the primary phone,
// filling only its blank optional fields, or creates one.
func (s *Service) ensureGuardian(ctx context.Context, p models.PreRegistration, now time.Time) (models.Guardian, error) {
	g, err := s.store.FindGuardianByPhone(ctx, p.PrimaryPhone)
	if err == nil {
		s.metrics.IncGuardianReused()
		if g.Enrich(p.AlternatePhone, p.Neighbourhood) {
			g.UpdatedAt = now
			if err := s.store.UpdateGuardian(ctx, g); err != nil {
				return models.Guardian{}, err
			}
		}
		return g, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return models.Guardian{}, err
	}

	g = models.Guardian{
		ID:             uuid.New(),
		Name:           p.GuardianName,
		PrimaryPhone:   p.PrimaryPhone,
		AlternatePhone: p.AlternatePhone,
		Neighbourhood:  p.Neighbourhood,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.store.CreateGuardian(ctx, g)
	if errors.Is(err, sentinel.ErrConflict) {
		return s.store.FindGuardianByPhone(ctx, p.PrimaryPhone)
	}
	if err != nil {
		return models.Guardian{}, err
	}
	return g, nil
}

func profileFor(p models.PreRegistration) map[string]any {
	return map[string]any{
		"name":               p.IndividualName,
		"birthDate":          p.BirthDate,
		"school":             p.School,
		"schoolShift":        p.SchoolShift,
		"grade":              p.Grade,
		"neighbourhood":      p.Neighbourhood,
		"referralSource":     p.ReferralSource,
		"schoolCommuteAlone": p.SchoolCommuteAlone,
		"guardianName":       p.GuardianName,
		"guardianPhone":      p.PrimaryPhone,
		"guardianPhoneAlt":   p.AlternatePhone,
	}
}

// AdvanceToTriage records a triage decision and applies its result as the
// individual's status.
func (s *Service) AdvanceToTriage(ctx context.Context, t models.Triage) (*models.AdvanceResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "intake.triage", trace.WithAttributes(
		attribute.String("pre_registration_id", t.PreRegistrationID.String()),
		attribute.String("result", string(t.Result)),
	))
	defer span.End()

	var result models.AdvanceResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pre, err := s.store.FindPreRegistration(txCtx, t.PreRegistrationID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "pre-registration not found").
				WithMeta(map[string]any{"preRegistrationId": t.PreRegistrationID.String()})
		}
		if err != nil {
			return err
		}
		ind, err := s.findIndividual(txCtx, pre.IndividualID)
		if err != nil {
			return err
		}
		if err := enrollment.AssertTransition(ind.ID, ind.Status, t.Result); err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		if err := s.store.UpsertTriage(txCtx, models.TriageRecord{Triage: t, IndividualID: ind.ID, UpdatedAt: now}); err != nil {
			return err
		}
		before := applyStatus(txCtx, &ind, t.Result, reasonTriage, now)
		if err := s.individuals.UpsertIndividual(txCtx, ind); err != nil {
			return err
		}
		if err := s.store.MarkConverted(txCtx, pre.ID); err != nil {
			return err
		}
		rev, err := s.revisions.Bump(txCtx)
		if err != nil {
			return err
		}
		preID := pre.ID
		result = models.AdvanceResult{
			PreRegistrationID: &preID,
			EntityID:          ind.ID,
			StatusBefore:      before,
			StatusAfter:       ind.Status,
			Revision:          rev,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, mirror.StageTriage, start, err)
	}

	s.auditor.Append(ctx, audit.Entry{
		Action:       audit.ActionTriageUpdate,
		ResourceType: audit.ResourceTriage,
		ResourceID:   result.EntityID,
		Success:      true,
		Meta: map[string]any{
			"preRegistrationId": result.PreRegistrationID.String(),
			"statusBefore":      result.StatusBefore,
			"statusAfter":       result.StatusAfter,
			"revision":          result.Revision,
		},
	})
	s.succeed(ctx, mirror.StageTriage, start, &result)
	return &result, nil
}

// AdvanceToEnrollment stores the enrollment terms and moves the individual to
// enrolled. Re-submitting for an enrolled individual updates the terms only.
func (s *Service) AdvanceToEnrollment(ctx context.Context, e models.Enrollment) (*models.AdvanceResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "intake.enrollment", trace.WithAttributes(attribute.String("individual_id", e.IndividualID)))
	defer span.End()

	var result models.AdvanceResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		ind, err := s.findIndividual(txCtx, e.IndividualID)
		if err != nil {
			return err
		}
		if err := enrollment.AssertTransition(ind.ID, ind.Status, enrollment.StatusEnrolled); err != nil {
			return err
		}

		now := requestcontext.Now(txCtx)
		if err := s.store.UpsertEnrollment(txCtx, models.EnrollmentRecord{Enrollment: e, UpdatedAt: now}); err != nil {
			return err
		}
		before := applyStatus(txCtx, &ind, enrollment.StatusEnrolled, reasonEnrollment, now)
		ind.Profile["startDate"] = e.StartDate
		ind.Profile["participationDays"] = e.ParticipationDays
		ind.Profile["authorizedPickup"] = e.AuthorizedPickup
		ind.Profile["classGroup"] = e.ClassGroup
		ind.Profile["imageConsent"] = e.ImageConsent
		ind.Profile["documentsReceived"] = e.Documents
		if err := s.individuals.UpsertIndividual(txCtx, ind); err != nil {
			return err
		}
		rev, err := s.revisions.Bump(txCtx)
		if err != nil {
			return err
		}
		result = models.AdvanceResult{
			EntityID:     ind.ID,
			StatusBefore: before,
			StatusAfter:  ind.Status,
			Revision:     rev,
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, mirror.StageEnrollment, start, err)
	}

	s.auditor.Append(ctx, audit.Entry{
		Action:       audit.ActionEnrollmentUpsert,
		ResourceType: audit.ResourceEnrollment,
		ResourceID:   result.EntityID,
		Success:      true,
		Meta: map[string]any{
			"statusBefore": result.StatusBefore,
			"statusAfter":  result.StatusAfter,
			"revision":     result.Revision,
		},
	})
	s.succeed(ctx, mirror.StageEnrollment, start, &result)
	return &result, nil
}

func (s *Service) findIndividual(ctx context.Context, id string) (dsmodels.Individual, error) {
	ind, err := s.individuals.FindIndividual(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dsmodels.Individual{}, dErrors.New(dErrors.CodeNotFound, "individual not found").
			WithMeta(map[string]any{"individualId": id})
	}
	if err != nil {
		return dsmodels.Individual{}, err
	}
	if ind.Profile == nil {
		ind.Profile = map[string]any{}
	}
	return ind, nil
}

// applyStatus sets the status and appends a history entry when it changes.
// Returns the previous status.
func applyStatus(ctx context.Context, ind *dsmodels.Individual, to enrollment.Status, reason string, now time.Time) enrollment.Status {
	before := ind.Status
	if before == "" {
		before = enrollment.StatusNone
	}
	if before != to {
		ind.StatusHistory = append(ind.StatusHistory,
			dsmodels.NewHistoryEntry(now, before, to, reason, requestcontext.Actor(ctx).UserID))
		ind.Status = to
	}
	return before
}

func (s *Service) succeed(ctx context.Context, stage string, start time.Time, result *models.AdvanceResult) {
	s.mirror.Publish(ctx, mirror.Success(stage, result.EntityID, result.Revision, map[string]any{
		"statusBefore": result.StatusBefore,
		"statusAfter":  result.StatusAfter,
	}))
	s.metrics.ObserveStage(stage, "ok", time.Since(start))
	s.logger.InfoContext(ctx, "intake stage advanced",
		"stage", stage,
		"entity_id", result.EntityID,
		"status_before", result.StatusBefore,
		"status_after", result.StatusAfter,
		"revision", result.Revision,
	)
}

func (s *Service) fail(ctx context.Context, span trace.Span, stage string, start time.Time, err error) error {
	de, ok := dErrors.From(err)
	if !ok {
		de = dErrors.Wrap(err, dErrors.CodeInternal, "intake storage failed")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, string(de.Code))
	s.metrics.ObserveStage(stage, string(de.Code), time.Since(start))
	s.mirror.Publish(ctx, mirror.Failure(stage, string(de.Code)))

	attrs := []any{"stage", stage, "code", de.Code, "error", err}
	if de.Code.Class() == dErrors.ClassInternal {
		s.logger.ErrorContext(ctx, "intake stage failed", attrs...)
	} else {
		s.logger.WarnContext(ctx, "intake stage rejected", attrs...)
	}
	return de
}
