// Package service coordinates reads and writes of the shared dataset: full
// overwrites guarded by the dataset revision and single-entity additions.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lumine/internal/dataset/metrics"
	"lumine/internal/dataset/models"
	"lumine/internal/enrollment"
	"lumine/internal/mirror"
	dErrors "lumine/pkg/domain-errors"
	"lumine/pkg/platform/audit"
	"lumine/pkg/platform/sentinel"
	"lumine/pkg/platform/tx"
	"lumine/pkg/requestcontext"
)

type SnapshotStore interface {
	ListIndividuals(ctx context.Context) ([]models.Individual, error)
	ListRecords(ctx context.Context) ([]models.Record, error)
	Counts(ctx context.Context) (models.Counts, error)
	FindIndividual(ctx context.Context, id string) (models.Individual, error)
	FindRecord(ctx context.Context, id string) (models.Record, error)
	UpsertIndividual(ctx context.Context, ind models.Individual) error
	InsertRecord(ctx context.Context, rec models.Record) error
	ReplaceAll(ctx context.Context, individuals []models.Individual, records []models.Record) error
}

type RevisionStore interface {
	Current(ctx context.Context) (int64, error)
	Bump(ctx context.Context) (int64, error)
}

type IDAllocator interface {
	Next(ctx context.Context) (string, error)
}

type AuditPublisher interface {
	Append(ctx context.Context, entry audit.Entry)
}

var tracer = otel.Tracer("lumine/dataset")

// Service is the sync coordinator.
type Service struct {
	snapshots SnapshotStore
	revisions RevisionStore
	ids       IDAllocator
	tx        tx.Runner
	auditor   AuditPublisher
	mirror    mirror.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

// New constructs a Service. The runner decides what "atomic" means for the
// configured backend.
func New(snapshots SnapshotStore, revisions RevisionStore, ids IDAllocator, runner tx.Runner, opts ...Option) (*Service, error) {
	if snapshots == nil || revisions == nil || ids == nil || runner == nil {
		return nil, errors.New("dataset service: snapshots, revisions, ids and runner are required")
	}
	s := &Service{
		snapshots: snapshots,
		revisions: revisions,
		ids:       ids,
		tx:        runner,
		mirror:    mirror.Noop{},
		logger:    slog.Default(),
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

// OverwriteRequest is a full replacement of the dataset.
type OverwriteRequest struct {
	Individuals      []models.Individual
	Records          []models.Record
	ExpectedRevision *int64
}

type OverwriteResult struct {
	Revision int64         `json:"revision"`
	Counts   models.Counts `json:"counts"`
}

type IndividualResult struct {
	ID       string `json:"id"`
	PublicID string `json:"publicId"`
	Revision int64  `json:"revision"`
}

type RecordResult struct {
	Record     models.Record `json:"record"`
	Duplicated bool          `json:"duplicated"`
	Revision   int64         `json:"revision"`
}

// Fetch reads the revision and both collections in one read-only transaction,
// so the returned revision always describes the returned rows.
func (s *Service) Fetch(ctx context.Context) (*models.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "dataset.fetch")
	defer span.End()

	var (
		individuals []models.Individual
		records     []models.Record
		revision    int64
	)
	err := s.tx.RunInTx(tx.ReadOnly(ctx), func(txCtx context.Context) error {
		var err error
		if revision, err = s.revisions.Current(txCtx); err != nil {
			return err
		}
		if individuals, err = s.snapshots.ListIndividuals(txCtx); err != nil {
			return err
		}
		records, err = s.snapshots.ListRecords(txCtx)
		return err
	})
	if err != nil {
		recordSpanError(span, err, "fetch failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read dataset")
	}

	if individuals == nil {
		individuals = []models.Individual{}
	}
	if records == nil {
		records = []models.Record{}
	}
	span.SetAttributes(
		attribute.Int64("revision", revision),
		attribute.Int("individuals", len(individuals)),
		attribute.Int("records", len(records)),
	)
	return &models.Snapshot{
		Individuals: individuals,
		Records:     records,
		Revision:    revision,
		FetchedAt:   requestcontext.Now(ctx),
	}, nil
}

// Overwrite replaces the dataset when the caller's revision is current and the
// payload does not shrink either collection. Every check runs before the first
// write, and the writes plus the bump run in one transaction.
func (s *Service) Overwrite(ctx context.Context, req OverwriteRequest) (*OverwriteResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "dataset.overwrite", trace.WithAttributes(
		attribute.Int("individuals", len(req.Individuals)),
		attribute.Int("records", len(req.Records)),
	))
	defer span.End()

	if err := validateOverwrite(req); err != nil {
		return nil, s.fail(ctx, span, string(audit.ActionSync), mirror.StageSync, start, err)
	}
	span.SetAttributes(attribute.Int64("expected_revision", *req.ExpectedRevision))
	records := withRecordIDs(req.Records)

	var result OverwriteResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.revisions.Current(txCtx)
		if err != nil {
			return err
		}
		if current != *req.ExpectedRevision {
			return dErrors.New(dErrors.CodeRevisionMismatch, "dataset changed since it was fetched").
				WithMeta(map[string]any{"serverRev": current, "clientRev": *req.ExpectedRevision})
		}

		stored, err := s.snapshots.Counts(txCtx)
		if err != nil {
			return err
		}
		incoming := models.Counts{Individuals: len(req.Individuals), Records: len(records)}
		if incoming.Individuals < stored.Individuals || incoming.Records < stored.Records {
			return dErrors.New(dErrors.CodeDataLossPrevented, "payload has fewer items than the server").
				WithMeta(map[string]any{"serverCount": stored, "clientCount": incoming})
		}

		existing, err := s.snapshots.ListIndividuals(txCtx)
		if err != nil {
			return err
		}
		merged, err := mergeIndividuals(req.Individuals, existing)
		if err != nil {
			return err
		}

		if err := s.snapshots.ReplaceAll(txCtx, merged, records); err != nil {
			return err
		}
		rev, err := s.revisions.Bump(txCtx)
		if err != nil {
			return err
		}
		result = OverwriteResult{Revision: rev, Counts: incoming}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, string(audit.ActionSync), mirror.StageSync, start, err)
	}

	s.auditor.Append(ctx, audit.Entry{
		Action:       audit.ActionSync,
		ResourceType: audit.ResourceDataset,
		ResourceID:   "dataset",
		Success:      true,
		Meta: map[string]any{
			"revision":         result.Revision,
			"individualsCount": result.Counts.Individuals,
			"recordsCount":     result.Counts.Records,
		},
	})
	s.mirror.Publish(ctx, mirror.Success(mirror.StageSync, "dataset", result.Revision, map[string]any{
		"individuals": result.Counts.Individuals,
		"records":     result.Counts.Records,
	}))
	s.metrics.ObserveMutation(string(audit.ActionSync), "ok", time.Since(start))
	s.metrics.SetDatasetSize(result.Counts.Individuals, result.Counts.Records)
	s.metrics.SetRevision(result.Revision)
	span.SetAttributes(attribute.Int64("revision", result.Revision))
	s.logger.InfoContext(ctx, "dataset overwritten",
		"revision", result.Revision,
		"individuals", result.Counts.Individuals,
		"records", result.Counts.Records,
		"actor_id", requestcontext.Actor(ctx).UserID,
	)
	return &result, nil
}

// AddIndividual upserts one individual. The stored status is inherited when the
// incoming one is absent and a public id is allocated when none is known.
func (s *Service) AddIndividual(ctx context.Context, ind models.Individual) (*IndividualResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "dataset.add_individual", trace.WithAttributes(attribute.String("individual_id", ind.ID)))
	defer span.End()

	if ind.ID == "" {
		return nil, s.fail(ctx, span, string(audit.ActionIndividualAdd), mirror.StageAddIndividual, start,
			dErrors.New(dErrors.CodeInvalidPayload, "individual id is required"))
	}

	var result IndividualResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		prev, err := s.snapshots.FindIndividual(txCtx, ind.ID)
		found := err == nil
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		next := ind.Clone()
		if found {
			next = mergeIndividual(next, prev)
			if err := enrollment.AssertTransition(next.ID, prev.Status, next.Status); err != nil {
				return err
			}
		}
		if next.PublicID == "" {
			publicID, err := s.ids.Next(txCtx)
			if err != nil {
				return err
			}
			next.PublicID = publicID
		}

		if err := s.snapshots.UpsertIndividual(txCtx, next); err != nil {
			return err
		}
		rev, err := s.revisions.Bump(txCtx)
		if err != nil {
			return err
		}
		result = IndividualResult{ID: next.ID, PublicID: next.PublicID, Revision: rev}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, string(audit.ActionIndividualAdd), mirror.StageAddIndividual, start, err)
	}

	s.auditor.Append(ctx, audit.Entry{
		Action:       audit.ActionIndividualAdd,
		ResourceType: audit.ResourceIndividual,
		ResourceID:   result.ID,
		Success:      true,
		Meta:         map[string]any{"revision": result.Revision, "publicId": result.PublicID},
	})
	s.mirror.Publish(ctx, mirror.Success(mirror.StageAddIndividual, result.ID, result.Revision,
		map[string]any{"publicId": result.PublicID}))
	s.metrics.ObserveMutation(string(audit.ActionIndividualAdd), "ok", time.Since(start))
	s.metrics.SetRevision(result.Revision)
	return &result, nil
}

// AddRecord inserts an activity record. Records are immutable: resubmitting an
// existing id returns the stored record without bumping the revision.
func (s *Service) AddRecord(ctx context.Context, rec models.Record) (*RecordResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "dataset.add_record")
	defer span.End()

	if rec.ChildInternalID == "" || rec.Date == "" {
		return nil, s.fail(ctx, span, string(audit.ActionRecordAdd), mirror.StageAddRecord, start,
			dErrors.New(dErrors.CodeInvalidPayload, "record requires childInternalId and date"))
	}
	if rec.ID == "" {
		rec.ID = models.RecordID(rec.ChildInternalID, rec.Date)
	}
	span.SetAttributes(attribute.String("record_id", rec.ID))

	var result RecordResult
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.snapshots.FindRecord(txCtx, rec.ID)
		if err == nil {
			return s.duplicateRecord(txCtx, existing, &result)
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}

		err = s.snapshots.InsertRecord(txCtx, rec)
		if errors.Is(err, sentinel.ErrConflict) {
			// lost a race with a concurrent insert of the same id
			existing, findErr := s.snapshots.FindRecord(txCtx, rec.ID)
			if findErr != nil {
				return findErr
			}
			return s.duplicateRecord(txCtx, existing, &result)
		}
		if err != nil {
			return err
		}
		rev, err := s.revisions.Bump(txCtx)
		if err != nil {
			return err
		}
		result = RecordResult{Record: rec, Revision: rev}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, string(audit.ActionRecordAdd), mirror.StageAddRecord, start, err)
	}

	s.auditor.Append(ctx, audit.Entry{
		Action:       audit.ActionRecordAdd,
		ResourceType: audit.ResourceRecord,
		ResourceID:   result.Record.ID,
		Success:      true,
		Meta: map[string]any{
			"revision":        result.Revision,
			"childInternalId": result.Record.ChildInternalID,
			"recordDate":      result.Record.Date,
			"duplicated":      result.Duplicated,
		},
	})
	s.mirror.Publish(ctx, mirror.Success(mirror.StageAddRecord, result.Record.ID, result.Revision,
		map[string]any{"duplicated": result.Duplicated}))
	outcome := "ok"
	if result.Duplicated {
		outcome = "duplicated"
	}
	s.metrics.ObserveMutation(string(audit.ActionRecordAdd), outcome, time.Since(start))
	return &result, nil
}

func (s *Service) duplicateRecord(ctx context.Context, existing models.Record, result *RecordResult) error {
	rev, err := s.revisions.Current(ctx)
	if err != nil {
		return err
	}
	*result = RecordResult{Record: existing, Duplicated: true, Revision: rev}
	return nil
}

// fail normalises err into a coded error and reports it on every channel.
func (s *Service) fail(ctx context.Context, span trace.Span, action, stage string, start time.Time, err error) error {
	de, ok := dErrors.From(err)
	if !ok {
		de = dErrors.Wrap(err, dErrors.CodeInternal, "dataset storage failed")
	}
	recordSpanError(span, err, string(de.Code))
	s.metrics.ObserveMutation(action, string(de.Code), time.Since(start))
	s.mirror.Publish(ctx, mirror.Failure(stage, string(de.Code)))

	attrs := []any{"action", action, "code", de.Code, "error", err}
	if de.Code.Class() == dErrors.ClassInternal {
		s.logger.ErrorContext(ctx, "dataset mutation failed", attrs...)
	} else {
		s.logger.WarnContext(ctx, "dataset mutation rejected", attrs...)
	}
	return de
}

func recordSpanError(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
