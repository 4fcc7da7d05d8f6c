package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"lumine/internal/enrollment"
	"lumine/internal/intake/models"
	"lumine/pkg/platform/sentinel"
	txcontext "lumine/pkg/platform/tx"
)

// PostgresStore persists intake rows. Every method joins the transaction in ctx
// when there is one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const preRegistrationColumns = `id, fingerprint, individual_id, public_id, guardian_id, payload, converted, created_at`

func scanPreRegistration(row interface{ Scan(...any) error }) (models.PreRegistrationRecord, error) {
	var (
		rec        models.PreRegistrationRecord
		guardianID uuid.NullUUID
		payload    []byte
	)
	if err := row.Scan(&rec.ID, &rec.Fingerprint, &rec.IndividualID, &rec.PublicID, &guardianID, &payload, &rec.Converted, &rec.CreatedAt); err != nil {
		return models.PreRegistrationRecord{}, err
	}
	if guardianID.Valid {
		rec.GuardianID = guardianID.UUID
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rec.Submission); err != nil {
			return models.PreRegistrationRecord{}, fmt.Errorf("decode pre-registration payload: %w", err)
		}
	}
	return rec, nil
}

func (s *PostgresStore) FindPreRegistrationByFingerprint(ctx context.Context, fingerprint string) (models.PreRegistrationRecord, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+preRegistrationColumns+` FROM pre_registrations WHERE fingerprint = $1`, fingerprint)
	rec, err := scanPreRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PreRegistrationRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.PreRegistrationRecord{}, fmt.Errorf("find pre-registration by fingerprint: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) FindPreRegistration(ctx context.Context, id uuid.UUID) (models.PreRegistrationRecord, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+preRegistrationColumns+` FROM pre_registrations WHERE id = $1`, id)
	rec, err := scanPreRegistration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PreRegistrationRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.PreRegistrationRecord{}, fmt.Errorf("find pre-registration: %w", err)
	}
	return rec, nil
}

// ClaimFingerprint is a single INSERT guarded by the UNIQUE fingerprint column.
// A concurrent claimer blocks on the index until the winner commits, then gets
// sentinel.ErrConflict: either no row back, or a serialization failure when the
// winner's row is outside the caller's snapshot.
func (s *PostgresStore) ClaimFingerprint(ctx context.Context, rec models.PreRegistrationRecord) error {
	payload, err := json.Marshal(rec.Submission)
	if err != nil {
		return fmt.Errorf("encode pre-registration payload: %w", err)
	}
	var id uuid.UUID
	err = s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO pre_registrations (id, fingerprint, individual_id, payload, converted, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
		ON CONFLICT (fingerprint) DO NOTHING
		RETURNING id
	`, rec.ID, rec.Fingerprint, rec.IndividualID, payload, rec.CreatedAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || txcontext.IsSerializationFailure(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("claim fingerprint: %w", err)
	}
	return nil
}

func (s *PostgresStore) AttachPreRegistration(ctx context.Context, id, guardianID uuid.UUID, publicID string) error {
	return s.updateOne(ctx, "attach pre-registration",
		`UPDATE pre_registrations SET guardian_id = $2, public_id = $3 WHERE id = $1`, id, guardianID, publicID)
}

func (s *PostgresStore) MarkConverted(ctx context.Context, id uuid.UUID) error {
	return s.updateOne(ctx, "mark pre-registration converted",
		`UPDATE pre_registrations SET converted = true WHERE id = $1`, id)
}

func (s *PostgresStore) FindGuardianByPhone(ctx context.Context, phone string) (models.Guardian, error) {
	var g models.Guardian
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, name, primary_phone, alternate_phone, neighbourhood, created_at, updated_at
		FROM guardians WHERE primary_phone = $1
	`, phone).Scan(&g.ID, &g.Name, &g.PrimaryPhone, &g.AlternatePhone, &g.Neighbourhood, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Guardian{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.Guardian{}, fmt.Errorf("find guardian: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) CreateGuardian(ctx context.Context, g models.Guardian) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO guardians (id, name, primary_phone, alternate_phone, neighbourhood, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, g.ID, g.Name, g.PrimaryPhone, g.AlternatePhone, g.Neighbourhood, g.CreatedAt, g.UpdatedAt)
	if txcontext.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create guardian: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateGuardian(ctx context.Context, g models.Guardian) error {
	return s.updateOne(ctx, "update guardian", `
		UPDATE guardians SET name = $2, alternate_phone = $3, neighbourhood = $4, updated_at = $5
		WHERE id = $1
	`, g.ID, g.Name, g.AlternatePhone, g.Neighbourhood, g.UpdatedAt)
}

func (s *PostgresStore) UpsertTriage(ctx context.Context, rec models.TriageRecord) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO triages (pre_registration_id, individual_id, result, health_care_needed, health_notes,
			dietary_restriction, special_needs, triage_notes, priority, priority_reason, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (pre_registration_id) DO UPDATE SET
			individual_id = EXCLUDED.individual_id,
			result = EXCLUDED.result,
			health_care_needed = EXCLUDED.health_care_needed,
			health_notes = EXCLUDED.health_notes,
			dietary_restriction = EXCLUDED.dietary_restriction,
			special_needs = EXCLUDED.special_needs,
			triage_notes = EXCLUDED.triage_notes,
			priority = EXCLUDED.priority,
			priority_reason = EXCLUDED.priority_reason,
			updated_at = EXCLUDED.updated_at
	`, rec.PreRegistrationID, rec.IndividualID, string(rec.Result), rec.HealthCareNeeded, rec.HealthNotes,
		rec.DietaryRestriction, rec.SpecialNeeds, rec.TriageNotes, rec.Priority, rec.PriorityReason, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert triage: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindTriage(ctx context.Context, preRegistrationID uuid.UUID) (models.TriageRecord, error) {
	var (
		rec    models.TriageRecord
		result string
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT pre_registration_id, individual_id, result, health_care_needed, health_notes,
			dietary_restriction, special_needs, triage_notes, priority, priority_reason, updated_at
		FROM triages WHERE pre_registration_id = $1
	`, preRegistrationID).Scan(&rec.PreRegistrationID, &rec.IndividualID, &result, &rec.HealthCareNeeded, &rec.HealthNotes,
		&rec.DietaryRestriction, &rec.SpecialNeeds, &rec.TriageNotes, &rec.Priority, &rec.PriorityReason, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TriageRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.TriageRecord{}, fmt.Errorf("find triage: %w", err)
	}
	rec.Result = enrollment.Status(result)
	return rec, nil
}

func (s *PostgresStore) UpsertEnrollment(ctx context.Context, rec models.EnrollmentRecord) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO enrollments (individual_id, start_date, participation_days, authorized_pickup, can_leave_alone,
			leave_alone_consent, leave_alone_confirmation, terms_accepted, class_group, image_consent,
			documents, observations, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (individual_id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			participation_days = EXCLUDED.participation_days,
			authorized_pickup = EXCLUDED.authorized_pickup,
			can_leave_alone = EXCLUDED.can_leave_alone,
			leave_alone_consent = EXCLUDED.leave_alone_consent,
			leave_alone_confirmation = EXCLUDED.leave_alone_confirmation,
			terms_accepted = EXCLUDED.terms_accepted,
			class_group = EXCLUDED.class_group,
			image_consent = EXCLUDED.image_consent,
			documents = EXCLUDED.documents,
			observations = EXCLUDED.observations,
			updated_at = EXCLUDED.updated_at
	`, rec.IndividualID, rec.StartDate, pq.Array(rec.ParticipationDays), rec.AuthorizedPickup, rec.CanLeaveAlone,
		rec.LeaveAloneConsent, rec.LeaveAloneConfirmation, rec.TermsAccepted, rec.ClassGroup, rec.ImageConsent,
		pq.Array(nonNil(rec.Documents)), rec.Observations, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEnrollment(ctx context.Context, individualID string) (models.EnrollmentRecord, error) {
	var rec models.EnrollmentRecord
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT individual_id, start_date, participation_days, authorized_pickup, can_leave_alone,
			leave_alone_consent, leave_alone_confirmation, terms_accepted, class_group, image_consent,
			documents, observations, updated_at
		FROM enrollments WHERE individual_id = $1
	`, individualID).Scan(&rec.IndividualID, &rec.StartDate, pq.Array(&rec.ParticipationDays), &rec.AuthorizedPickup,
		&rec.CanLeaveAlone, &rec.LeaveAloneConsent, &rec.LeaveAloneConfirmation, &rec.TermsAccepted, &rec.ClassGroup,
		&rec.ImageConsent, pq.Array(&rec.Documents), &rec.Observations, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EnrollmentRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.EnrollmentRecord{}, fmt.Errorf("find enrollment: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) updateOne(ctx context.Context, op, query string, args ...any) error {
	res, err := s.execer(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
