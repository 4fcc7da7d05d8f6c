// Package models holds the intake pipeline types: the three stage requests, the
// rows they produce and the results returned to clients.
package models

import (
	"time"

	"github.com/google/uuid"

	"lumine/internal/enrollment"
)

// PreRegistration is a validated first-contact submission.
type PreRegistration struct {
	IndividualName     string
	BirthDate          string
	GuardianName       string
	PrimaryPhone       string
	AlternatePhone     string
	Neighbourhood      string
	School             string
	SchoolShift        string
	Grade              string
	ReferralSource     string
	SchoolCommuteAlone string
	DataConsent        bool
	ConsentText        string
}

// Triage is a validated triage decision for a pre-registration.
type Triage struct {
	PreRegistrationID  uuid.UUID
	Result             enrollment.Status
	HealthCareNeeded   string
	HealthNotes        string
	DietaryRestriction string
	SpecialNeeds       string
	TriageNotes        string
	Priority           string
	PriorityReason     string
}

// Enrollment is a validated enrollment confirmation.
type Enrollment struct {
	IndividualID           string
	StartDate              string
	ParticipationDays      []string
	AuthorizedPickup       string
	CanLeaveAlone          string
	LeaveAloneConsent      bool
	LeaveAloneConfirmation string
	TermsAccepted          bool
	ClassGroup             string
	ImageConsent           string
	Documents              []string
	Observations           string
}

// Guardian is the relationship entity, deduplicated by primary phone.
type Guardian struct {
	ID             uuid.UUID
	Name           string
	PrimaryPhone   string
	AlternatePhone string
	Neighbourhood  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Enrich fills empty optional fields from a newer submission. Populated fields
// are never overwritten. Reports whether anything changed.
func (g *Guardian) Enrich(alternatePhone, neighbourhood string) bool {
	changed := false
	if g.AlternatePhone == "" && alternatePhone != "" {
		g.AlternatePhone = alternatePhone
		changed = true
	}
	if g.Neighbourhood == "" && neighbourhood != "" {
		g.Neighbourhood = neighbourhood
		changed = true
	}
	return changed
}

// PreRegistrationRecord is the stored row. Fingerprint is unique.
type PreRegistrationRecord struct {
	ID           uuid.UUID
	Fingerprint  string
	IndividualID string
	PublicID     string
	GuardianID   uuid.UUID
	Submission   PreRegistration
	Converted    bool
	CreatedAt    time.Time
}

type TriageRecord struct {
	Triage
	IndividualID string
	UpdatedAt    time.Time
}

type EnrollmentRecord struct {
	Enrollment
	UpdatedAt time.Time
}

// IntakeResult is returned by the pre-registration stage.
type IntakeResult struct {
	PreRegistrationID uuid.UUID `json:"preRegistrationId"`
	EntityID          string    `json:"entityId"`
	PublicID          string    `json:"publicId,omitempty"`
	Duplicated        bool      `json:"duplicated"`
	Revision          int64     `json:"revision"`
}

// AdvanceResult is returned by the triage and enrollment stages.
type AdvanceResult struct {
	PreRegistrationID *uuid.UUID        `json:"preRegistrationId,omitempty"`
	EntityID          string            `json:"entityId"`
	StatusBefore      enrollment.Status `json:"statusBefore"`
	StatusAfter       enrollment.Status `json:"statusAfter"`
	Revision          int64             `json:"revision"`
}
