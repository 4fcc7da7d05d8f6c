package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names the mutation an entry records.
type Action string

const (
	// Dataset
	ActionSync          Action = "sync"
	ActionIndividualAdd Action = "individual_add"
	ActionRecordAdd     Action = "record_add"

	// Intake pipeline
	ActionIntakeCreate     Action = "intake_create"
	ActionIntakeDuplicate  Action = "intake_duplicate"
	ActionTriageUpdate     Action = "triage_update"
	ActionEnrollmentUpsert Action = "enrollment_upsert"

	// Throttling
	ActionRateLimited Action = "rate_limited"
)

// Resource types.
const (
	ResourceDataset         = "dataset"
	ResourceIndividual      = "individual"
	ResourceRecord          = "record"
	ResourcePreRegistration = "pre_registration"
	ResourceTriage          = "triage"
	ResourceEnrollment      = "enrollment"
	ResourceRequest         = "request"
)

// Entry is one append-only audit row. Entries are never updated or deleted.
type Entry struct {
	ID           uuid.UUID
	Timestamp    time.Time
	ActorID      string
	ActorRole    string
	Action       Action
	ResourceType string
	ResourceID   string
	Success      bool
	Meta         map[string]any
	// RequestID is copied into Meta on persist; kept separate for log correlation.
	RequestID string
}

// Store persists entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
}
