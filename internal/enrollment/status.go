// Package enrollment defines the lifecycle status of a tracked individual and
// the transition rule that keeps enrolled individuals out of the pre-enrollment
// pipeline.
package enrollment

import (
	"strings"

	dErrors "lumine/pkg/domain-errors"
)

// Status is the lifecycle stage of a tracked individual.
type Status string

const (
	StatusNone       Status = "none"
	StatusInTriage   Status = "in_triage"
	StatusApproved   Status = "approved"
	StatusWaitlisted Status = "waitlisted"
	StatusRejected   Status = "rejected"
	StatusEnrolled   Status = "enrolled"
	StatusWithdrawn  Status = "withdrawn"
	StatusInactive   Status = "inactive"
)

// All lists every status in pipeline order.
var All = []Status{
	StatusNone,
	StatusInTriage,
	StatusApproved,
	StatusWaitlisted,
	StatusRejected,
	StatusEnrolled,
	StatusWithdrawn,
	StatusInactive,
}

var legacyTokens = map[string]Status{
	"em_triagem":   StatusInTriage,
	"aprovado":     StatusApproved,
	"lista_espera": StatusWaitlisted,
	"recusado":     StatusRejected,
	"matriculado":  StatusEnrolled,
	"desistente":   StatusWithdrawn,
	"inativo":      StatusInactive,
}

// Parse maps canonical and legacy tokens to a Status. Blank input is StatusNone.
func Parse(token string) (Status, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return StatusNone, true
	}
	if s, ok := legacyTokens[t]; ok {
		return s, true
	}
	s := Status(t)
	if s.IsValid() {
		return s, true
	}
	return "", false
}

func (s Status) IsValid() bool {
	for _, known := range All {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// forbidden lists transitions that would move an individual backwards.
var forbidden = map[Status]map[Status]struct{}{
	StatusEnrolled: {
		StatusInTriage:   {},
		StatusApproved:   {},
		StatusWaitlisted: {},
	},
}

// CanTransition reports whether before → after is allowed. Same-state writes are
// no-ops; StatusNone on either side means "unknown" and never blocks.
func CanTransition(before, after Status) bool {
	if before == after || before == StatusNone || after == StatusNone {
		return true
	}
	_, blocked := forbidden[before][after]
	return !blocked
}

// AssertTransition returns a STATUS_TRANSITION_NOT_ALLOWED error carrying the
// resource id and both states when the transition is forbidden. childId,
// statusBefore and statusAfter repeat them for older clients.
func AssertTransition(resourceID string, before, after Status) error {
	if CanTransition(before, after) {
		return nil
	}
	return dErrors.New(dErrors.CodeTransitionNotAllowed, "enrolled individuals cannot return to the intake pipeline").
		WithMeta(map[string]any{
			"resourceId":   resourceID,
			"before":       string(before),
			"after":        string(after),
			"childId":      resourceID,
			"statusBefore": string(before),
			"statusAfter":  string(after),
		})
}
