// Package mirror publishes a copy of every intake stage and dataset mutation to
// Kafka for downstream spreadsheets and reports. Publishing is best effort.
package mirror

import (
	"context"
	"time"
)

// Stage names.
const (
	StagePreRegistration = "pre_registration"
	StageTriage          = "triage"
	StageEnrollment      = "enrollment"
	StageSync            = "sync"
	StageAddIndividual   = "add_individual"
	StageAddRecord       = "add_record"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Event is one mirrored stage outcome.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Stage     string         `json:"stage"`
	EntityID  string         `json:"entityId"`
	Status    string         `json:"status"`
	Revision  *int64         `json:"dataRev"`
	Details   map[string]any `json:"details"`
}

// Publisher is implemented by the Kafka producer and by Noop.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Noop drops every event. Used when mirroring is disabled.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Success builds a success event.
func Success(stage, entityID string, revision int64, details map[string]any) Event {
	return Event{Stage: stage, EntityID: entityID, Status: StatusSuccess, Revision: &revision, Details: details}
}

// Failure builds an error event carrying the error code.
func Failure(stage, code string) Event {
	return Event{Stage: stage, Status: StatusError, Details: map[string]any{"code": code}}
}
