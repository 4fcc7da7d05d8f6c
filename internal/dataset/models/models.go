package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lumine/internal/enrollment"
)

// Individual is a tracked individual. Profile holds every free-form field the
// clients send; the named fields are the ones the core reasons about.
type Individual struct {
	ID            string
	PublicID      string
	Status        enrollment.Status
	StatusHistory []json.RawMessage
	Profile       map[string]any
}

// Record is an activity record owned by an individual. Records are immutable
// once stored.
type Record struct {
	ID              string
	ChildInternalID string
	Date            string
	Fields          map[string]any
}

// Counts is the dataset cardinality compared by the anti-data-loss check.
type Counts struct {
	Individuals int `json:"individuals"`
	Records     int `json:"records"`
}

// Snapshot is the full dataset returned to clients.
type Snapshot struct {
	Individuals []Individual `json:"individuals"`
	Records     []Record     `json:"records"`
	Revision    int64        `json:"revision"`
	FetchedAt   time.Time    `json:"fetchedAt"`
}

// HistoryEntry is the shape the server writes into StatusHistory. Entries sent
// by clients are kept verbatim and may carry other fields.
type HistoryEntry struct {
	At      time.Time `json:"at"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Reason  string    `json:"reason"`
	ActorID string    `json:"actorId,omitempty"`
}

// NewHistoryEntry encodes a status transition for StatusHistory.
func NewHistoryEntry(at time.Time, from, to enrollment.Status, reason, actorID string) json.RawMessage {
	raw, _ := json.Marshal(HistoryEntry{
		At:      at.UTC(),
		From:    string(from),
		To:      string(to),
		Reason:  reason,
		ActorID: actorID,
	})
	return raw
}

// HasHistory reports whether the individual carries any history evidence.
func (i Individual) HasHistory() bool {
	return len(i.StatusHistory) > 0
}

// Clone returns a deep enough copy for merge steps that must not alias stored state.
func (i Individual) Clone() Individual {
	out := i
	out.StatusHistory = append([]json.RawMessage(nil), i.StatusHistory...)
	out.Profile = make(map[string]any, len(i.Profile))
	for k, v := range i.Profile {
		out.Profile[k] = v
	}
	return out
}

// RecordID derives the default record id from its owner and date.
func RecordID(childInternalID, date string) string {
	return childInternalID + "-" + date
}

var individualKeys = map[string]struct{}{
	"id": {}, "publicId": {}, "status": {}, "statusHistory": {},
}

var recordKeys = map[string]struct{}{
	"id": {}, "childInternalId": {}, "date": {},
}

func (i Individual) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(i.Profile)+4)
	for k, v := range i.Profile {
		if _, reserved := individualKeys[k]; !reserved {
			out[k] = v
		}
	}
	history := i.StatusHistory
	if history == nil {
		history = []json.RawMessage{}
	}
	status := i.Status
	if status == "" {
		status = enrollment.StatusNone
	}
	out["id"] = i.ID
	out["publicId"] = i.PublicID
	out["status"] = status
	out["statusHistory"] = history
	return json.Marshal(out)
}

func (i *Individual) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Individual
	if err := decodeString(raw, "id", &out.ID); err != nil {
		return err
	}
	if err := decodeString(raw, "publicId", &out.PublicID); err != nil {
		return err
	}
	var status string
	if err := decodeString(raw, "status", &status); err != nil {
		return err
	}
	parsed, ok := enrollment.Parse(status)
	if !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	out.Status = parsed
	if h, ok := raw["statusHistory"]; ok && string(h) != "null" {
		if err := json.Unmarshal(h, &out.StatusHistory); err != nil {
			return fmt.Errorf("statusHistory: %w", err)
		}
	}
	profile, err := decodeRest(raw, individualKeys)
	if err != nil {
		return err
	}
	out.Profile = profile
	*i = out
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		if _, reserved := recordKeys[k]; !reserved {
			out[k] = v
		}
	}
	out["id"] = r.ID
	out["childInternalId"] = r.ChildInternalID
	out["date"] = r.Date
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Record
	for key, dst := range map[string]*string{"id": &out.ID, "childInternalId": &out.ChildInternalID, "date": &out.Date} {
		if err := decodeString(raw, key, dst); err != nil {
			return err
		}
	}
	fields, err := decodeRest(raw, recordKeys)
	if err != nil {
		return err
	}
	out.Fields = fields
	*r = out
	return nil
}

func decodeString(raw map[string]json.RawMessage, key string, dst *string) error {
	v, ok := raw[key]
	if !ok || string(v) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		// numeric ids from older clients
		var n json.Number
		if numErr := json.Unmarshal(v, &n); numErr != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		s = n.String()
	}
	*dst = strings.TrimSpace(s)
	return nil
}

func decodeRest(raw map[string]json.RawMessage, reserved map[string]struct{}) (map[string]any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if _, skip := reserved[k]; skip {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}
