// Package normalize converts every payload shape the clients have ever sent into
// the canonical dataset models. Nothing past this package sees a legacy name.
package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"lumine/internal/dataset/models"
	"lumine/internal/enrollment"
	dErrors "lumine/pkg/domain-errors"
	pstrings "lumine/pkg/platform/strings"
)

// Action is a dataset mutation requested through POST /sync.
type Action string

const (
	ActionSync          Action = "sync"
	ActionAddIndividual Action = "addIndividual"
	ActionAddRecord     Action = "addRecord"
)

var legacyActions = map[string]Action{
	"addChild": ActionAddIndividual,
}

// Request is the canonical mutation request.
type Request struct {
	Action           Action
	Individuals      []models.Individual
	Records          []models.Record
	Individual       models.Individual
	Record           models.Record
	ExpectedRevision *int64
}

// Legacy field names, checked in priority order.
var (
	publicIDKeys = []string{"publicId", "childId"}
	statusKeys   = []string{"status", "enrollmentStatus", "enrollment_status"}
	historyKeys  = []string{"statusHistory", "enrollmentHistory"}
	ownerKeys    = []string{"childInternalId", "childId"}
	listKeys     = []string{"documentsReceived", "participationDays"}
	revisionKeys = []string{"expectedRevision", "ifMatchRev"}

	individualListKeys = []string{"individuals", "children"}
)

var droppedIndividualKeys = keySet("id", "publicId", "childId", "status", "enrollmentStatus",
	"enrollment_status", "statusHistory", "enrollmentHistory")

var droppedRecordKeys = keySet("id", "childInternalId", "childId", "date")

// DecodeRequest parses the POST /sync envelope.
func DecodeRequest(body []byte) (Request, error) {
	var envelope map[string]any
	if err := decode(body, &envelope); err != nil {
		return Request{}, invalid("request body must be a JSON object")
	}

	actionToken, _ := envelope["action"].(string)
	action := Action(actionToken)
	if mapped, ok := legacyActions[actionToken]; ok {
		action = mapped
	}

	req := Request{Action: action, ExpectedRevision: revision(envelope)}

	switch action {
	case ActionSync:
		data, ok := envelope["data"].(map[string]any)
		if !ok {
			return Request{}, invalid("data must be an object")
		}
		rawIndividuals, ok := sequence(first(data, individualListKeys))
		if !ok {
			return Request{}, invalid("individuals must be an array")
		}
		rawRecords, ok := sequence(data["records"])
		if !ok {
			return Request{}, invalid("records must be an array")
		}
		individuals, err := Individuals(rawIndividuals)
		if err != nil {
			return Request{}, err
		}
		req.Individuals = individuals
		req.Records = Records(rawRecords)
	case ActionAddIndividual:
		data, ok := envelope["data"].(map[string]any)
		if !ok {
			return Request{}, invalid("data must be an object")
		}
		individual, err := Individual(data)
		if err != nil {
			return Request{}, err
		}
		req.Individual = individual
	case ActionAddRecord:
		data, ok := envelope["data"].(map[string]any)
		if !ok {
			return Request{}, invalid("data must be an object")
		}
		req.Record = Record(data)
	default:
		return Request{}, invalid("unknown action").WithMeta(map[string]any{"action": actionToken})
	}
	return req, nil
}

// Individuals normalises a list. A nil element is kept as an individual with no id
// so the coordinator rejects the whole batch.
func Individuals(raw []any) ([]models.Individual, error) {
	out := make([]models.Individual, 0, len(raw))
	for _, item := range raw {
		obj, _ := item.(map[string]any)
		ind, err := Individual(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}

// Individual maps one legacy or canonical object. Unknown status tokens are
// rejected here because nothing downstream can reason about them.
func Individual(raw map[string]any) (models.Individual, error) {
	ind := models.Individual{
		ID:       text(raw["id"]),
		PublicID: text(first(raw, publicIDKeys)),
		Profile:  make(map[string]any, len(raw)),
	}

	statusToken := text(first(raw, statusKeys))
	status, ok := enrollment.Parse(statusToken)
	if !ok {
		return models.Individual{}, invalid("unknown status").WithMeta(map[string]any{
			"childId": ind.ID,
			"status":  statusToken,
		})
	}
	ind.Status = status
	ind.StatusHistory = History(first(raw, historyKeys))

	for k, v := range raw {
		if _, drop := droppedIndividualKeys[k]; drop {
			continue
		}
		ind.Profile[k] = v
	}
	for _, key := range listKeys {
		if v, ok := raw[key]; ok {
			ind.Profile[key] = List(v)
		}
	}
	return ind, nil
}

// Records normalises a list of records.
func Records(raw []any) []models.Record {
	out := make([]models.Record, 0, len(raw))
	for _, item := range raw {
		obj, _ := item.(map[string]any)
		out = append(out, Record(obj))
	}
	return out
}

// Record maps one record, deriving its id from owner and date when absent.
func Record(raw map[string]any) models.Record {
	rec := models.Record{
		ID:              text(raw["id"]),
		ChildInternalID: text(first(raw, ownerKeys)),
		Date:            text(raw["date"]),
		Fields:          make(map[string]any, len(raw)),
	}
	if rec.ID == "" && rec.ChildInternalID != "" && rec.Date != "" {
		rec.ID = models.RecordID(rec.ChildInternalID, rec.Date)
	}
	for k, v := range raw {
		if _, drop := droppedRecordKeys[k]; drop {
			continue
		}
		rec.Fields[k] = v
	}
	return rec
}

// History accepts an array or a JSON-encoded array string. Anything else yields
// no entries.
func History(v any) []json.RawMessage {
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return nil
		}
		if err := decode([]byte(trimmed), &items); err != nil {
			return nil
		}
	default:
		return nil
	}

	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			continue
		}
		out = append(out, raw)
	}
	return out
}

// List accepts an array or a pipe-joined string.
func List(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return pstrings.DedupeAndTrim(t)
	case string:
		return pstrings.SplitList(t, "|")
	default:
		return []string{}
	}
}

func revision(envelope map[string]any) *int64 {
	switch v := first(envelope, revisionKeys).(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return &n
		}
	case float64:
		if v == float64(int64(v)) {
			n := int64(v)
			return &n
		}
	}
	return nil
}

func sequence(v any) ([]any, bool) {
	if v == nil {
		return []any{}, true
	}
	s, ok := v.([]any)
	return s, ok
}

func first(raw map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil && v != "" {
			return v
		}
	}
	return nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

func decode(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(dst)
}

func keySet(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func invalid(msg string) *dErrors.Error {
	return dErrors.New(dErrors.CodeInvalidPayload, msg)
}
