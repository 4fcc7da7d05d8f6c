package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumine/internal/enrollment"
)

func TestIndividualJSONKeepsProfileFields(t *testing.T) {
	in := Individual{
		ID:            "c-1",
		PublicID:      "CRI-0001",
		Status:        enrollment.StatusEnrolled,
		StatusHistory: []json.RawMessage{NewHistoryEntry(time.Unix(0, 0), enrollment.StatusNone, enrollment.StatusInTriage, "initial registration", "")},
		Profile:       map[string]any{"name": "Ana", "school": "EM Sol", "id": "shadowed"},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "c-1", generic["id"], "named fields win over profile keys")
	assert.Equal(t, "enrolled", generic["status"])
	assert.Equal(t, "Ana", generic["name"])

	var out Individual
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.PublicID, out.PublicID)
	assert.Equal(t, in.Status, out.Status)
	assert.Len(t, out.StatusHistory, 1)
	assert.Equal(t, "EM Sol", out.Profile["school"])
	assert.NotContains(t, out.Profile, "id")
}

func TestIndividualMarshalDefaults(t *testing.T) {
	raw, err := json.Marshal(Individual{ID: "c-2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c-2","publicId":"","status":"none","statusHistory":[]}`, string(raw))
}

func TestIndividualUnmarshalRejectsUnknownStatus(t *testing.T) {
	var out Individual
	err := json.Unmarshal([]byte(`{"id":"c-3","status":"graduated"}`), &out)
	assert.Error(t, err)
}

func TestRecordJSON(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"id":42,"childInternalId":"c-1","date":"2026-02-01","mood":"calm"}`), &r))
	assert.Equal(t, "42", r.ID)
	assert.Equal(t, "c-1", r.ChildInternalID)
	assert.Equal(t, "calm", r.Fields["mood"])

	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"42","childInternalId":"c-1","date":"2026-02-01","mood":"calm"}`, string(raw))
}

func TestCloneDoesNotAlias(t *testing.T) {
	orig := Individual{ID: "c-1", Profile: map[string]any{"name": "Ana"}, StatusHistory: []json.RawMessage{json.RawMessage(`{}`)}}
	cp := orig.Clone()
	cp.Profile["name"] = "Bia"
	cp.StatusHistory[0] = json.RawMessage(`{"x":1}`)

	assert.Equal(t, "Ana", orig.Profile["name"])
	assert.JSONEq(t, `{}`, string(orig.StatusHistory[0]))
}
