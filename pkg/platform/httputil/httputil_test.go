package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "lumine/pkg/domain-errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error hides message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.Wrap(errors.New("pq: relation missing"), dErrors.CodeInternal, "failed to load dataset"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "INTERNAL_ERROR", body.Error)
		assert.Equal(t, "internal error", body.Message)
		assert.False(t, body.Success)
	})

	t.Run("uncoded error becomes internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "INTERNAL_ERROR", decode(t, w).Error)
	})

	t.Run("conflict carries meta and class", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeRevisionMismatch, "fetch first").
			WithMeta(map[string]any{"serverRev": 4, "clientRev": 3}))

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decode(t, w)
		assert.Equal(t, "REVISION_MISMATCH", body.Error)
		assert.Equal(t, "conflict", body.Class)
		assert.Equal(t, float64(4), body.Meta["serverRev"])
	})

	t.Run("validation includes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidPayload, "child id is required"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.Equal(t, "validation", body.Class)
		assert.Equal(t, "child id is required", body.Message)
	})

	t.Run("payload cap maps to 413", func(t *testing.T) {
		assert.Equal(t, http.StatusRequestEntityTooLarge, StatusFor(dErrors.CodePayloadTooLarge))
		assert.Equal(t, http.StatusTooManyRequests, StatusFor(dErrors.CodeRateLimited))
	})
}
