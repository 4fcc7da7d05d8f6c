package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "lumine/pkg/domain-errors"
)

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Class   string         `json:"class"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

const genericMessage = "internal error"

var codeStatus = map[dErrors.Code]int{
	dErrors.CodeInvalidPayload:       http.StatusBadRequest,
	dErrors.CodeMissingRevision:      http.StatusBadRequest,
	dErrors.CodePayloadTooLarge:      http.StatusRequestEntityTooLarge,
	dErrors.CodeRevisionMismatch:     http.StatusConflict,
	dErrors.CodeDataLossPrevented:    http.StatusConflict,
	dErrors.CodeTransitionNotAllowed: http.StatusConflict,
	dErrors.CodeNotFound:             http.StatusNotFound,
	dErrors.CodeRateLimited:          http.StatusTooManyRequests,
	dErrors.CodeUnauthorized:         http.StatusUnauthorized,
	dErrors.CodeForbidden:            http.StatusForbidden,
	dErrors.CodeForbiddenOrigin:      http.StatusForbidden,
	dErrors.CodeTimeout:              http.StatusGatewayTimeout,
	dErrors.CodeInternal:             http.StatusInternalServerError,
}

// StatusFor maps a domain error code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	if status, ok := codeStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// SuccessResponse is the envelope for every successful request.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// WriteSuccess wraps data in the success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, SuccessResponse{Success: true, Data: data})
}

// ReadBody reads the request body up to limit bytes. A larger body yields
// PAYLOAD_TOO_LARGE before any of it is parsed.
func ReadBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, dErrors.New(dErrors.CodePayloadTooLarge, "request body exceeds the size limit").
				WithMeta(map[string]any{"limitBytes": limit})
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidPayload, "failed to read request body")
	}
	return body, nil
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope. Errors without a domain code and 5xx
// responses get a generic message so storage details never reach clients.
func WriteError(w http.ResponseWriter, err error) {
	de, ok := dErrors.From(err)
	if !ok {
		de = dErrors.New(dErrors.CodeInternal, genericMessage)
	}

	status := StatusFor(de.Code)
	resp := ErrorResponse{
		Success: false,
		Error:   string(de.Code),
		Class:   string(de.Code.Class()),
		Message: de.Message,
		Meta:    de.Meta,
	}
	if status >= http.StatusInternalServerError {
		resp.Message = genericMessage
		resp.Meta = nil
	}
	WriteJSON(w, status, resp)
}
