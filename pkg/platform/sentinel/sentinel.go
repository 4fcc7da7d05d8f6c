package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped) and
// services translate them into coded domain errors:
// - ErrNotFound: row does not exist
// - ErrConflict: a unique key (fingerprint, id) is already taken
// - ErrInvalidState: stored value cannot be interpreted (corrupt counter, bad payload)
// - ErrUnavailable: backing service unreachable or timed out
//
// For validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
