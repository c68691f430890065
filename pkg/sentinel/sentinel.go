package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The repository layer returns these
// (optionally wrapped) so the store and edit session can translate them into
// domain errors.
//
// These represent factual states about remote resources, not validation
// failures:
// - ErrNotFound: entity does not exist on the remote service
// - ErrConflict: remote rejected the write (duplicate subject ID)
// - ErrUnauthorized: bearer credential rejected by the remote service
// - ErrUnavailable: remote service unreachable
//
// For validation errors (bad input, missing fields), use pkg/domainerrors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("unavailable")
)
