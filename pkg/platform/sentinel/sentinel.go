package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors with the right
// level of detail.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a uniqueness constraint rejected the write
//
// For business-rule violations, use pkg/domainerrors directly.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
