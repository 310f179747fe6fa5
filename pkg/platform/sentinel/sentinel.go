package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: a uniqueness or state constraint was violated
// - ErrImmutable: a mutation was attempted against an append-only record
// - ErrLocked: a run lock is already held by another worker
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrImmutable = errors.New("immutable record")
	ErrLocked    = errors.New("run already in progress")
)
