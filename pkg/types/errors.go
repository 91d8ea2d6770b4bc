package types

import "errors"

// Request and authorization errors surfaced by the boundary service.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrForbidden      = errors.New("operation forbidden")
)

// ErrDuplicatePeriod reports a lost race on period container creation.
// The caller retries the create as a fetch.
var ErrDuplicatePeriod = errors.New("period container already exists")

// Snapshot status errors.
var (
	ErrInvalidStatus     = errors.New("invalid snapshot status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTemplateNotBound  = errors.New("snapshot has no bound template")
)

// Row editing errors. ErrVersionConflict is reported per item inside a
// BatchEditResult; it never aborts the surrounding batch.
var (
	ErrVersionConflict = errors.New("row version conflict")
)
