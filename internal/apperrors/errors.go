package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates an optimistic concurrency failure: the entity was
// modified by someone else since the caller last read it. The caller must
// re-fetch and retry; the server never auto-resolves the conflict.
var ErrConflict = errors.New("version conflict")

// ErrStaleSettlement indicates a settlement confirmation was attempted against
// a ledger that changed after the settlement record was created. Surfaced
// distinctly from ErrConflict so the client can explain the staleness rather
// than show a generic retry prompt.
var ErrStaleSettlement = errors.New("settlement is stale against current ledger")

// ErrForbidden indicates the authenticated participant is not allowed to
// perform the requested action.
var ErrForbidden = errors.New("forbidden")

// ErrInternal indicates an unexpected internal failure (e.g. the persistence
// layer is unavailable). Retries belong to the caller; idempotency keys make
// them safe.
var ErrInternal = errors.New("internal error")
