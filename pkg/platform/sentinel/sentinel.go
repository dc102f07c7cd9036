package sentinel

import "errors"

// Sentinel errors for facts reported by the auth/account service or by storage.
// Clients return these wrapped so handlers can decide what to show without
// inspecting status codes:
// - ErrUnauthorized: credentials or bearer token were rejected
// - ErrForbidden: the bearer token lacks permission for the call
// - ErrNotFound: the addressed account does not exist
// - ErrConflict: the change conflicts with current server state
// - ErrInvalidInput: the service rejected the submitted values
// - ErrUnavailable: the service could not be reached or failed
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("unavailable")
)
