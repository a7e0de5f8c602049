// Package api is the typed HTTP client for the rune backend.
//
// The backend owns all domain logic: the rune state machine, the role
// hierarchy, and session/PAT issuance. This package only shapes
// requests and responses. Every failure surfaces as *Error carrying
// the HTTP status (0 for transport failures), so callers can branch on
// status with IsUnauthorized/IsNotFound/IsConflict without string
// matching.
//
// Clients are immutable; WithToken and WithRealm return bound copies,
// so one base client configured from the server config fans out to
// per-session clients cheaply.
package api
