// Package console provides the web-based administration interface for a
// rune backend.
//
// # Overview
//
// The console provides a browser-based interface for:
//
//   - Realm switching: pick the realm all rune operations apply to
//   - Rune management: browse, create, transition, and delete runes
//   - Onboarding: a guided wizard that provisions an operator with
//     their first realm
//   - Account creation: a guided wizard for adding accounts to a realm
//
// # Architecture
//
// Components:
//
//   - Console: main struct coordinating handlers and templates
//   - Templates: HTML templates embedded in the binary
//   - Flows: wizard instances backed by the wizard package, keyed by
//     flow id and bound to the owning console session
//   - Toasts: per-session notification queues drained on each render
//
// # Authentication
//
// The console holds no credentials of its own. Login exchanges a
// backend personal access token for a backend session; the backend
// token is sealed at rest in the local store and a console session
// cookie references it. Logout revokes the backend session and drops
// the local one.
//
// # Wizards
//
// Onboarding and account creation run on the wizard engine. Step
// validation hooks call the backend; commits are gated on their cached
// result so a double submit cannot apply a side effect twice. The
// backend remains the source of truth for what actually exists.
package console
