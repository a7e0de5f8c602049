// Package wizard implements the step sequencer behind the console's
// multi-step flows (onboarding, account creation).
//
// A Wizard holds a fixed, ordered list of steps and a current index.
// Advance runs an optional validate/commit hook before moving forward;
// Retreat moves back unconditionally. The hook is where pages put their
// side effects (a backend provisioning call, a field-level check); the
// engine only ever learns a boolean plus an optional error and never
// inspects step content.
//
// While a hook is in flight the wizard reports IsValidating and
// rejects further Advance calls with Busy, which is the double-submit
// guard. A Retreat during an in-flight hook is allowed; the hook's
// late result is then discarded (Stale) rather than applied to a step
// the user already left.
//
// Completion is signaled solely through the onComplete callback passed
// to New; there is no terminal state distinct from resting on the last
// step.
package wizard
