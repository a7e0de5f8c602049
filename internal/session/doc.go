// Package session tracks the console's backend session: login with a
// personal access token, logout, and proactive refresh. A 401 during
// refresh clears the session silently (the user just logs in again);
// every other failure is recorded and surfaced via Err.
package session
