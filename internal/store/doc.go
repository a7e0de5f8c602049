// Package store provides the console's local persistence using SQLite.
//
// The console itself owns very little data: browser sessions (mapping
// a cookie to a backend session token) and the realm each session last
// worked in. Everything domain-shaped lives on the backend.
//
// Backend tokens are sealed at rest with nacl/secretbox; the seal key
// comes from the server config. A database copied without the key
// yields no usable credentials.
//
// SQLite runs in WAL mode with foreign keys on. Realm preferences
// cascade-delete with their session.
package store
