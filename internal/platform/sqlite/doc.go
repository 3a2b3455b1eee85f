// Package sqlite provides a store.TaskStore backed by an embedded SQLite
// database using the pure-Go modernc.org/sqlite driver.
//
// created_at is stored as Unix microseconds so that values round-trip
// exactly and sort numerically.
package sqlite
