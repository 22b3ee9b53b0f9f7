// Package sqlite opens the embedded SQLite database that backs conversation
// memory by default.
package sqlite
