// Package storage selects and assembles the conversation memory backend
// (SQLite, MySQL or a JSON-lines file) and optionally fronts it with the
// Redis recent-message cache.
package storage
