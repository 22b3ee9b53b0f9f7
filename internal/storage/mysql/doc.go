// Package mysql opens a MySQL server as the conversation memory backend. The
// queries themselves are shared with SQLite through package sqlstore.
package mysql
