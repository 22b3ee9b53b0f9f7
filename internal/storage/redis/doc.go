// Package redis provides a write-through cache of recent conversation
// messages in front of any memory.Store, so prompt history reads avoid the
// database on the hot path.
package redis
