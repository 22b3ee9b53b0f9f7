// Package channel models the messaging surfaces the assistant can target.
//
// Every channel carries a capability set and a table of artifact builders.
// Builders are pure functions of the description and options; they never
// perform I/O or call a language model.
package channel
