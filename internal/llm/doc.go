// Package llm defines the prompt-in/text-out contract of the completion
// service. Provider adapters live in sub-packages.
package llm
