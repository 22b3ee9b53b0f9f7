// Package agent contains the orchestrator that turns a user message into
// either a persona-flavoured conversational reply or a generated platform
// script, recording messages and automations in conversation memory.
package agent
