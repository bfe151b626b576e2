// Package domain holds the types every other qagent package shares:
// uploaded documents and their chunks, retrieval hits, generated test
// cases and scripts, the interactive-element summary of a page, sessions,
// settings and the sentinel errors callers match with errors.Is.
//
// It imports only the standard library. Adapters and services depend on
// domain; domain depends on nothing in internal/.
package domain
