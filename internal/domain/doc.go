// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (connection.go, event.go, errors.go) hold the shared
// types the registry, router, broadcaster and endpoint agree on. No
// implementation code - just contracts.
package domain
