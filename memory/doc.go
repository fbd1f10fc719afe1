// Package memory contains concrete core.MemoryStore implementations. The
// store interface and SearchResult type reside in the core package; depend on
// core.MemoryStore in your code and select an implementation (like the
// in-memory store below) at wiring time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (vector databases, embeddings indexes, etc.) to be added without
// introducing dependency cycles.
package memory
