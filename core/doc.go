// Package core provides the foundational domain types, interfaces and execution
// contexts used by Ensemble. It defines the core abstractions for:
//
//   - Agents (units of composable, orchestrated work)
//   - Sessions (stateful conversational containers with event history)
//   - Events (immutable communication + orchestration records)
//   - InvocationContext / ReadonlyContext / ToolContext (scoped execution views)
//   - Pluggable services for session state, artifacts and memory recall/search
//
// The package intentionally keeps implementation concerns (persistence,
// runner orchestration, concrete agents) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
