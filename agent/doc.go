// Package agent contains the concrete agent implementations and supporting
// utilities for building composable orchestration trees in Ensemble. The
// package covers three concerns:
//
//  1. Base hierarchy plumbing and identity validation (BaseAgent)
//  2. Workflow coordination patterns (SequentialAgent, ParallelAgent, LoopAgent)
//  3. Model-centric conversational / tool-calling agent (ModelAgent)
//
// Design principles:
//   - Minimal hidden global state, explicit wiring via Runner/InvocationContext
//   - Composability: agents nest arbitrarily using SetSubAgents / FindAgent
//   - Determinism: execution is single-threaded and cooperative, child event
//     sequences never interleave
//   - Extensibility: embed BaseAgent; only implement Run plus any custom API
//
// Execution Model:
//   - An agent's Run receives a *core.InvocationContext, the input message and
//     an emit callback producing the finite forward-only event sequence
//   - Composite agents (sequential / parallel / loop) coordinate child Runs,
//     converting child failures into diagnostic events at their own boundary
//   - ModelAgent integrates with the model and tool packages
//
// The package intentionally keeps persistence, model specifics and tool
// registry abstractions in their respective packages to avoid cyclic deps.
package agent
