// Package daemon coordinates the long-running bukkaku process and its
// HTTP surface.
//
// It wires configuration, the case store, the verification orchestrator,
// the browser session manager, and the inventory scheduler into a single
// lifecycle with flock-based locking to prevent multiple instances. The
// daemon exposes the operations the API and CLI need, including check
// submission, platform choices, routing-knowledge maintenance, and phone
// task resolution, and serves them over a local HTTP API.
//
// Keep orchestration logic here: individual verification steps should
// live in their respective packages while the daemon focuses on startup,
// shutdown, and high level coordination.
package daemon
