// Package services defines shared utilities consumed by the verification
// pipeline steps and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp case IDs, step names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification consistent across the pipeline (what is an input error
//     versus an automation failure that degrades to escalation).
//   - Details extraction so failure logging reports a stable error kind and
//     an operator hint regardless of which component produced the error.
//
// Use these helpers when wiring new step logic so operational behaviour
// stays uniform across the pipeline.
package services
