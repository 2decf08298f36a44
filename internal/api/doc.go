// Package api defines wire-format types and converters for the HTTP API
// layer. It translates internal store models into transport-friendly DTOs
// that the CLI and other consumers can render without coupling to internal
// types.
//
// # Key Types
//
// Check: transport representation of a verification case, with the parsed
// listing forwarded verbatim and the matched company contact split out.
//
// CheckSummary: the compact row shape used by list endpoints.
//
// OrchestratorStatus: lane names, case stats, and the last processed case.
//
// DaemonStatus: aggregated runtime information including platform sessions
// and inventory counts.
//
// # Converters
//
// FromCase: store.Case -> Check with listing JSON passthrough.
//
// FromOrchestratorSummary: verify.StatusSummary -> OrchestratorStatus.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (store.Status,
// store.Platform) are exposed as lowercase strings. Timestamps use RFC3339
// with milliseconds. The persisted listing attributes are passed through as
// json.RawMessage to avoid double-encoding.
package api
