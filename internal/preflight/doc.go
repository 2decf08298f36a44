// Package preflight provides readiness checks for external services
// and filesystem paths that bukkaku depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll once at startup and logs failures, so a
//     misconfigured install surfaces before the first check request arrives.
//   - The CLI "bukkaku status" command uses individual check functions
//     (CheckLINE, CheckDirectoryAccess) to display service health.
//
// Each check is gated by its config section -- unconfigured features are
// skipped.
package preflight
