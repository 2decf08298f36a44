// Package main hosts the bukkaku CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the daemon API, direct store queries when the daemon is
// down, inventory imports, and configuration scaffolding. It centralizes
// configuration resolution and daemon reachability handling so subcommands
// can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the heavy lifting lives
// in reusable verification components.
package main
