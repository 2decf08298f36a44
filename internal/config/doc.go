// Package config loads, normalizes, and validates the TOML configuration
// for the bukkaku daemon and CLI.
//
// Load resolves the config path (explicit flag, ~/.config/bukkaku/config.toml,
// or ./bukkaku.toml), decodes on top of repository defaults, expands paths,
// applies environment fallbacks for secrets, and validates the result. The
// embedded sample_config.toml documents every key and is written verbatim by
// `bukkaku config init`.
package config
