// Package config loads, normalizes, and validates repack configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// REPACK_LOG_LEVEL. The Config type centralizes every knob the CLI needs so
// log locations, journal settings, and lock timeouts are discovered in one
// pass.
package config
