// Package config loads, normalizes, and validates magicid configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MAGICID_DATABASE_PATH. The Config type centralizes every knob the CLI and the
// generation/comparison pipelines need, so the card library, the hash
// database, and the catalog are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
