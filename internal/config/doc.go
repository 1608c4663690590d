// Package config loads, normalizes, and validates liftdb configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the importer and CLI need: data and log directories, the two external
// ranking-site endpoints, resolver tolerances, and notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
