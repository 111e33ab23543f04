// Package config loads, normalizes, and validates inkwell configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// INKWELL_API_TOKEN and the S3 credential variables. The Config type
// centralizes every knob the daemon and CLI need: store locations, intake
// routing thresholds, queue and worker tuning, reconciler SLAs, recycle
// retention, and extraction engine endpoints.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical values, and clear validation errors.
package config
