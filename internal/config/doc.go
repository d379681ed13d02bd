// Package config loads and validates the TOML configuration file and
// provides defaults suitable for a fresh installation.
package config
