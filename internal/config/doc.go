// Package config loads, validates, and defaults lathe's TOML configuration.
package config
