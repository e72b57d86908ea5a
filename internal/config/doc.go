// Package config defines the YAML settings shared by the sampling and
// decision binaries and provides helpers to load, validate and save them.
//
// Validation applies defaults and rejects malformed input; an invalid
// configuration is fatal at startup and never tolerated at runtime.
package config
