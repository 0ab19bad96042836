// Package config loads and validates driftsync's configuration.
//
// Configuration lives in a single config.yaml inside a configuration
// directory (by default ~/.config/driftsync, overridable with --config-path).
// Loading always starts from the built-in defaults and merges the file over
// them, so a partial file is valid and a missing file means "all defaults".
//
// The package also owns the translation from file-level configuration into
// the typed configurations of the engine's collaborators: the run
// configuration for the reconciler, the HTTP client configuration for the
// instance API and the options for the version-control client. Secrets are
// never required to live in the file; token fields have a *Env companion
// naming an environment variable that takes precedence.
package config
