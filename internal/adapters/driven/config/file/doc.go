// Package file persists recall's configuration as a TOML file in the
// configuration directory, with RECALL_* environment overrides.
package file
