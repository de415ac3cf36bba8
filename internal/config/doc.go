// Package config loads and validates the autounpack application
// configuration.
//
// The primary format is TOML; YAML and JSON-with-comments files are accepted
// by extension. A mode overlay file (config.<mode>.toml next to the base
// file) is deep-merged over the base before decoding. Load applies
// defaults, expands paths, and validates the result. The flow steps stay raw
// maps here; the plugin registry decodes them into typed step configs.
package config
