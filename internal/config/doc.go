// Package config holds the crawl configuration: CLI-populated settings,
// defaults, validation, and the optional .crawld YAML file with
// per-domain overrides.
package config
