package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration for YAML parsing, so config files can
// say "500ms" or "2s" instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// DomainConfig holds per-domain crawl overrides. This allows slowing
// down on fragile sites or sending custom headers to specific hosts.
type DomainConfig struct {
	// Delay overrides the global per-domain spacing for this domain.
	// Like robots.txt Crawl-delay, it can only raise the effective
	// spacing, never lower it below the global delay.
	Delay Duration `yaml:"delay,omitempty"`

	// Headers are custom HTTP headers to include in requests to this
	// domain.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// File represents the structure of the .crawld configuration file.
type File struct {
	// Seeds are starting URLs, merged with the ones given on the
	// command line.
	Seeds []string `yaml:"seeds,omitempty"`

	// AllowedDomains restricts the crawl, merged with --allow.
	AllowedDomains []string `yaml:"allowed_domains,omitempty"`

	// Defaults contains the domain configuration applied to all
	// domains unless overridden.
	Defaults DomainConfig `yaml:"defaults,omitempty"`

	// Domains maps hostnames to their specific configuration.
	Domains map[string]DomainConfig `yaml:"domains,omitempty"`
}

// GetDomainConfig returns the configuration for a hostname, merging
// the domain-specific entry over the defaults.
func (cf *File) GetDomainConfig(host string) DomainConfig {
	result := cf.Defaults

	if dc, ok := cf.Domains[host]; ok {
		if dc.Delay != 0 {
			result.Delay = dc.Delay
		}
		if len(dc.Headers) > 0 {
			merged := make(map[string]string, len(result.Headers)+len(dc.Headers))
			for k, v := range result.Headers {
				merged[k] = v
			}
			for k, v := range dc.Headers {
				merged[k] = v
			}
			result.Headers = merged
		}
	}
	return result
}

// DomainDelays flattens the file into the per-domain delay map the
// politeness controller consumes.
func (cf *File) DomainDelays() map[string]time.Duration {
	delays := make(map[string]time.Duration, len(cf.Domains))
	for host, dc := range cf.Domains {
		if dc.Delay != 0 {
			delays[host] = time.Duration(dc.Delay)
		}
	}
	return delays
}
