// Package config handles configuration loading, parsing, and validation
// from environment variables (FEED_ prefix) and an optional YAML file. The
// resulting Config value is built once at startup and passed explicitly to
// the cache, queue producers, and workers.
package config
