// Package config loads engine configuration from TOML.
//
// Configuration covers the engine knobs (poll interval, retry budget,
// shutdown timeout, dispatch rate), the agent fleet, and LLM provider
// profiles. Files are searched in the working directory and under the
// user's config directory; API keys missing from the file fall back to
// the provider's conventional environment variable.
package config
