// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the service configuration structure
// including listen address, route base path, server timeouts, log level and
// metrics settings.
package config
