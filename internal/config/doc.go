// Package config loads and validates settings for the API server (Load,
// prefix LINGUA_) and the terminal client (LoadClient, prefix
// LINGUA_CLIENT_). Values come from defaults, an optional YAML file and the
// environment, in increasing order of precedence.
package config
