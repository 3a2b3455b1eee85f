// Package config handles configuration loading, parsing, and validation
// from environment variables, an optional .env file and an optional config
// file. Values are read once at startup.
package config
