// Package config loads application configuration from BRIGHTCLASS_*
// environment variables with sensible defaults and fail-fast validation.
package config
