// Package config loads and validates the relay's YAML configuration.
//
// Files may reference environment variables as ${VAR_NAME}; references are
// expanded before parsing, which keeps secrets like the bot token and API
// key out of the file itself. Durations are written as Go duration strings
// ("30s", "2m"). Load validates required fields and returns the first
// problem it finds.
//
// The file location is $GROQ_RELAY_CONFIG when set, otherwise
// groq-relay/config.yaml under the user's config directory.
package config
