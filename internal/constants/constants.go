// Package constants provides shared constants for the FAIR Combine
// assessment service. All enum values use snake_case string forms so
// they serialize unchanged into session documents and API payloads.
package constants

import "time"

// Application constants.
const (
	// AppName is the application name used in logs and the CLI.
	AppName = "faircombine"

	// EnvPrefix is the prefix for environment variable configuration.
	EnvPrefix = "FAIRCOMBINE"

	// SessionKeyPrefix prefixes every session document key in the store.
	SessionKeyPrefix = "session:"

	// SessionSchemaVersion is the current session document schema version.
	// This enables forward-compatible schema migrations.
	SessionSchemaVersion = 1

	// DefaultLockTimeout is the default bounded wait for a session lock.
	DefaultLockTimeout = 5 * time.Second
)
