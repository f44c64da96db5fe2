// Package store implements the session document store on redis. Each
// session is one JSON document under the key "session:<id>"; operations
// are atomic at single-session granularity, which is all the engine
// requires — callers serialize competing writers through the engine's
// per-session lock registry.
package store

import (
	"context"

	"github.com/faircombine/faircombine/internal/domain"
)

// Store defines the document-store operations the service depends on.
type Store interface {
	// Get loads a session document. Returns ErrSessionNotFound when the
	// key is absent.
	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Set writes the full session document.
	Set(ctx context.Context, session *domain.Session) error

	// SetField overwrites one field of a stored session document,
	// addressed by a gjson-style path such as "status". The path must
	// already exist in the document.
	SetField(ctx context.Context, sessionID, path string, value any) error

	// Delete removes a session document. Deleting an absent session
	// returns ErrSessionNotFound.
	Delete(ctx context.Context, sessionID string) error

	// Ping verifies the backing store connection.
	Ping(ctx context.Context) error
}
