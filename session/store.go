package session

import (
	"context"
	"time"
)

// Store abstracts session persistence so traversal logic never touches a
// concrete backend. Get returns pa-intake/errors.ErrSessionNotFound for
// unknown ids. Sweep removes sessions whose last update is older than maxAge
// and returns how many were removed.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}
