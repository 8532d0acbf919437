package interfaces

import (
	"context"
	"time"
)

// Revalidator drops cached renderings of the given route paths. It is called
// after a transaction commits.
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string) error
}

// ResponseCache stores rendered responses for cached views and replayed
// idempotent requests.
type ResponseCache interface {
	Revalidator

	GetView(ctx context.Context, path string) (string, bool, error)
	SetView(ctx context.Context, path string, body string, ttl time.Duration) error

	GetIdempotent(ctx context.Context, key string) (string, bool, error)
	SetIdempotent(ctx context.Context, key string, value string, ttl time.Duration) error

	Health(ctx context.Context) error
	Close() error
}
