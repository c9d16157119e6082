package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Export internal symbols for testing.
// This file is only compiled during testing.

var (
	ExportSanitizeError = sanitizeError

	ExportValidate = func(opts ...Option) error {
		o := newOptions()
		for _, opt := range opts {
			opt(o)
		}

		return o.validate()
	}
)

// ConnectFunc exports the internal connect primitive type for testing.
type ConnectFunc = connectFunc

// SetConnectFunc replaces the connect primitive used by the retry loop.
func (m *Manager) SetConnectFunc(fn ConnectFunc) {
	m.connect = fn
}

// ConnectWithRetry exposes the retry loop so tests can observe the error it
// returns before Initialize swallows it.
func (m *Manager) ConnectWithRetry(ctx context.Context, attempt int) error {
	return m.connectWithRetry(ctx, attempt)
}

// SetNewPool replaces the pgxpool constructor used by the default connect
// primitive.
func (m *Manager) SetNewPool(fn func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error)) {
	m.opts.newPool = fn
}

// Attempt runs a single connection attempt with the per-attempt timeout.
//
//nolint:ireturn
func (m *Manager) Attempt(ctx context.Context) (DB, error) {
	return m.attempt(ctx)
}
