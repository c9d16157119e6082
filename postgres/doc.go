// Package postgres owns the process-wide PostgreSQL connection of the
// diaspora-api backend.
//
// It uses pgx v5 with connection pooling (pgxpool). A [Manager] is created
// once at startup, connected with [Manager.Initialize] and closed with
// [Manager.Shutdown]; data-access code obtains the pool through
// [Manager.DB].
//
// # Usage
//
//	db := postgres.New(
//	    postgres.WithConnectionString(os.Getenv("DATABASE_URL")),
//	    postgres.WithLogger(logger),
//	)
//
//	_ = db.Initialize(ctx) // never fails because of the database
//	defer db.Shutdown(ctx)
//
//	pool, err := db.DB()
//	if errors.Is(err, postgres.ErrConnectionUnavailable) {
//	    // respond 503
//	}
//
// # Startup and Retries
//
// Initialize makes at most [DefaultMaxAttempts] connection attempts (pool
// creation plus ping), waiting a fixed [DefaultRetryDelay] between two of
// them; both are configurable with [WithMaxAttempts] and [WithRetryDelay].
// The delay does not grow between attempts. Each attempt is bounded by
// [WithConnectTimeout].
//
// Initialize returns nil when no connection string is configured, when the
// options are invalid and when every attempt failed. In all of these cases
// the manager logs the reason and stays without a connection so that the rest
// of the process keeps serving; [Manager.DB] then fails fast with
// [ErrConnectionUnavailable]. There is no lazy reconnection.
//
// # States
//
// [StateDisconnected] → [StateConnecting] → [StateConnected] or
// [StateFailed]; Shutdown always returns to [StateDisconnected] and may be
// called any number of times.
//
// # Logging
//
// The connection string is only ever logged through [MaskConnectionString],
// which replaces the password with [RedactionToken]. Error text from failed
// attempts is redacted the same way before it is logged.
//
// # Metrics
//
// With [WithMetricsRegisterer] the manager exports
// diaspora_db_connection_attempts_total{result} and
// diaspora_db_connection_state.
package postgres
