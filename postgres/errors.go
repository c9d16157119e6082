package postgres

import "errors"

var (
	// ErrConfigurationMissing is reported when no connection string was
	// configured. The manager stays disconnected; it is not fatal.
	ErrConfigurationMissing = errors.New("database connection string is not configured")

	// ErrConnectionExhausted is returned by the retry loop once every attempt
	// of the retry budget has failed. It wraps the last attempt's error.
	ErrConnectionExhausted = errors.New("database connection attempts exhausted")

	// ErrConnectionUnavailable is returned by Manager.DB when there is no live
	// connection, either because Initialize never connected or because
	// Shutdown already ran.
	ErrConnectionUnavailable = errors.New("database connection is unavailable")
)
