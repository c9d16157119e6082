package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diasporalink/api/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the live database handle shared with data-access code.
// It is satisfied by *pgxpool.Pool and can be mocked for testing.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
	Ping(ctx context.Context) error
}

// connectFunc opens one connection pool. It is the only primitive the retry
// loop calls.
type connectFunc func(ctx context.Context, connString string) (DB, error)

// Manager owns the process-wide database handle: it connects at startup
// with a fixed-delay retry budget, hands the handle to data-access code and
// closes it at shutdown.
type Manager struct {
	opts      *options
	logger    logging.Logger
	metrics   *metrics
	optsErr   error
	connect   connectFunc
	lifecycle sync.Mutex // serializes Initialize and Shutdown

	mu    sync.RWMutex
	state State
	conn  DB
}

func New(opts ...Option) *Manager {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}

	m := &Manager{
		opts:   o,
		logger: o.logger,
		state:  StateDisconnected,
	}

	m.connect = o.connectPool
	m.optsErr = o.validate()

	mt, err := newMetrics(o.registerer)
	if err != nil {
		m.logger.Warnf("Failed to register database metrics: %v", err)
	}

	m.metrics = mt
	m.metrics.setState(StateDisconnected)

	return m
}

// Initialize connects to the database. It never fails because of the
// database: a missing connection string or an exhausted retry budget is
// logged and the manager keeps running without a connection. Calling it
// while connected is a no-op.
func (m *Manager) Initialize(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.State() == StateConnected {
		return nil
	}

	if m.opts.connectionString == "" {
		m.logger.Warnf("%v; continuing without a database connection", ErrConfigurationMissing)
		return nil
	}

	if m.optsErr != nil {
		m.logger.Warnf("Invalid database configuration: %v; continuing without a database connection", m.optsErr)
		return nil
	}

	budget := m.opts.retryBudget()

	m.logger.WithFields(map[string]any{
		"max_attempts": budget.MaxAttempts,
		"retry_delay":  budget.Delay.String(),
	}).Infof("Connecting to database %s", m.MaskedConnectionString())

	if err := m.connectWithRetry(ctx, 1); err != nil {
		m.logger.Errorf("Database unavailable, continuing without a connection: %s", sanitizeError(err))
		return nil
	}

	return nil
}

// connectWithRetry makes attempts attempt..MaxAttempts, pausing the fixed
// retry delay between two of them. It returns ErrConnectionExhausted wrapping
// the last failure once the budget is used up.
func (m *Manager) connectWithRetry(ctx context.Context, attempt int) error {
	budget := m.opts.retryBudget()

	m.setState(StateConnecting)

	for ; ; attempt++ {
		m.logger.Infof("Database connection attempt %d/%d", attempt, budget.MaxAttempts)

		conn, err := m.attempt(ctx)
		if err == nil {
			m.mu.Lock()
			m.conn = conn
			m.state = StateConnected
			m.mu.Unlock()

			m.metrics.observeAttempt(attemptResultSuccess)
			m.metrics.setState(StateConnected)
			m.logger.Infof("Connected to database on attempt %d/%d", attempt, budget.MaxAttempts)

			return nil
		}

		m.metrics.observeAttempt(attemptResultFailure)
		m.logAttemptFailure(attempt, budget.MaxAttempts, err)

		if attempt >= budget.MaxAttempts {
			m.setState(StateFailed)
			return fmt.Errorf("%w after %d attempts: %w", ErrConnectionExhausted, attempt, err)
		}

		m.logger.Infof("Retrying database connection in %s (%d attempts left)", budget.Delay, budget.MaxAttempts-attempt)

		if err := sleepContext(ctx, budget.Delay); err != nil {
			m.setState(StateFailed)
			return fmt.Errorf("%w: retry wait interrupted after %d attempts: %w", ErrConnectionExhausted, attempt, err)
		}
	}
}

func (m *Manager) attempt(ctx context.Context) (DB, error) {
	if m.opts.connectTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, m.opts.connectTimeout)
		defer cancel()
	}

	return m.connect(ctx, m.opts.connectionString)
}

func (m *Manager) logAttemptFailure(attempt, maxAttempts int, err error) {
	fields := map[string]any{
		"attempt":      attempt,
		"max_attempts": maxAttempts,
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields["code"] = pgErr.Code
		fields["severity"] = pgErr.Severity

		if pgErr.Detail != "" {
			fields["detail"] = pgErr.Detail
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) && connErr.Config != nil {
		fields["host"] = connErr.Config.Host
		fields["port"] = connErr.Config.Port
	}

	if errors.Is(err, context.DeadlineExceeded) {
		fields["timeout"] = m.opts.connectTimeout.String()
	}

	m.logger.WithFields(fields).Warnf("Database connection attempt failed: %s", sanitizeError(err))
}

// Shutdown closes the connection if one is open. It is safe to call more
// than once.
func (m *Manager) Shutdown(_ context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	m.metrics.setState(StateDisconnected)

	if conn == nil {
		m.logger.Debug("Database shutdown requested with no open connection")
		return nil
	}

	m.logger.Info("Closing database connection")
	conn.Close()
	m.logger.Info("Database connection closed")

	return nil
}

// DB returns the live handle, or ErrConnectionUnavailable when the manager is
// not connected. It does not try to reconnect.
//
//nolint:ireturn
func (m *Manager) DB() (DB, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.conn == nil {
		return nil, fmt.Errorf("%w (state: %s)", ErrConnectionUnavailable, m.state)
	}

	return m.conn, nil
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state
}

func (m *Manager) RetryBudget() RetryBudget {
	return m.opts.retryBudget()
}

// MaskedConnectionString is the configured connection string with the
// password redacted, suitable for logs and diagnostics.
func (m *Manager) MaskedConnectionString() string {
	if m.opts.connectionString == "" {
		return ""
	}

	return MaskConnectionString(m.opts.connectionString)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()

	m.metrics.setState(s)
}

// connectPool creates a pgx pool from connString and verifies it with a ping.
// Only the ping is bound to ctx's deadline: the pool keeps the context it was
// created with to open MinConns in the background, and that work must outlive
// the attempt. Close stops it.
//
//nolint:ireturn
func (o *options) connectPool(ctx context.Context, connString string) (DB, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	if o.poolMaxConnections != nil {
		config.MaxConns = *o.poolMaxConnections
	}

	if o.poolMinConnections != nil {
		config.MinConns = *o.poolMinConnections
	}

	if o.poolMinIdleConnections != nil {
		config.MinIdleConns = *o.poolMinIdleConnections
	}

	if o.poolMaxConnectionLifetime != nil {
		config.MaxConnLifetime = *o.poolMaxConnectionLifetime
	}

	if o.poolMaxConnectionIdleTime != nil {
		config.MaxConnIdleTime = *o.poolMaxConnectionIdleTime
	}

	if o.poolHealthCheckPeriod != nil {
		config.HealthCheckPeriod = *o.poolHealthCheckPeriod
	}

	if o.poolMaxConnectionLifetimeJitter != nil {
		config.MaxConnLifetimeJitter = *o.poolMaxConnectionLifetimeJitter
	}

	pool, err := o.newPool(context.WithoutCancel(ctx), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
