package waitfordb

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"accounts-server/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// State describes where the prober is in its one-shot lifecycle.
type State string

const (
	StateWaiting State = "WAITING"
	StateReady   State = "READY"
)

// DefaultPollInterval is the fixed delay between connection attempts.
const DefaultPollInterval = time.Second

// CheckFunc performs a single connectivity probe, typically a Ping
// against the database pool.
type CheckFunc func(ctx context.Context) error

// Prober polls a database until it accepts connections. Transient
// startup errors are retried at a fixed interval; anything else
// propagates to the caller unchanged.
type Prober struct {
	check    CheckFunc
	interval time.Duration
	logger   *zap.Logger

	// sleep is swappable in tests
	sleep func(ctx context.Context, d time.Duration) error

	state State
}

func NewProber(check CheckFunc, logger *zap.Logger) *Prober {
	return &Prober{
		check:    check,
		interval: DefaultPollInterval,
		logger:   logger.Named("WaitForDB"),
		sleep:    sleepCtx,
		state:    StateWaiting,
	}
}

// State returns the prober's current lifecycle state.
func (p *Prober) State() State {
	return p.state
}

// Run blocks until the database accepts a connection, the context is
// cancelled, or a non-transient error occurs. It transitions
// WAITING -> READY exactly once and returns nil on success.
func (p *Prober) Run(ctx context.Context) error {
	p.logger.Info("Waiting for database...")

	for attempt := 1; ; attempt++ {
		err := p.check(ctx)
		if err == nil {
			p.state = StateReady
			p.logger.Info("Database available!", zap.Int("attempts", attempt))
			return nil
		}

		if !isTransient(err) {
			p.logger.Error("Database check failed with non-transient error", zap.Error(err), zap.Int("attempt", attempt))
			return err
		}

		p.logger.Info("Database unavailable, waiting 1 second...", zap.Int("attempt", attempt), zap.Error(err))
		if err := p.sleep(ctx, p.interval); err != nil {
			return err
		}
	}
}

// isTransient reports whether an error is an expected symptom of a
// database that is still starting up: network-level failures (the
// server is not yet listening) and connection-class Postgres errors
// (the server is listening but not yet accepting sessions).
func isTransient(err error) bool {
	if errors.Is(err, models.ErrStorageUnavailable) {
		return true
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 - Connection Exception, plus 57P03 (cannot connect
		// now) which Postgres returns mid-startup.
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P03"
	}

	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
