package waitfordb

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"accounts-server/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestProber wires a prober whose sleep returns immediately while
// recording the requested delays.
func newTestProber(check CheckFunc) (*Prober, *[]time.Duration) {
	p := NewProber(check, zap.NewNop())
	var delays []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return p, &delays
}

func TestProber_RetriesTransientErrorsThenSucceeds(t *testing.T) {
	connRefused := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	startingUp := &pgconn.PgError{Code: "57P03", Message: "the database system is starting up"}

	errs := []error{
		connRefused,
		connRefused,
		startingUp,
		startingUp,
		startingUp,
	}

	calls := 0
	p, delays := newTestProber(func(ctx context.Context) error {
		calls++
		if calls <= len(errs) {
			return errs[calls-1]
		}
		return nil
	})

	require.Equal(t, StateWaiting, p.State())
	err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, calls, "five failures plus the successful attempt")
	assert.Equal(t, StateReady, p.State())
	require.Len(t, *delays, 5)
	for _, d := range *delays {
		assert.Equal(t, time.Second, d, "polling interval is fixed at one second")
	}
}

func TestProber_NonTransientErrorPropagates(t *testing.T) {
	authFailed := &pgconn.PgError{Code: "28P01", Message: "password authentication failed"}

	calls := 0
	p, delays := newTestProber(func(ctx context.Context) error {
		calls++
		return authFailed
	})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorAs(t, err, new(*pgconn.PgError))
	assert.Equal(t, 1, calls, "non-transient errors must not be retried")
	assert.Empty(t, *delays)
	assert.Equal(t, StateWaiting, p.State())
}

func TestProber_StorageUnavailableSentinelIsTransient(t *testing.T) {
	calls := 0
	p, _ := newTestProber(func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return models.ErrStorageUnavailable
		}
		return nil
	})

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestProber_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	p := NewProber(func(ctx context.Context) error {
		return &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	}, zap.NewNop())
	p.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := p.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil wrapped sentinel", models.ErrStorageUnavailable, true},
		{"net op error", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"pg connection exception", &pgconn.PgError{Code: "08006"}, true},
		{"pg cannot connect now", &pgconn.PgError{Code: "57P03"}, true},
		{"pg auth failure", &pgconn.PgError{Code: "28P01"}, false},
		{"pg syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}
