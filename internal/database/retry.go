package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/openclaw/fleet-worker-go/internal/config"
	apperrors "github.com/openclaw/fleet-worker-go/internal/errors"
)

// Retrier runs store operations under a fixed retry policy.
// Only transient connectivity failures are retried; exhausting every attempt
// terminates the process with config.ExitStoreUnavailable.
type Retrier struct {
	Attempts int
	Delay    time.Duration
	Exit     func(code int)
}

func NewRetrier() *Retrier {
	return &Retrier{
		Attempts: config.StoreRetryAttempts,
		Delay:    config.StoreRetryDelay,
		Exit:     os.Exit,
	}
}

func (r *Retrier) backOff() backoff.BackOff {
	return &backoff.ConstantBackOff{Interval: r.Delay}
}

// Do calls fn until it succeeds, fails non-transiently, or the attempts run out.
func (r *Retrier) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		if !IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		storeRetries.WithLabelValues(label).Inc()
		return struct{}{}, err
	},
		backoff.WithBackOff(r.backOff()),
		backoff.WithMaxTries(uint(r.Attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().
				Err(err).
				Str("label", label).
				Int("maxAttempts", r.Attempts).
				Dur("delay", next).
				Msg("transient store failure, retrying")
		}),
	)
	if err == nil {
		return nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	if ctx.Err() != nil || !IsTransient(err) {
		return err
	}

	log.Error().
		Err(err).
		Str("label", label).
		Int("attempts", r.Attempts).
		Msg("store unavailable after retries, terminating")
	r.Exit(config.ExitStoreUnavailable)

	// Only reached when Exit is replaced in tests.
	return apperrors.StoreUnavailable(label, err)
}

// WithRetry is Do for operations that produce a value.
func WithRetry[T any](ctx context.Context, r *Retrier, label string, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, label, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// IsTransient classifies err as a connectivity failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection exception
			"28", // invalid authorization
			"53": // insufficient resources
			return true
		}
		switch pqErr.Code {
		case "57P01", "57P02", "57P03": // admin shutdown, crash shutdown, cannot connect now
			return true
		}
		return false
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// RetryDB decorates a Querier so every call goes through a Retrier.
type RetryDB struct {
	db      Querier
	retrier *Retrier
}

func NewRetryDB(db Querier, retrier *Retrier) *RetryDB {
	return &RetryDB{db: db, retrier: retrier}
}

var _ Querier = (*RetryDB)(nil)

func (r *RetryDB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return r.retrier.Do(ctx, queryLabel(query), func(ctx context.Context) error {
		return r.db.GetContext(ctx, dest, query, args...)
	})
}

func (r *RetryDB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return r.retrier.Do(ctx, queryLabel(query), func(ctx context.Context) error {
		return r.db.SelectContext(ctx, dest, query, args...)
	})
}

func (r *RetryDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return WithRetry(ctx, r.retrier, queryLabel(query), func(ctx context.Context) (sql.Result, error) {
		return r.db.ExecContext(ctx, query, args...)
	})
}

// queryLabel names a statement by its verb and first table, e.g. "insert into quotas".
func queryLabel(query string) string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return "query"
	}
	verb := fields[0]
	for i, f := range fields {
		if (f == "from" || f == "into" || f == "update") && i+1 < len(fields) {
			if f == "update" {
				return "update " + fields[i+1]
			}
			return verb + " " + f + " " + fields[i+1]
		}
	}
	return verb
}
