// Package retry provides bounded exponential back-off for handshake polling.
package retry

import (
    "context"
    "errors"
    "fmt"
    "math/rand"
    "sync"
    "time"
)

// ErrExhausted is returned once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

var (
    randMu     sync.Mutex
    randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so that Do stops immediately and returns it unwrapped.
func Permanent(err error) error {
    if err == nil { return nil }
    return &permanentError{err: err}
}

// Config bounds the retry loop.
type Config struct {
    MaxAttempts  int           // 0 or less means a single attempt
    InitialDelay time.Duration
    MaxDelay     time.Duration
    Multiplier   float64
    Jitter       bool
}

// Handshake returns the policy used while waiting for a peer: the interval
// grows by half each attempt up to twenty times its initial value.
func Handshake(attempts int, interval time.Duration) Config {
    return Config{MaxAttempts: attempts, InitialDelay: interval, MaxDelay: 20 * interval, Multiplier: 1.5}
}

// Do runs fn until it succeeds, returns a Permanent error, ctx ends or the
// attempts run out.
func Do(ctx context.Context, cfg Config, fn func(attempt int) error) error {
    if cfg.MaxAttempts <= 0 { cfg.MaxAttempts = 1 }
    if cfg.InitialDelay <= 0 { cfg.InitialDelay = 50 * time.Millisecond }
    if cfg.MaxDelay < cfg.InitialDelay { cfg.MaxDelay = cfg.InitialDelay }
    if cfg.Multiplier < 1 { cfg.Multiplier = 1 }

    var lastErr error
    delay := cfg.InitialDelay
    for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
        err := fn(attempt)
        if err == nil { return nil }
        var pe *permanentError
        if errors.As(err, &pe) { return pe.err }
        lastErr = err
        if attempt == cfg.MaxAttempts { break }

        sleep := delay
        if cfg.Jitter && delay >= 4 {
            randMu.Lock()
            sleep += time.Duration(randSource.Int63n(int64(delay / 4)))
            randMu.Unlock()
        }
        timer := time.NewTimer(sleep)
        select {
        case <-ctx.Done():
            timer.Stop()
            return fmt.Errorf("retry cancelled before attempt %d: %w", attempt+1, ctx.Err())
        case <-timer.C:
        }
        next := time.Duration(float64(delay) * cfg.Multiplier)
        if next > cfg.MaxDelay || next <= 0 { next = cfg.MaxDelay }
        delay = next
    }
    return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, cfg.MaxAttempts, lastErr)
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(attempt int) (T, error)) (T, error) {
    var out T
    err := Do(ctx, cfg, func(attempt int) error {
        v, err := fn(attempt)
        if err == nil { out = v }
        return err
    })
    return out, err
}
