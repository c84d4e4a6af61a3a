// Package stream frames protocol.Frame values over any byte stream.
package stream

import (
    "bufio"
    "errors"
    "fmt"
    "io"
    "sync"
    "time"

    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

// deadliner is satisfied by net.Conn and by pollable *os.File.
type deadliner interface {
    SetReadDeadline(time.Time) error
    SetWriteDeadline(time.Time) error
}

// Conn wraps an io.ReadWriteCloser to send/receive frames. It implements transport.Link.
type Conn struct {
    rwc     io.ReadWriteCloser
    br      *bufio.Reader
    bw      *bufio.Writer
    timeout time.Duration
    dl      deadliner

    closeOnce sync.Once
    closeErr  error
}

// New wraps rwc. A positive timeout bounds every Send and Recv: through
// deadlines when rwc supports them, otherwise by closing rwc on expiry.
func New(rwc io.ReadWriteCloser, timeout time.Duration) *Conn {
    c := &Conn{rwc: rwc, br: bufio.NewReader(rwc), bw: bufio.NewWriter(rwc), timeout: timeout}
    if d, ok := rwc.(deadliner); ok { c.dl = d }
    return c
}

// Send writes a copy of f so a timed-out write never touches the caller's frame.
func (c *Conn) Send(f *protocol.Frame) error {
    out := *f
    _, err := bounded(c, func() (struct{}, error) {
        if c.dl != nil && c.timeout > 0 {
            if err := c.dl.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil { return struct{}{}, err }
        }
        if _, err := out.WriteTo(c.bw); err != nil { return struct{}{}, err }
        return struct{}{}, c.bw.Flush()
    })
    return err
}

func (c *Conn) Recv() (protocol.Frame, error) {
    return bounded(c, func() (protocol.Frame, error) {
        var f protocol.Frame
        if c.dl != nil && c.timeout > 0 {
            if err := c.dl.SetReadDeadline(time.Now().Add(c.timeout)); err != nil { return f, err }
        }
        _, err := f.ReadFrom(c.br)
        return f, err
    })
}

type result[T any] struct {
    v   T
    err error
}

// bounded runs op directly when deadlines do the job, otherwise races it
// against a timer and closes the stream if the timer wins. op's result is
// handed over through the channel only, so an abandoned op owns its values.
func bounded[T any](c *Conn, op func() (T, error)) (T, error) {
    if c.timeout <= 0 || c.dl != nil { return op() }
    done := make(chan result[T], 1)
    go func() {
        v, err := op()
        done <- result[T]{v, err}
    }()
    timer := time.NewTimer(c.timeout)
    defer timer.Stop()
    select {
    case r := <-done:
        return r.v, r.err
    case <-timer.C:
        _ = c.Close()
        var zero T
        return zero, fmt.Errorf("%w: no progress within %s", transport.ErrTimeout, c.timeout)
    }
}

func (c *Conn) Close() error {
    c.closeOnce.Do(func() {
        c.closeErr = c.rwc.Close()
        if errors.Is(c.closeErr, io.ErrClosedPipe) { c.closeErr = nil }
    })
    return c.closeErr
}

var _ transport.Link = (*Conn)(nil)
