package transport

import (
    "errors"
    "fmt"
    "io"
    "net"
    "os"
    "syscall"
)

var (
    ErrTimeout         = errors.New("transport timeout")
    ErrConnectionLost  = errors.New("connection lost")
    ErrInvalidSettings = errors.New("invalid settings")
    ErrNotConnected    = errors.New("transport not connected")
)

// Classify maps low-level I/O failures onto the transport taxonomy.
// Errors that already carry a taxonomy member are returned unchanged.
func Classify(err error) error {
    if err == nil { return nil }
    if errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionLost) || errors.Is(err, ErrNotConnected) {
        return err
    }
    var ne net.Error
    if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
        return fmt.Errorf("%w: %v", ErrTimeout, err)
    }
    switch {
    case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.ErrClosedPipe),
        errors.Is(err, net.ErrClosed), errors.Is(err, os.ErrClosed),
        errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE), errors.Is(err, syscall.ECONNABORTED):
        return fmt.Errorf("%w: %v", ErrConnectionLost, err)
    }
    return err
}
