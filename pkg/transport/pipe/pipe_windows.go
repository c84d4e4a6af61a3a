//go:build windows

package pipe

import (
    "context"
    "errors"
    "fmt"
    "io"

    "github.com/Microsoft/go-winio"

    "github.com/vsujeesh/CoSimIO/pkg/retry"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

// Path returns the duplex named pipe of a connection.
func Path(s transport.Settings) string { return `\\.\pipe\CoSimIO_` + s.ConnectionName }

func open(ctx context.Context, s transport.Settings) (io.ReadWriteCloser, error) {
    if s.Primary { return accept(ctx, s) }
    c, err := retry.DoWithResult(ctx, retry.Handshake(s.HandshakeRetries, s.HandshakeInterval), func(int) (io.ReadWriteCloser, error) {
        return winio.DialPipeContext(ctx, Path(s))
    })
    if err != nil {
        if errors.Is(err, retry.ErrExhausted) || ctx.Err() != nil {
            return nil, fmt.Errorf("%w: pipe %s: %v", transport.ErrTimeout, Path(s), err)
        }
        return nil, err
    }
    return c, nil
}

func accept(ctx context.Context, s transport.Settings) (io.ReadWriteCloser, error) {
    l, err := winio.ListenPipe(Path(s), nil)
    if err != nil { return nil, fmt.Errorf("%w: %v", transport.ErrInvalidSettings, err) }
    defer l.Close()
    stop := make(chan struct{})
    defer close(stop)
    go func() {
        select {
        case <-ctx.Done():
            _ = l.Close()
        case <-stop:
        }
    }()
    c, err := l.Accept()
    if err != nil {
        if ctx.Err() != nil { return nil, fmt.Errorf("%w: no peer on %s", transport.ErrTimeout, Path(s)) }
        return nil, err
    }
    return c, nil
}
