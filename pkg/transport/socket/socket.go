// Package socket implements the TCP backend: the primary side listens and
// accepts exactly one peer, the secondary dials with bounded retries.
package socket

import (
    "context"
    "errors"
    "fmt"
    "net"
    "os"
    "path/filepath"
    "strconv"
    "strings"

    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/retry"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
    "github.com/vsujeesh/CoSimIO/pkg/transport/stream"
)

// Opener is the socket backend.
type Opener struct{}

func New() Opener { return Opener{} }

func (Opener) Kind() transport.Kind { return transport.KindSocket }

// PortFile is where a primary listening on an ephemeral port publishes it.
func PortFile(s transport.Settings) string {
    return filepath.Join(s.WorkingDirectory, ".CoSimIOSocket_"+s.ConnectionName+".port")
}

func (o Opener) Open(ctx context.Context, s transport.Settings) (transport.Link, error) {
    var (
        c   net.Conn
        err error
    )
    if s.Primary {
        c, err = accept(ctx, s)
    } else {
        c, err = dial(ctx, s)
    }
    if err != nil { return nil, err }
    if tc, ok := c.(*net.TCPConn); ok { _ = tc.SetNoDelay(true) }
    return stream.New(c, s.Timeout), nil
}

func accept(ctx context.Context, s transport.Settings) (net.Conn, error) {
    var lc net.ListenConfig
    l, err := lc.Listen(ctx, "tcp", net.JoinHostPort(s.Host, strconv.Itoa(s.Port)))
    if err != nil { return nil, fmt.Errorf("%w: listen: %v", transport.ErrInvalidSettings, err) }
    defer l.Close()

    if s.Port == 0 {
        port := l.Addr().(*net.TCPAddr).Port
        if err := transport.WriteFileAtomic(PortFile(s), []byte(strconv.Itoa(port))); err != nil { return nil, err }
        defer os.Remove(PortFile(s))
    }
    zap.L().Debug("socket listening", zap.String("connection", s.ConnectionName), zap.String("addr", l.Addr().String()))

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
        if ctx.Err() != nil { return nil, fmt.Errorf("%w: no peer connected to %s", transport.ErrTimeout, l.Addr()) }
        return nil, err
    }
    return c, nil
}

func dial(ctx context.Context, s transport.Settings) (net.Conn, error) {
    d := net.Dialer{Timeout: 4 * s.HandshakeInterval}
    c, err := retry.DoWithResult(ctx, retry.Handshake(s.HandshakeRetries, s.HandshakeInterval), func(int) (net.Conn, error) {
        port := s.Port
        if port == 0 {
            b, err := os.ReadFile(PortFile(s))
            if err != nil { return nil, err }
            if port, err = strconv.Atoi(strings.TrimSpace(string(b))); err != nil { return nil, err }
        }
        return d.DialContext(ctx, "tcp", net.JoinHostPort(s.Host, strconv.Itoa(port)))
    })
    if err != nil {
        if errors.Is(err, retry.ErrExhausted) || ctx.Err() != nil {
            return nil, fmt.Errorf("%w: could not reach primary of %q: %v", transport.ErrTimeout, s.ConnectionName, err)
        }
        return nil, err
    }
    return c, nil
}

var _ transport.Opener = Opener{}
