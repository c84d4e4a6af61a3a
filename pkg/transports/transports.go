// Package transports maps a communication format onto its backend.
package transports

import (
    "fmt"

    "github.com/vsujeesh/CoSimIO/pkg/transport"
    "github.com/vsujeesh/CoSimIO/pkg/transport/file"
    "github.com/vsujeesh/CoSimIO/pkg/transport/mem"
    "github.com/vsujeesh/CoSimIO/pkg/transport/pipe"
    "github.com/vsujeesh/CoSimIO/pkg/transport/socket"
)

// Options configures the transports built by NewByKind.
type Options struct {
    transport.Options
    // Hub pairs mem connections; nil uses the process-wide hub.
    Hub *mem.Hub
}

// OpenerByKind returns the backend for kind.
func OpenerByKind(kind transport.Kind, hub *mem.Hub) (transport.Opener, error) {
    switch kind {
    case transport.KindFile:
        return file.New(), nil
    case transport.KindSocket:
        return socket.New(), nil
    case transport.KindPipe:
        return pipe.New(), nil
    case transport.KindMem:
        return mem.New(hub), nil
    default:
        return nil, fmt.Errorf("%w: unknown transport kind %s", transport.ErrInvalidSettings, kind)
    }
}

// NewByKind constructs a framed Transport for kind.
func NewByKind(kind transport.Kind, opts Options) (transport.Transport, error) {
    o, err := OpenerByKind(kind, opts.Hub)
    if err != nil { return nil, err }
    return transport.NewFramed(o, opts.Options), nil
}
