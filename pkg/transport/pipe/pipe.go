// Package pipe implements the same-host named-pipe backend: a pair of FIFOs
// on unix, one duplex named pipe on windows.
package pipe

import (
    "context"

    "github.com/vsujeesh/CoSimIO/pkg/transport"
    "github.com/vsujeesh/CoSimIO/pkg/transport/stream"
)

// Opener is the pipe backend.
type Opener struct{}

func New() Opener { return Opener{} }

func (Opener) Kind() transport.Kind { return transport.KindPipe }

func (Opener) Open(ctx context.Context, s transport.Settings) (transport.Link, error) {
    rwc, err := open(ctx, s)
    if err != nil { return nil, err }
    return stream.New(rwc, s.Timeout), nil
}

var _ transport.Opener = Opener{}
