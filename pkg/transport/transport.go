package transport

import (
    "context"
    "fmt"
    "strings"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
)

// Kind identifies the backend a connection communicates through.
type Kind int

const (
    KindUnknown Kind = iota
    KindFile
    KindSocket
    KindPipe
    KindMem
)

func (k Kind) String() string {
    switch k {
    case KindFile:
        return "file"
    case KindSocket:
        return "socket"
    case KindPipe:
        return "pipe"
    case KindMem:
        return "mem"
    default:
        return "unknown"
    }
}

// ParseKind maps a communication_format value to a Kind.
func ParseKind(s string) (Kind, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "file":
        return KindFile, nil
    case "socket", "sockets":
        return KindSocket, nil
    case "pipe":
        return KindPipe, nil
    case "mem":
        return KindMem, nil
    }
    return KindUnknown, fmt.Errorf("%w: unknown communication_format %q", ErrInvalidSettings, s)
}

// Link is an established frame channel to the peer. Exactly one goroutine
// uses a Link at a time. Send and Recv honour the timeout the Link was opened with.
type Link interface {
    Send(f *protocol.Frame) error
    Recv() (protocol.Frame, error)
    Close() error
}

// Opener rendezvouses with the peer described by Settings. ctx bounds the
// whole rendezvous.
type Opener interface {
    Kind() Kind
    Open(ctx context.Context, s Settings) (Link, error)
}

// Transport is the channel contract a Connection drives. All operations block
// until the peer produced or consumed the frame, or the configured timeout elapses.
type Transport interface {
    Kind() Kind
    // Connect opens the link and exchanges Hello metadata. The result holds
    // the partner's Hello under "partner".
    Connect(settings *metadata.Metadata) (*metadata.Metadata, error)
    Disconnect() error

    SendControlSignal(sig protocol.ControlSignal, identifier string) error
    ReceiveControlSignal() (protocol.ControlSignal, string, error)
    SendBuffer(p buffer.Payload) error
    // ReceiveBuffer resizes p to the received length; a borrowed p must already have it.
    ReceiveBuffer(p buffer.Payload) error
    SendMetadata(m *metadata.Metadata) error
    ReceiveMetadata() (*metadata.Metadata, error)
}
