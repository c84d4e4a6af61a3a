package transport

import (
    "context"
    "fmt"
    "sync"

    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/handshake"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/metrics"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/protocol/codec"
)

// Options carries the collaborators shared by every framed transport.
type Options struct {
    Codecs  *codec.Registry
    Metrics *metrics.Collectors
    Logger  *zap.Logger
}

// Framed implements Transport over any Opener.
type Framed struct {
    opener  Opener
    codecs  *codec.Registry
    metrics *metrics.Collectors
    log     *zap.Logger

    mu       sync.Mutex
    link     Link
    codec    codec.Codec
    settings Settings
    local    handshake.Hello
    partner  handshake.Hello
}

// NewFramed wraps o. Zero Options fall back to the default codec set and the global logger.
func NewFramed(o Opener, opts Options) *Framed {
    if opts.Codecs == nil { opts.Codecs = codec.NewRegistry() }
    if opts.Logger == nil { opts.Logger = zap.L() }
    return &Framed{opener: o, codecs: opts.Codecs, metrics: opts.Metrics, log: opts.Logger}
}

func (t *Framed) Kind() Kind { return t.opener.Kind() }

// Settings returns the settings of the current link.
func (t *Framed) Settings() Settings { t.mu.Lock(); defer t.mu.Unlock(); return t.settings }

// Partner returns the Hello the peer sent during Connect.
func (t *Framed) Partner() handshake.Hello { t.mu.Lock(); defer t.mu.Unlock(); return t.partner }

func (t *Framed) Connect(settings *metadata.Metadata) (*metadata.Metadata, error) {
    s, err := ParseSettings(settings)
    if err != nil { return nil, err }
    if s.Kind != t.opener.Kind() {
        return nil, fmt.Errorf("%w: communication_format %s on a %s transport", ErrInvalidSettings, s.Kind, t.opener.Kind())
    }
    c, err := t.codecs.Lookup(s.Codec)
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrInvalidSettings, err) }

    t.mu.Lock()
    defer t.mu.Unlock()
    if t.link != nil { return nil, fmt.Errorf("%w: transport already connected", ErrInvalidSettings) }

    log := t.log.With(zap.String("connection", s.ConnectionName), zap.Stringer("transport", s.Kind), zap.Bool("primary", s.Primary))
    log.Debug("opening link")
    ctx, cancel := context.WithTimeout(context.Background(), s.HandshakeWindow())
    defer cancel()
    link, err := t.opener.Open(ctx, s)
    if err != nil {
        log.Warn("link rendezvous failed", zap.Error(err))
        return nil, Classify(err)
    }

    local := handshake.Build(s.ConnectionName, s.SolverName, s.SolverVersion, s.Kind.String(), s.Primary)
    partner, err := t.exchangeHello(link, c, local)
    if err != nil {
        _ = link.Close()
        log.Warn("hello exchange failed", zap.Error(err))
        return nil, err
    }
    t.link, t.codec, t.settings, t.local, t.partner = link, c, s, local, partner
    log.Info("link established", zap.String("partner_solver", partner.SolverName), zap.String("partner_instance", partner.InstanceID))

    out := metadata.New()
    out.SetBool("is_primary_connection", s.Primary)
    out.SetString("communication_format", s.Kind.String())
    out.SetMetadata("partner", partner.Metadata())
    return out, nil
}

func (t *Framed) exchangeHello(link Link, c codec.Codec, local handshake.Hello) (handshake.Hello, error) {
    f, err := protocol.MetadataFrame(protocol.KindHello, c, local.Metadata())
    if err != nil { return handshake.Hello{}, err }
    if err := link.Send(&f); err != nil { return handshake.Hello{}, Classify(err) }
    in, err := link.Recv()
    if err != nil { return handshake.Hello{}, Classify(err) }
    if in.Header.Kind != protocol.KindHello {
        return handshake.Hello{}, fmt.Errorf("%w: expected hello, received %s frame", protocol.ErrProtocolViolation, in.Header.Kind)
    }
    m, err := in.Metadata(t.codecs)
    if err != nil { return handshake.Hello{}, fmt.Errorf("%w: %v", protocol.ErrProtocolViolation, err) }
    remote, err := handshake.FromMetadata(m)
    if err != nil { return handshake.Hello{}, err }
    if err := handshake.Verify(local, remote); err != nil { return handshake.Hello{}, err }
    return remote, nil
}

// Disconnect closes the link. It does not talk to the peer.
func (t *Framed) Disconnect() error {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.link == nil { return ErrNotConnected }
    err := t.link.Close()
    t.link = nil
    t.log.Debug("link closed", zap.String("connection", t.settings.ConnectionName))
    return err
}

func (t *Framed) current() (Link, error) {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.link == nil { return nil, ErrNotConnected }
    return t.link, nil
}

func (t *Framed) send(f *protocol.Frame) error {
    link, err := t.current()
    if err != nil { return err }
    if err := link.Send(f); err != nil { return Classify(err) }
    t.metrics.Bytes(t.settings.ConnectionName, "sent", f.Header.Kind.String(), len(f.Payload))
    return nil
}

func (t *Framed) recv() (protocol.Frame, error) {
    link, err := t.current()
    if err != nil { return protocol.Frame{}, err }
    f, err := link.Recv()
    if err != nil { return protocol.Frame{}, Classify(err) }
    t.metrics.Bytes(t.settings.ConnectionName, "received", f.Header.Kind.String(), len(f.Payload))
    return f, nil
}

func (t *Framed) SendControlSignal(sig protocol.ControlSignal, identifier string) error {
    f := protocol.SignalFrame(sig, identifier)
    if err := t.send(&f); err != nil { return err }
    t.metrics.Signal(t.settings.ConnectionName, "sent", sig.String())
    return nil
}

func (t *Framed) ReceiveControlSignal() (protocol.ControlSignal, string, error) {
    f, err := t.recv()
    if err != nil { return 0, "", err }
    sig, id, err := f.Signal()
    if err != nil { return 0, "", err }
    t.metrics.Signal(t.settings.ConnectionName, "received", sig.String())
    return sig, id, nil
}

func (t *Framed) SendBuffer(p buffer.Payload) error {
    f := protocol.BufferFrame(p)
    return t.send(&f)
}

func (t *Framed) ReceiveBuffer(p buffer.Payload) error {
    f, err := t.recv()
    if err != nil { return err }
    return f.DecodeInto(p)
}

func (t *Framed) SendMetadata(m *metadata.Metadata) error {
    f, err := protocol.MetadataFrame(protocol.KindMetadata, t.codec, m)
    if err != nil { return err }
    return t.send(&f)
}

func (t *Framed) ReceiveMetadata() (*metadata.Metadata, error) {
    f, err := t.recv()
    if err != nil { return nil, err }
    if f.Header.Kind != protocol.KindMetadata {
        return nil, fmt.Errorf("%w: expected metadata, received %s frame", protocol.ErrProtocolViolation, f.Header.Kind)
    }
    return f.Metadata(t.codecs)
}
