// Package connection drives one named coupling session: the handshake, the
// control-signal state machine, payload transfers and the callback loop.
package connection

import (
    "errors"
    "fmt"
    "sync"
    "sync/atomic"
    "time"

    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/mesh"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/metrics"
    "github.com/vsujeesh/CoSimIO/pkg/observability"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

var (
    ErrInvalidState     = errors.New("invalid connection state")
    ErrConcurrentUse    = errors.New("concurrent use of connection")
    ErrCallbackNotFound = errors.New("callback not registered")
    // ErrInvalidSignal rejects verbs that cannot be sent through SendControlSignal.
    ErrInvalidSignal = errors.New("signal cannot be sent directly")
)

// Options carries the collaborators of a Connection.
type Options struct {
    Logger  *zap.Logger
    Metrics *metrics.Collectors
}

// Connection owns one Transport exclusively. Only one operation may be in
// flight at a time; overlapping calls fail with ErrConcurrentUse.
type Connection struct {
    name    string
    tr      transport.Transport
    log     *zap.Logger
    metrics *metrics.Collectors

    state atomic.Int32
    busy  atomic.Bool

    mu        sync.Mutex
    callbacks map[string]Callback
    partner   *metadata.Metadata
    converged bool
    peerGone  bool
}

// New creates a connection in StateCreated.
func New(name string, tr transport.Transport, opts Options) *Connection {
    if opts.Logger == nil { opts.Logger = zap.L() }
    c := &Connection{
        name:      name,
        tr:        tr,
        log:       opts.Logger.With(zap.String("connection", name)),
        metrics:   opts.Metrics,
        callbacks: make(map[string]Callback),
    }
    c.setState(StateCreated)
    return c
}

func (c *Connection) Name() string                    { return c.name }
func (c *Connection) State() State                    { return State(c.state.Load()) }
func (c *Connection) Transport() transport.Transport { return c.tr }

// Partner returns a copy of the Hello the peer sent, or nil before Connect.
func (c *Connection) Partner() *metadata.Metadata {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.partner == nil { return nil }
    return c.partner.Clone()
}

func (c *Connection) setState(s State) {
    c.state.Store(int32(s))
    c.metrics.State(c.name, int(s))
}

// begin claims the connection for one operation that requires state from,
// runs in state during and, on success, leaves the connection in after.
// The returned end must be called exactly once.
func (c *Connection) begin(op string, from, during, after State) (func(error) error, error) {
    if !c.busy.CompareAndSwap(false, true) {
        return nil, fmt.Errorf("%w: %s while another call is in flight on %q", ErrConcurrentUse, op, c.name)
    }
    if st := c.State(); st != from {
        c.busy.Store(false)
        return nil, fmt.Errorf("%w: %s requires %s, %q is %s", ErrInvalidState, op, from, c.name, st)
    }
    c.setState(during)
    start := time.Now()
    return func(err error) error {
        switch {
        case err != nil && terminal(err):
            c.fail(op, err)
        case err != nil:
            c.setState(from)
        default:
            c.setState(after)
        }
        c.metrics.Observe(c.name, op, start, err)
        c.busy.Store(false)
        return err
    }, nil
}

// terminal reports whether err leaves the wire in an unknown position.
// Usage errors are detected before or after a complete frame and are not.
func terminal(err error) bool {
    switch {
    case errors.Is(err, buffer.ErrReadOnly), errors.Is(err, buffer.ErrNotResizable),
        errors.Is(err, buffer.ErrIndexOutOfRange), errors.Is(err, mesh.ErrInvalidMesh),
        errors.Is(err, ErrInvalidState), errors.Is(err, ErrConcurrentUse), errors.Is(err, ErrInvalidSignal):
        return false
    }
    return true
}

// fail moves to StateFailed and drops the transport.
func (c *Connection) fail(op string, err error) {
    if State(c.state.Swap(int32(StateFailed))) == StateFailed { return }
    c.metrics.State(c.name, int(StateFailed))
    if derr := c.tr.Disconnect(); derr != nil && !errors.Is(derr, transport.ErrNotConnected) {
        c.log.Debug("closing failed transport", zap.Error(derr))
    }
    c.log.Error("connection failed", zap.String("operation", op), zap.Error(err))
}

// Connect performs the transport handshake.
func (c *Connection) Connect(settings *metadata.Metadata) (*metadata.Metadata, error) {
    end, err := c.begin("Connect", StateCreated, StateConnecting, StateConnected)
    if err != nil { return nil, err }
    if echo, gerr := metadata.GetOr(settings, "echo_level", 0); gerr == nil {
        c.log = observability.EchoLogger(c.log, echo)
    }
    res, err := c.tr.Connect(settings)
    if err != nil { return nil, end(err) }
    partner, perr := res.GetMetadata("partner")
    if perr != nil { partner = metadata.New() }
    c.mu.Lock()
    c.partner = partner
    c.mu.Unlock()
    solver, _ := metadata.GetOr(partner, "solver_name", "")
    c.log.Info("connected", zap.Stringer("transport", c.tr.Kind()), zap.String("partner_solver", solver))
    return res, end(nil)
}

// Disconnect tells a present peer to shut down and closes the transport.
func (c *Connection) Disconnect() error {
    end, err := c.begin("Disconnect", StateConnected, StateDisconnecting, StateDisconnected)
    if err != nil { return err }
    c.mu.Lock()
    gone := c.peerGone
    c.mu.Unlock()
    if !gone {
        if serr := c.tr.SendControlSignal(protocol.Shutdown, ""); serr != nil {
            c.log.Warn("shutdown signal not delivered", zap.Error(serr))
        }
    }
    derr := c.tr.Disconnect()
    if errors.Is(derr, transport.ErrNotConnected) { derr = nil }
    if derr != nil { c.log.Warn("closing transport", zap.Error(derr)) }
    c.log.Info("disconnected")
    // the name is released either way; a close error is only reported
    end(nil)
    return derr
}

// Close force-closes the transport without talking to the peer. It is meant
// for process teardown and is safe in any state.
func (c *Connection) Close() error {
    st := c.State()
    if st == StateCreated || st == StateDisconnected { return nil }
    err := c.tr.Disconnect()
    if errors.Is(err, transport.ErrNotConnected) { err = nil }
    if st != StateFailed { c.setState(StateDisconnected) }
    c.metrics.Forget(c.name)
    return err
}
