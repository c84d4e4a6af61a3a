// Package mem is an in-process backend: both sides of a connection live in
// the same process and meet through a Hub keyed by connection name.
package mem

import (
    "context"
    "fmt"
    "sync"
    "time"

    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

// queueDepth bounds the frames in flight per direction. Strict alternation
// keeps at most a handful queued.
const queueDepth = 16

// Hub pairs the two ends of each named connection.
type Hub struct {
    mu    sync.Mutex
    slots map[string]*slot
}

func NewHub() *Hub { return &Hub{slots: make(map[string]*slot)} }

var shared = NewHub()

// Shared returns the process-wide hub used when none is injected.
func Shared() *Hub { return shared }

type slot struct {
    p2s, s2p  chan protocol.Frame
    ready     chan struct{}
    claimed   [2]bool
    closed    [2]chan struct{}
    closeOnce [2]sync.Once
}

func newSlot() *slot {
    return &slot{
        p2s:    make(chan protocol.Frame, queueDepth),
        s2p:    make(chan protocol.Frame, queueDepth),
        ready:  make(chan struct{}),
        closed: [2]chan struct{}{make(chan struct{}), make(chan struct{})},
    }
}

func role(primary bool) int {
    if primary { return 0 }
    return 1
}

// Opener is the mem backend bound to a hub.
type Opener struct{ hub *Hub }

func New(h *Hub) Opener {
    if h == nil { h = shared }
    return Opener{hub: h}
}

func (Opener) Kind() transport.Kind { return transport.KindMem }

func (o Opener) Open(ctx context.Context, s transport.Settings) (transport.Link, error) {
    r := role(s.Primary)
    o.hub.mu.Lock()
    sl := o.hub.slots[s.ConnectionName]
    if sl == nil {
        sl = newSlot()
        o.hub.slots[s.ConnectionName] = sl
    }
    if sl.claimed[r] {
        o.hub.mu.Unlock()
        return nil, fmt.Errorf("%w: %q already has a %s side waiting", transport.ErrInvalidSettings, s.ConnectionName, sideName(r))
    }
    sl.claimed[r] = true
    if sl.claimed[0] && sl.claimed[1] { close(sl.ready) }
    o.hub.mu.Unlock()

    select {
    case <-sl.ready:
    case <-ctx.Done():
        if !o.hub.abandon(s.ConnectionName, sl, r) {
            return nil, fmt.Errorf("%w: no peer joined %q", transport.ErrTimeout, s.ConnectionName)
        }
    }
    e := &endpoint{hub: o.hub, name: s.ConnectionName, sl: sl, r: r, timeout: s.Timeout}
    if s.Primary {
        e.in, e.out = sl.s2p, sl.p2s
    } else {
        e.in, e.out = sl.p2s, sl.s2p
    }
    return e, nil
}

func sideName(r int) string {
    if r == 0 { return "primary" }
    return "secondary"
}

// abandon withdraws role r from a slot that never became ready. It reports
// false when the peer arrived in the meantime and the link can be used.
func (h *Hub) abandon(name string, sl *slot, r int) bool {
    h.mu.Lock()
    defer h.mu.Unlock()
    select {
    case <-sl.ready:
        return true
    default:
    }
    sl.claimed[r] = false
    if !sl.claimed[1-r] && h.slots[name] == sl { delete(h.slots, name) }
    return false
}

// release forgets sl if it is still the slot registered under name.
func (h *Hub) release(name string, sl *slot) {
    h.mu.Lock()
    defer h.mu.Unlock()
    if h.slots[name] == sl { delete(h.slots, name) }
}

type endpoint struct {
    hub     *Hub
    name    string
    sl      *slot
    r       int
    in      <-chan protocol.Frame
    out     chan<- protocol.Frame
    timeout time.Duration
}

func (e *endpoint) mine() chan struct{}   { return e.sl.closed[e.r] }
func (e *endpoint) theirs() chan struct{} { return e.sl.closed[1-e.r] }

func (e *endpoint) timer() (<-chan time.Time, func()) {
    if e.timeout <= 0 { return nil, func() {} }
    t := time.NewTimer(e.timeout)
    return t.C, func() { t.Stop() }
}

func (e *endpoint) Send(f *protocol.Frame) error {
    expired, stop := e.timer()
    defer stop()
    select {
    case <-e.mine():
        return transport.ErrNotConnected
    default:
    }
    select {
    case <-e.theirs():
        return fmt.Errorf("%w: peer closed %q", transport.ErrConnectionLost, e.name)
    default:
    }
    select {
    case e.out <- *f:
        return nil
    case <-e.mine():
        return transport.ErrNotConnected
    case <-e.theirs():
        return fmt.Errorf("%w: peer closed %q", transport.ErrConnectionLost, e.name)
    case <-expired:
        return fmt.Errorf("%w: send on %q", transport.ErrTimeout, e.name)
    }
}

func (e *endpoint) Recv() (protocol.Frame, error) {
    select {
    case <-e.mine():
        return protocol.Frame{}, transport.ErrNotConnected
    default:
    }
    select {
    case f := <-e.in:
        return f, nil
    default:
    }
    expired, stop := e.timer()
    defer stop()
    select {
    case f := <-e.in:
        return f, nil
    case <-e.mine():
        return protocol.Frame{}, transport.ErrNotConnected
    case <-e.theirs():
        // frames queued before the peer left are still delivered
        select {
        case f := <-e.in:
            return f, nil
        default:
        }
        return protocol.Frame{}, fmt.Errorf("%w: peer closed %q", transport.ErrConnectionLost, e.name)
    case <-expired:
        return protocol.Frame{}, fmt.Errorf("%w: receive on %q", transport.ErrTimeout, e.name)
    }
}

func (e *endpoint) Close() error {
    e.sl.closeOnce[e.r].Do(func() {
        close(e.mine())
        e.hub.release(e.name, e.sl)
    })
    return nil
}

var _ transport.Opener = Opener{}
