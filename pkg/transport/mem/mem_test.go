package mem

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/sync/errgroup"

    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

func open(t *testing.T, h *Hub, name string) (transport.Link, transport.Link) {
    t.Helper()
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    var p, s transport.Link
    var g errgroup.Group
    g.Go(func() (err error) { p, err = New(h).Open(ctx, transport.Settings{ConnectionName: name, Primary: true, Timeout: time.Second}); return })
    g.Go(func() (err error) { s, err = New(h).Open(ctx, transport.Settings{ConnectionName: name, Timeout: time.Second}); return })
    require.NoError(t, g.Wait())
    return p, s
}

func TestMemSymmetricSends(t *testing.T) {
    p, s := open(t, NewHub(), "sym")
    defer p.Close()
    defer s.Close()

    a := protocol.SignalFrame(protocol.ExportData, "x")
    b := protocol.SignalFrame(protocol.ExportMesh, "y")
    require.NoError(t, p.Send(&a))
    require.NoError(t, s.Send(&b))

    got, err := s.Recv()
    require.NoError(t, err)
    sig, id, _ := got.Signal()
    assert.Equal(t, protocol.ExportData, sig)
    assert.Equal(t, "x", id)

    got, err = p.Recv()
    require.NoError(t, err)
    sig, _, _ = got.Signal()
    assert.Equal(t, protocol.ExportMesh, sig)
}

func TestMemQueuedFramesSurvivePeerClose(t *testing.T) {
    p, s := open(t, NewHub(), "drain")
    f := protocol.SignalFrame(protocol.Shutdown, "")
    require.NoError(t, p.Send(&f))
    require.NoError(t, p.Close())

    got, err := s.Recv()
    require.NoError(t, err)
    sig, _, _ := got.Signal()
    assert.Equal(t, protocol.Shutdown, sig)

    _, err = s.Recv()
    assert.ErrorIs(t, err, transport.ErrConnectionLost)
    assert.ErrorIs(t, s.Send(&f), transport.ErrConnectionLost)
    require.NoError(t, s.Close())
    assert.ErrorIs(t, s.Send(&f), transport.ErrNotConnected)
}

func TestMemRecvTimeout(t *testing.T) {
    p, s := open(t, NewHub(), "quiet")
    defer p.Close()
    defer s.Close()
    _, err := s.Recv()
    assert.True(t, errors.Is(err, transport.ErrTimeout), "got %v", err)
}

func TestMemNoPeer(t *testing.T) {
    h := NewHub()
    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
    defer cancel()
    _, err := New(h).Open(ctx, transport.Settings{ConnectionName: "alone", Primary: true})
    assert.ErrorIs(t, err, transport.ErrTimeout)
    h.mu.Lock()
    defer h.mu.Unlock()
    assert.Empty(t, h.slots)
}

func TestMemRoleTaken(t *testing.T) {
    h := NewHub()
    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()
    done := make(chan error, 1)
    go func() {
        _, err := New(h).Open(ctx, transport.Settings{ConnectionName: "dup", Primary: true})
        done <- err
    }()
    require.Eventually(t, func() bool {
        h.mu.Lock()
        defer h.mu.Unlock()
        sl := h.slots["dup"]
        return sl != nil && sl.claimed[0]
    }, time.Second, time.Millisecond)
    _, err := New(h).Open(ctx, transport.Settings{ConnectionName: "dup", Primary: true})
    assert.ErrorIs(t, err, transport.ErrInvalidSettings)
    cancel()
    assert.ErrorIs(t, <-done, transport.ErrTimeout)
}
