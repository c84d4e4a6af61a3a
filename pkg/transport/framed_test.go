package transport_test

import (
    "errors"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/sync/errgroup"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
    "github.com/vsujeesh/CoSimIO/pkg/transport/mem"
)

func settings(name, solver string, primary bool) *metadata.Metadata {
    m := metadata.New()
    m.SetString("connection_name", name)
    m.SetString("solver_name", solver)
    m.SetString("communication_format", "mem")
    m.SetBool("is_primary_connection", primary)
    m.SetDouble("timeout", 5)
    m.SetInt("handshake_retries", 20)
    m.SetDouble("handshake_interval", 0.01)
    return m
}

func pair(t *testing.T, hub *mem.Hub, a, b *metadata.Metadata) (*transport.Framed, *transport.Framed, error) {
    t.Helper()
    pa := transport.NewFramed(mem.New(hub), transport.Options{})
    pb := transport.NewFramed(mem.New(hub), transport.Options{})
    var g errgroup.Group
    g.Go(func() error { _, err := pa.Connect(a); return err })
    g.Go(func() error { _, err := pb.Connect(b); return err })
    return pa, pb, g.Wait()
}

func TestFramedHelloAndPayloads(t *testing.T) {
    hub := mem.NewHub()
    a, b, err := pair(t, hub, settings("fsi", "structure", true), settings("fsi", "fluid", false))
    require.NoError(t, err)
    assert.Equal(t, "fluid", a.Partner().SolverName)
    assert.Equal(t, "structure", b.Partner().SolverName)

    meta := metadata.New()
    meta.SetString("geometry", "plate")
    meta.SetDouble("thickness", 0.125)
    require.NoError(t, a.SendMetadata(meta))
    got, err := b.ReceiveMetadata()
    require.NoError(t, err)
    assert.True(t, got.Equal(meta))

    require.NoError(t, b.SendBuffer(buffer.Adopt([]int{7, 8})))
    ints := buffer.New[int](0)
    require.NoError(t, a.ReceiveBuffer(ints))
    assert.Equal(t, []int{7, 8}, ints.Data())

    require.NoError(t, a.SendControlSignal(protocol.CheckConvergence, ""))
    _, err = b.ReceiveMetadata()
    assert.ErrorIs(t, err, protocol.ErrProtocolViolation)

    require.NoError(t, a.Disconnect())
    require.NoError(t, b.Disconnect())
    assert.ErrorIs(t, a.SendControlSignal(protocol.Shutdown, ""), transport.ErrNotConnected)
}

func TestFramedHelloMismatch(t *testing.T) {
    a, b := settings("fsi", "structure", true), settings("fsi", "fluid", true)
    for _, m := range []*metadata.Metadata{a, b} {
        m.SetInt("handshake_retries", 2)
        m.SetDouble("timeout", 0.05)
    }
    _, _, err := pair(t, mem.NewHub(), a, b)
    // both sides claim the primary role: the hub refuses the second one
    assert.True(t, errors.Is(err, transport.ErrInvalidSettings) || errors.Is(err, protocol.ErrProtocolViolation), "got %v", err)
}

func TestFramedRejectsWrongKind(t *testing.T) {
    m := settings("fsi", "structure", true)
    m.SetString("communication_format", "file")
    _, err := transport.NewFramed(mem.New(mem.NewHub()), transport.Options{}).Connect(m)
    assert.ErrorIs(t, err, transport.ErrInvalidSettings)
}

func TestFramedUnknownCodec(t *testing.T) {
    m := settings("fsi", "structure", true)
    m.SetString("metadata_codec", "xml")
    _, err := transport.NewFramed(mem.New(mem.NewHub()), transport.Options{}).Connect(m)
    assert.ErrorIs(t, err, transport.ErrInvalidSettings)
}
