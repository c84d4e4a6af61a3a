package file

import (
    "context"
    "os"
    "path/filepath"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/sync/errgroup"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

func settings(dir string, primary bool) transport.Settings {
    return transport.Settings{
        ConnectionName:    "file_test",
        Kind:              transport.KindFile,
        Primary:           primary,
        WorkingDirectory:  dir,
        Timeout:           5 * time.Second,
        HandshakeRetries:  200,
        HandshakeInterval: 5 * time.Millisecond,
    }
}

func openPair(t *testing.T, dir string) (transport.Link, transport.Link) {
    t.Helper()
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    var p, s transport.Link
    var g errgroup.Group
    g.Go(func() (err error) { p, err = New().Open(ctx, settings(dir, true)); return })
    g.Go(func() (err error) { s, err = New().Open(ctx, settings(dir, false)); return })
    require.NoError(t, g.Wait())
    return p, s
}

func TestFileRendezvousAndExchange(t *testing.T) {
    dir := t.TempDir()
    p, s := openPair(t, dir)

    comm := Dir(settings(dir, true))
    assert.NoFileExists(t, filepath.Join(comm, primaryMarker))
    assert.NoFileExists(t, filepath.Join(comm, secondaryMarker))

    sig := protocol.SignalFrame(protocol.ExportData, "field")
    data := protocol.BufferFrame(buffer.Adopt([]float64{1, 2, 3}))
    require.NoError(t, p.Send(&sig))
    require.NoError(t, p.Send(&data))

    got, err := s.Recv()
    require.NoError(t, err)
    v, id, err := got.Signal()
    require.NoError(t, err)
    assert.Equal(t, protocol.ExportData, v)
    assert.Equal(t, "field", id)

    got, err = s.Recv()
    require.NoError(t, err)
    out := buffer.New[float64](0)
    require.NoError(t, got.DecodeInto(out))
    assert.Equal(t, []float64{1, 2, 3}, out.Data())

    msgs, _ := filepath.Glob(filepath.Join(comm, "*.msg"))
    assert.Empty(t, msgs, "receiver must delete consumed frames")

    ack := protocol.SignalFrame(protocol.ImportData, "field")
    require.NoError(t, s.Send(&ack))
    _, err = p.Recv()
    require.NoError(t, err)

    require.NoError(t, p.Close())
    _, err = s.Recv()
    assert.ErrorIs(t, err, transport.ErrConnectionLost)
    require.NoError(t, s.Close())
    assert.NoDirExists(t, comm)
}

func TestFileStaleSecondaryMarkerIgnored(t *testing.T) {
    dir := t.TempDir()
    comm := Dir(settings(dir, true))
    require.NoError(t, os.MkdirAll(comm, 0o755))
    require.NoError(t, os.WriteFile(filepath.Join(comm, secondaryMarker), []byte("old-session"), 0o644))
    require.NoError(t, os.WriteFile(filepath.Join(comm, "old-session_s2p_000000.msg"), []byte("junk"), 0o644))

    p, s := openPair(t, dir)
    defer p.Close()
    defer s.Close()

    f := protocol.SignalFrame(protocol.CheckConvergence, "")
    require.NoError(t, s.Send(&f))
    got, err := p.Recv()
    require.NoError(t, err)
    v, _, _ := got.Signal()
    assert.Equal(t, protocol.CheckConvergence, v)
}

func TestFileHandshakeTimeout(t *testing.T) {
    cfg := settings(t.TempDir(), true)
    cfg.HandshakeRetries = 3
    cfg.HandshakeInterval = time.Millisecond
    _, err := New().Open(context.Background(), cfg)
    assert.ErrorIs(t, err, transport.ErrTimeout)
    assert.NoFileExists(t, filepath.Join(Dir(cfg), primaryMarker))
}

func TestFileRecvTimeout(t *testing.T) {
    dir := t.TempDir()
    p, s := openPair(t, dir)
    defer p.Close()
    defer s.Close()
    s.(*link).timeout = 20 * time.Millisecond
    _, err := s.Recv()
    assert.ErrorIs(t, err, transport.ErrTimeout)
}

func TestFileCloseUnblocksRecv(t *testing.T) {
    dir := t.TempDir()
    p, s := openPair(t, dir)
    defer p.Close()
    s.(*link).timeout = 0

    errc := make(chan error, 1)
    go func() {
        _, err := s.Recv()
        errc <- err
    }()
    time.Sleep(30 * time.Millisecond)
    require.NoError(t, s.Close())

    select {
    case err := <-errc:
        assert.ErrorIs(t, err, transport.ErrNotConnected)
    case <-time.After(2 * time.Second):
        t.Fatal("Recv still blocked after Close")
    }
    assert.NoError(t, s.Close(), "second Close is a no-op")
    f := protocol.SignalFrame(protocol.Dummy, "")
    assert.ErrorIs(t, s.Send(&f), transport.ErrNotConnected)
}
