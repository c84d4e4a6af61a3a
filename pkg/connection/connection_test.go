package connection_test

import (
    "errors"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "golang.org/x/sync/errgroup"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/connection"
    "github.com/vsujeesh/CoSimIO/pkg/mesh"
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

// connected returns a connected (orchestrator, solver) pair.
func connected(t *testing.T, name string) (*connection.Connection, *connection.Connection) {
    t.Helper()
    hub := mem.NewHub()
    a := connection.New(name, transport.NewFramed(mem.New(hub), transport.Options{}), connection.Options{})
    b := connection.New(name, transport.NewFramed(mem.New(hub), transport.Options{}), connection.Options{})
    var g errgroup.Group
    g.Go(func() error { _, err := a.Connect(settings(name, "driver", true)); return err })
    g.Go(func() error { _, err := b.Connect(settings(name, "solver", false)); return err })
    require.NoError(t, g.Wait())
    t.Cleanup(func() { a.Close(); b.Close() })
    return a, b
}

func waitState(t *testing.T, c *connection.Connection, want connection.State) {
    t.Helper()
    require.Eventually(t, func() bool { return c.State() == want }, 2*time.Second, time.Millisecond)
}

func TestConnectReportsPartner(t *testing.T) {
    a, b := connected(t, "partner")
    assert.Equal(t, connection.StateConnected, a.State())
    solver, err := metadata.GetOr(a.Partner(), "solver_name", "")
    require.NoError(t, err)
    assert.Equal(t, "solver", solver)
    solver, err = metadata.GetOr(b.Partner(), "solver_name", "")
    require.NoError(t, err)
    assert.Equal(t, "driver", solver)
}

func TestMeshExchange(t *testing.T) {
    a, b := connected(t, "mesh")
    coords := buffer.Adopt([]float64{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0})
    conn := buffer.Adopt([]int{0, 1, 2, 1, 3, 2})
    types := buffer.Adopt([]int{int(mesh.Triangle), int(mesh.Triangle)})

    gotCoords, gotConn, gotTypes := buffer.New[float64](0), buffer.New[int](0), buffer.New[int](0)
    var g errgroup.Group
    g.Go(func() error { return a.ExportMesh("interface", coords, conn, types) })
    g.Go(func() error { return b.ImportMesh("interface", gotCoords, gotConn, gotTypes) })
    require.NoError(t, g.Wait())

    assert.Equal(t, coords.Data(), gotCoords.Data())
    assert.Equal(t, conn.Data(), gotConn.Data())
    assert.Equal(t, types.Data(), gotTypes.Data())
    assert.Equal(t, connection.StateConnected, a.State())
    assert.Equal(t, connection.StateConnected, b.State())
}

func TestDataExchange(t *testing.T) {
    a, b := connected(t, "data")
    got := buffer.New[float64](0)
    var g errgroup.Group
    g.Go(func() error { return a.ExportData("field", buffer.Adopt([]float64{1, 2, 3})) })
    g.Go(func() error { return b.ImportData("field", got) })
    require.NoError(t, g.Wait())
    assert.Equal(t, []float64{1, 2, 3}, got.Data())
}

func TestGeometryExchange(t *testing.T) {
    a, b := connected(t, "geometry")
    geo := metadata.New()
    geo.SetString("kind", "plate")
    geo.SetDouble("thickness", 0.25)
    var got *metadata.Metadata
    var g errgroup.Group
    g.Go(func() error { return a.ExportGeometry("wall", geo) })
    g.Go(func() (err error) { got, err = b.ImportGeometry("wall"); return err })
    require.NoError(t, g.Wait())
    assert.True(t, got.Equal(geo))
}

func TestExportInvalidMeshKeepsConnection(t *testing.T) {
    a, _ := connected(t, "badmesh")
    err := a.ExportMesh("m", buffer.Adopt([]float64{0, 0, 0}), buffer.Adopt([]int{0, 5}), buffer.Adopt([]int{int(mesh.Line)}))
    assert.ErrorIs(t, err, mesh.ErrInvalidMesh)
    assert.Equal(t, connection.StateConnected, a.State())
}

func TestImportIntoReadOnlyBuffer(t *testing.T) {
    _, b := connected(t, "readonly")
    err := b.ImportData("field", buffer.AdoptReadOnly([]float64{0}))
    assert.ErrorIs(t, err, buffer.ErrReadOnly)
    assert.Equal(t, connection.StateConnected, b.State())
}

func TestMismatchedIdentifierFailsBothSides(t *testing.T) {
    a, b := connected(t, "violation")
    var errA, errB error
    var g errgroup.Group
    g.Go(func() error { errA = a.ExportData("pressure", buffer.Adopt([]float64{1})); return nil })
    g.Go(func() error { errB = b.ImportData("displacement", buffer.New[float64](0)); return nil })
    require.NoError(t, g.Wait())

    assert.ErrorIs(t, errB, protocol.ErrProtocolViolation)
    assert.Error(t, errA)
    assert.Equal(t, connection.StateFailed, a.State())
    assert.Equal(t, connection.StateFailed, b.State())
    assert.ErrorIs(t, a.ExportData("pressure", buffer.Adopt([]float64{1})), connection.ErrInvalidState)
}

func TestTransferBeforeConnect(t *testing.T) {
    c := connection.New("idle", transport.NewFramed(mem.New(mem.NewHub()), transport.Options{}), connection.Options{})
    assert.ErrorIs(t, c.ExportData("x", buffer.Adopt([]int{1})), connection.ErrInvalidState)
    assert.ErrorIs(t, c.Disconnect(), connection.ErrInvalidState)
    assert.Equal(t, connection.StateCreated, c.State())
}

func TestIsConvergedFollowsSolverFlag(t *testing.T) {
    a, b := connected(t, "convergence")
    var g errgroup.Group
    g.Go(b.Run)

    ok, err := a.IsConverged()
    require.NoError(t, err)
    assert.False(t, ok)

    b.SetConverged(true)
    ok, err = a.IsConverged()
    require.NoError(t, err)
    assert.True(t, ok)

    require.NoError(t, a.SendControlSignal(protocol.BreakSolutionLoop, ""))
    require.NoError(t, g.Wait())
    assert.Equal(t, connection.StateConnected, b.State())
}

func TestAnswerConvergenceOutsideRunLoop(t *testing.T) {
    a, b := connected(t, "answer")
    var g errgroup.Group
    g.Go(func() error { return b.AnswerConvergence(true) })
    ok, err := a.IsConverged()
    require.NoError(t, err)
    require.NoError(t, g.Wait())
    assert.True(t, ok)
}

func TestRunDispatchesCallbacks(t *testing.T) {
    a, b := connected(t, "run")
    var solved []string
    require.NoError(t, b.Register("SolveSolutionStep", connection.Notifier(func(name, id string) error {
        solved = append(solved, name+"/"+id)
        return nil
    })))
    require.NoError(t, b.Register("AdvanceInTime", connection.Scalar(func(t float64) float64 { return t + 0.5 })))
    field := buffer.New[float64](0)
    require.NoError(t, b.Register("ImportData", connection.Notifier(func(_, id string) error {
        return b.ImportData(id, field)
    })))

    var g errgroup.Group
    g.Go(b.Run)

    next, err := a.AdvanceInTime(1.0)
    require.NoError(t, err)
    assert.Equal(t, 1.5, next)

    require.NoError(t, a.SendControlSignal(protocol.SolveSolutionStep, "step-1"))
    require.NoError(t, a.SendControlSignal(protocol.ImportData, "load"))
    require.NoError(t, a.ExportData("load", buffer.Adopt([]float64{4, 2})))
    require.NoError(t, a.SendControlSignal(protocol.BreakSolutionLoop, ""))
    require.NoError(t, g.Wait())

    assert.Equal(t, []string{"run/step-1"}, solved)
    assert.Equal(t, []float64{4, 2}, field.Data())
    assert.Equal(t, connection.StateConnected, b.State())
}

func TestRunEndsOnShutdown(t *testing.T) {
    a, b := connected(t, "shutdown")
    var g errgroup.Group
    g.Go(b.Run)
    waitState(t, b, connection.StateRunning)
    require.NoError(t, a.Disconnect())
    require.NoError(t, g.Wait())
    assert.Equal(t, connection.StateDisconnected, a.State())
    require.NoError(t, b.Disconnect())
    assert.Equal(t, connection.StateDisconnected, b.State())
}

func TestRunUnknownCallback(t *testing.T) {
    a, b := connected(t, "unknown")
    var runErr error
    var g errgroup.Group
    g.Go(func() error { runErr = b.Run(); return nil })

    err := a.SendControlSignal(protocol.FinalizeSolutionStep, "")
    assert.Error(t, err)
    require.NoError(t, g.Wait())
    assert.ErrorIs(t, runErr, connection.ErrCallbackNotFound)
    assert.Equal(t, connection.StateFailed, b.State())
    assert.Equal(t, connection.StateFailed, a.State())
}

func TestSendControlSignalRejectsReplies(t *testing.T) {
    a, _ := connected(t, "reply")
    for _, sig := range []protocol.ControlSignal{protocol.Dummy, protocol.ConvergenceAchieved, protocol.CheckConvergence, protocol.Shutdown} {
        assert.ErrorIs(t, a.SendControlSignal(sig, ""), connection.ErrInvalidSignal, sig.String())
    }
    assert.Equal(t, connection.StateConnected, a.State())
}

func TestConcurrentUse(t *testing.T) {
    a, b := connected(t, "busy")
    var g errgroup.Group
    g.Go(b.Run)
    waitState(t, b, connection.StateRunning)

    err := b.ExportData("x", buffer.Adopt([]int{1}))
    assert.True(t, errors.Is(err, connection.ErrConcurrentUse), "got %v", err)
    assert.Equal(t, connection.StateRunning, b.State())

    require.NoError(t, a.SendControlSignal(protocol.BreakSolutionLoop, ""))
    require.NoError(t, g.Wait())
}

func TestCallbackRegistrationValidation(t *testing.T) {
    c := connection.New("cb", transport.NewFramed(mem.New(mem.NewHub()), transport.Options{}), connection.Options{})
    assert.Error(t, c.Register("", connection.Action(func() error { return nil })))
    assert.Error(t, c.Register("SolveSolutionStep", nil))
    assert.NoError(t, c.Register("SolveSolutionStep", connection.Action(func() error { return nil })))
}

func TestStateStatus(t *testing.T) {
    assert.Equal(t, "Connected", connection.StateRunning.Status())
    assert.Equal(t, "Disconnected", connection.StateCreated.Status())
    assert.Equal(t, "Failed", connection.StateFailed.Status())
    assert.False(t, connection.StateFailed.Live())
    assert.True(t, connection.StateImporting.Live())
}
