package solver

import (
    "fmt"

    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/cosimio"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
)

// Driver plays the co-simulation side for Solver. In the weak and strong
// modes it answers the solver's exchanges; in the orchestrated mode it
// drives the solver's run loop.
type Driver struct {
    io   *cosimio.IO
    name string
    tl   Timeline
    log  *zap.Logger

    // Iterations is the number of coupling iterations per step in strong mode.
    Iterations int

    Coords   *buffer.Buffer[float64]
    Conn     *buffer.Buffer[int]
    Types    *buffer.Buffer[int]
    Velocity *buffer.Buffer[float64]
    Time     float64
    Steps    int
}

func NewDriver(io *cosimio.IO, name string, tl Timeline, log *zap.Logger) *Driver {
    if log == nil { log = zap.L() }
    return &Driver{
        io:         io,
        name:       name,
        tl:         tl,
        log:        log.With(zap.String("solver", "co_sim_driver")),
        Iterations: 3,
        Coords:     buffer.New[float64](0),
        Conn:       buffer.New[int](0),
        Types:      buffer.New[int](0),
        Velocity:   buffer.New[float64](0),
    }
}

func (d *Driver) info(identifier string) *metadata.Metadata {
    m := metadata.New()
    m.SetString("connection_name", d.name)
    if identifier != "" { m.SetString("identifier", identifier) }
    return m
}

// pressure is the load applied at step n.
func pressure(n, size int) *buffer.Buffer[float64] {
    p := make([]float64, size)
    for i := range p { p[i] = float64(n) + float64(i)*0.5 }
    return buffer.Adopt(p)
}

// Run drives the solver side through mode. The connection must be established.
func (d *Driver) Run(mode Mode) error {
    d.log.Info("co-simulation started", zap.Stringer("mode", mode))
    var err error
    switch mode {
    case Weak:
        err = d.answer(false)
    case Strong:
        err = d.answer(true)
    case Orchestrated:
        err = d.orchestrate()
    default:
        err = fmt.Errorf("mode %s needs no driver", mode)
    }
    if err != nil { return err }
    d.log.Info("co-simulation finished", zap.Int("steps", d.Steps))
    return nil
}

func (d *Driver) answer(strong bool) error {
    if _, err := d.io.ImportMesh(d.info(MeshID), d.Coords, d.Conn, d.Types); err != nil { return err }
    nodes := d.Coords.Size() / 3
    for t := 0.0; t < d.tl.End; t = d.tl.Advance(t) {
        d.Steps++
        iterations := 1
        if strong { iterations = d.Iterations }
        for it := 0; it < iterations; it++ {
            if _, err := d.io.ExportData(d.info(PressureID), pressure(d.Steps, nodes)); err != nil { return err }
            if _, err := d.io.ImportData(d.info(VelocityID), d.Velocity); err != nil { return err }
            if strong {
                if _, err := d.io.AnswerConvergence(d.info(""), it == iterations-1); err != nil { return err }
            }
        }
    }
    return nil
}

func (d *Driver) signal(sig protocol.ControlSignal, identifier string) error {
    _, err := d.io.SendControlSignal(d.info(identifier), sig)
    return err
}

func (d *Driver) orchestrate() error {
    if err := d.signal(protocol.ExportMesh, MeshID); err != nil { return err }
    if _, err := d.io.ImportMesh(d.info(MeshID), d.Coords, d.Conn, d.Types); err != nil { return err }
    nodes := d.Coords.Size() / 3

    for d.Time < d.tl.End {
        in := d.info("")
        in.SetDouble("current_time", d.Time)
        ret, err := d.io.AdvanceInTime(in)
        if err != nil { return err }
        if d.Time, err = ret.GetDouble("current_time"); err != nil { return err }
        d.Steps++

        if err := d.signal(protocol.InitializeSolutionStep, ""); err != nil { return err }
        if err := d.signal(protocol.ImportData, PressureID); err != nil { return err }
        if _, err := d.io.ExportData(d.info(PressureID), pressure(d.Steps, nodes)); err != nil { return err }
        if err := d.signal(protocol.SolveSolutionStep, ""); err != nil { return err }
        if err := d.signal(protocol.ExportData, VelocityID); err != nil { return err }
        if _, err := d.io.ImportData(d.info(VelocityID), d.Velocity); err != nil { return err }
        if err := d.signal(protocol.FinalizeSolutionStep, ""); err != nil { return err }
    }
    return d.signal(protocol.BreakSolutionLoop, "")
}
