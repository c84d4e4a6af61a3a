// Package solver holds a small coupled solver and the co-simulation driver
// that partners it. Both sides speak only through cosimio.IO; the binaries
// under cmd/ and the end-to-end tests run them against each other.
package solver

import (
    "fmt"
    "strings"

    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/connection"
    "github.com/vsujeesh/CoSimIO/pkg/cosimio"
    "github.com/vsujeesh/CoSimIO/pkg/mesh"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
)

// Mode is the level of coupling.
type Mode int

const (
    Standalone Mode = iota
    Weak
    Strong
    Orchestrated
)

func (m Mode) String() string {
    switch m {
    case Standalone:
        return "standalone"
    case Weak:
        return "weak"
    case Strong:
        return "strong"
    case Orchestrated:
        return "orchestrated"
    }
    return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the mode name or its number (0..3).
func ParseMode(s string) (Mode, error) {
    for m := Standalone; m <= Orchestrated; m++ {
        if strings.EqualFold(s, m.String()) || s == fmt.Sprint(int(m)) { return m, nil }
    }
    return 0, fmt.Errorf("unknown coupling mode %q", s)
}

// Identifiers exchanged between the solver and the driver.
const (
    MeshID     = "interface_mesh_tri"
    PressureID = "field_pressure"
    VelocityID = "field_velocity"
)

// Timeline is the time stepping shared by both sides.
type Timeline struct {
    Dt  float64
    End float64
}

func DefaultTimeline() Timeline { return Timeline{Dt: 0.1, End: 0.5} }

// Advance returns the next time.
func (tl Timeline) Advance(t float64) float64 { return t + tl.Dt }

// Steps counts the steps of a run starting at zero.
func (tl Timeline) Steps() int {
    n := 0
    for t := 0.0; t < tl.End; t = tl.Advance(t) { n++ }
    return n
}

// Solver is a toy structural solver on a fixed triangle patch. It imports a
// pressure field and exports a velocity field each solve.
type Solver struct {
    io   *cosimio.IO
    name string
    tl   Timeline
    log  *zap.Logger

    coords   []float64
    conn     []int
    types    []int
    pressure *buffer.Buffer[float64]
    velocity []float64

    Time   float64
    Solves int
}

// New prepares a solver that couples through io under connection name.
func New(io *cosimio.IO, name string, tl Timeline, log *zap.Logger) *Solver {
    if log == nil { log = zap.L() }
    s := &Solver{
        io:   io,
        name: name,
        tl:   tl,
        log:  log.With(zap.String("solver", "simple_solver")),
        coords: []float64{
            0.0, 2.5, 1.0,
            2.0, 0.0, 1.5,
            2.0, 2.5, 1.5,
            4.0, 2.5, 1.7,
            4.0, 0.0, 1.7,
            6.0, 0.0, 1.8,
        },
        conn:     []int{0, 1, 2, 1, 3, 2, 1, 4, 3, 3, 4, 5},
        types:    []int{int(mesh.Triangle), int(mesh.Triangle), int(mesh.Triangle), int(mesh.Triangle)},
        pressure: buffer.New[float64](0),
    }
    s.velocity = make([]float64, len(s.coords))
    for i := range s.velocity { s.velocity[i] = float64(i) * 0.125 }
    return s
}

// Mesh returns the interface mesh the solver exports.
func (s *Solver) Mesh() ([]float64, []int, []int) { return s.coords, s.conn, s.types }

// Velocity returns the field the solver exports.
func (s *Solver) Velocity() []float64 { return s.velocity }

// Pressure returns the last imported field.
func (s *Solver) Pressure() []float64 { return s.pressure.Data() }

func (s *Solver) info(identifier string) *metadata.Metadata {
    m := metadata.New()
    m.SetString("connection_name", s.name)
    if identifier != "" { m.SetString("identifier", identifier) }
    return m
}

func (s *Solver) AdvanceInTime(t float64) float64 {
    next := s.tl.Advance(t)
    s.log.Debug("advance in time", zap.Float64("time", next))
    return next
}

func (s *Solver) InitializeSolutionStep() error {
    s.log.Debug("initialize solution step")
    return nil
}

func (s *Solver) SolveSolutionStep() error {
    s.Solves++
    s.log.Debug("solve solution step", zap.Int("solves", s.Solves))
    return nil
}

func (s *Solver) FinalizeSolutionStep() error {
    s.log.Debug("finalize solution step")
    return nil
}

func (s *Solver) ImportMesh(_, identifier string) error {
    coords, conn, types := buffer.New[float64](0), buffer.New[int](0), buffer.New[int](0)
    _, err := s.io.ImportMesh(s.info(identifier), coords, conn, types)
    return err
}

func (s *Solver) ExportMesh(_, identifier string) error {
    _, err := s.io.ExportMesh(s.info(identifier), buffer.BorrowReadOnly(s.coords), buffer.BorrowReadOnly(s.conn), buffer.BorrowReadOnly(s.types))
    return err
}

func (s *Solver) ImportData(_, identifier string) error {
    _, err := s.io.ImportData(s.info(identifier), s.pressure)
    return err
}

func (s *Solver) ExportData(_, identifier string) error {
    _, err := s.io.ExportData(s.info(identifier), buffer.BorrowReadOnly(s.velocity))
    return err
}

// Run executes the simulation at the given level of coupling. Coupled modes
// expect a connection already established under the solver's name.
func (s *Solver) Run(mode Mode) error {
    s.log.Info("simulation started", zap.Stringer("mode", mode))
    var err error
    switch mode {
    case Standalone:
        err = s.standalone()
    case Weak:
        err = s.coupled(false)
    case Strong:
        err = s.coupled(true)
    case Orchestrated:
        err = s.orchestrated()
    default:
        err = fmt.Errorf("unknown coupling mode %d", int(mode))
    }
    if err != nil { return err }
    s.log.Info("simulation finished", zap.Float64("time", s.Time), zap.Int("solves", s.Solves))
    return nil
}

func (s *Solver) standalone() error {
    for s.Time < s.tl.End {
        s.Time = s.AdvanceInTime(s.Time)
        if err := s.step(func() error { return s.SolveSolutionStep() }); err != nil { return err }
    }
    return nil
}

func (s *Solver) step(solve func() error) error {
    if err := s.InitializeSolutionStep(); err != nil { return err }
    if err := solve(); err != nil { return err }
    return s.FinalizeSolutionStep()
}

func (s *Solver) coupled(strong bool) error {
    if err := s.ExportMesh(s.name, MeshID); err != nil { return err }
    for s.Time < s.tl.End {
        s.Time = s.AdvanceInTime(s.Time)
        err := s.step(func() error {
            for {
                if err := s.ImportData(s.name, PressureID); err != nil { return err }
                if err := s.SolveSolutionStep(); err != nil { return err }
                if err := s.ExportData(s.name, VelocityID); err != nil { return err }
                if !strong { return nil }
                ret, err := s.io.IsConverged(s.info(""))
                if err != nil { return err }
                if ok, _ := ret.GetBool("is_converged"); ok { return nil }
            }
        })
        if err != nil { return err }
    }
    return nil
}

func (s *Solver) orchestrated() error {
    reg := func(fn string, cb connection.Callback) error {
        m := s.info("")
        m.SetString("function_name", fn)
        _, err := s.io.Register(m, cb)
        return err
    }
    callbacks := []struct {
        name string
        cb   connection.Callback
    }{
        {"AdvanceInTime", connection.Scalar(func(t float64) float64 { s.Time = s.AdvanceInTime(t); return s.Time })},
        {"InitializeSolutionStep", connection.Action(s.InitializeSolutionStep)},
        {"SolveSolutionStep", connection.Action(s.SolveSolutionStep)},
        {"FinalizeSolutionStep", connection.Action(s.FinalizeSolutionStep)},
        {"ImportData", connection.Notifier(s.ImportData)},
        {"ExportData", connection.Notifier(s.ExportData)},
        {"ImportMesh", connection.Notifier(s.ImportMesh)},
        {"ExportMesh", connection.Notifier(s.ExportMesh)},
    }
    for _, c := range callbacks {
        if err := reg(c.name, c.cb); err != nil { return err }
    }
    _, err := s.io.Run(s.info(""))
    return err
}
