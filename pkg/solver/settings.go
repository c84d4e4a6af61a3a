package solver

import "github.com/vsujeesh/CoSimIO/pkg/metadata"

// Solver names used for role negotiation through connect_to.
const (
    SolverName = "simple_solver"
    DriverName = "co_sim_driver"
)

// Settings returns connect settings for self talking to partner over format.
// Values already present in base win.
func Settings(base *metadata.Metadata, name, self, partner, format string) *metadata.Metadata {
    m := metadata.New()
    m.SetString("connection_name", name)
    m.SetString("solver_name", self)
    m.SetString("connect_to", partner)
    m.SetString("communication_format", format)
    if base != nil { m.Merge(base) }
    return m
}
