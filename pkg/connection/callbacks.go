package connection

import (
    "errors"
    "fmt"

    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
)

// Fixed identifiers of the time exchange driven by AdvanceInTime. They are
// part of the wire protocol: changing them requires a protocol version bump.
const (
    TimeFromCoSim = "time_from_co_sim"
    TimeToCoSim   = "time_to_co_sim"
)

// Callback is one of Action, Scalar or Notifier.
type Callback interface{ callback() }

// Action takes no arguments.
type Action func() error

// Scalar maps a received value to a returned one. The value arrives through
// ImportData(TimeFromCoSim) and the result leaves through ExportData(TimeToCoSim).
type Scalar func(float64) float64

// Notifier receives the connection name and the identifier of the signal.
type Notifier func(connectionName, identifier string) error

func (Action) callback()   {}
func (Scalar) callback()   {}
func (Notifier) callback() {}

// Register binds name to cb, replacing any earlier binding. Run looks
// callbacks up by the function name of the received signal, e.g. "SolveSolutionStep".
func (c *Connection) Register(name string, cb Callback) error {
    if name == "" || cb == nil { return errors.New("callback registration needs a function name and a callback") }
    c.mu.Lock()
    defer c.mu.Unlock()
    c.callbacks[name] = cb
    c.log.Debug("callback registered", zap.String("function", name))
    return nil
}

func (c *Connection) lookup(name string) (Callback, bool) {
    c.mu.Lock()
    defer c.mu.Unlock()
    cb, ok := c.callbacks[name]
    return cb, ok
}

func (c *Connection) invoke(cb Callback, identifier string) error {
    switch f := cb.(type) {
    case Action:
        return f()
    case Notifier:
        return f(c.name, identifier)
    case Scalar:
        in := buffer.New[float64](1)
        if err := c.ImportData(TimeFromCoSim, in); err != nil { return err }
        if in.Size() != 1 { return fmt.Errorf("%w: %s carried %d values", protocol.ErrProtocolViolation, TimeFromCoSim, in.Size()) }
        out := buffer.Adopt([]float64{f(in.Data()[0])})
        return c.ExportData(TimeToCoSim, out)
    }
    return fmt.Errorf("unsupported callback %T", cb)
}
