package connection

import (
    "fmt"

    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

// Run serves the peer: it receives control signals and dispatches each
// command to the callback registered under the signal's function name.
// It returns nil after BreakSolutionLoop or when the peer shuts down.
func (c *Connection) Run() error {
    end, err := c.begin("Run", StateConnected, StateRunning, StateConnected)
    if err != nil { return err }
    c.log.Info("run loop started")
    for {
        sig, id, err := c.tr.ReceiveControlSignal()
        if err != nil { return end(err) }
        c.log.Debug("signal received", zap.Stringer("signal", sig), zap.String("identifier", id))

        switch {
        case sig == protocol.BreakSolutionLoop:
            err := c.tr.SendControlSignal(sig, id)
            c.log.Info("run loop finished")
            return end(err)
        case sig == protocol.Shutdown:
            c.markPeerGone()
            c.log.Info("partner shut down, leaving run loop")
            return end(nil)
        case sig == protocol.CheckConvergence:
            if err := c.answer(); err != nil { return end(err) }
        case sig.IsCommand():
            if err := c.dispatch(sig, id); err != nil { return end(err) }
        default:
            c.nack()
            return end(fmt.Errorf("%w: %s is not a run loop command", protocol.ErrProtocolViolation, sig))
        }
    }
}

// dispatch acknowledges sig and runs its callback. While the callback runs
// the connection is Connected and free, so the callback can call the transfer operations.
func (c *Connection) dispatch(sig protocol.ControlSignal, id string) error {
    cb, ok := c.lookup(sig.String())
    if !ok {
        c.nack()
        return fmt.Errorf("%w: %s (identifier %q)", ErrCallbackNotFound, sig, id)
    }
    if err := c.tr.SendControlSignal(sig, id); err != nil { return err }

    c.setState(StateConnected)
    c.busy.Store(false)
    cbErr := c.invoke(cb, id)
    if !c.busy.CompareAndSwap(false, true) {
        return fmt.Errorf("%w: callback %s left an operation in flight", ErrConcurrentUse, sig)
    }
    if c.State() == StateFailed { return cbErr }
    c.setState(StateRunning)
    if cbErr != nil { return fmt.Errorf("callback %s: %w", sig, cbErr) }
    return nil
}

// answer replies to CheckConvergence with the verdict set by SetConverged.
func (c *Connection) answer() error {
    c.mu.Lock()
    ok := c.converged
    c.mu.Unlock()
    reply := protocol.Dummy
    if ok { reply = protocol.ConvergenceAchieved }
    return c.tr.SendControlSignal(reply, "")
}

// SetConverged records the verdict the run loop reports to CheckConvergence.
func (c *Connection) SetConverged(converged bool) {
    c.mu.Lock()
    c.converged = converged
    c.mu.Unlock()
}

// AnswerConvergence waits for a CheckConvergence outside the run loop and answers it.
func (c *Connection) AnswerConvergence(converged bool) error {
    end, err := c.begin("AnswerConvergence", StateConnected, StateRunning, StateConnected)
    if err != nil { return err }
    c.SetConverged(converged)
    if err := c.expect(protocol.CheckConvergence, ""); err != nil { return end(err) }
    return end(c.answer())
}

// IsConverged asks the peer for its convergence verdict.
func (c *Connection) IsConverged() (bool, error) {
    end, err := c.begin("IsConverged", StateConnected, StateRunning, StateConnected)
    if err != nil { return false, err }
    if err := c.tr.SendControlSignal(protocol.CheckConvergence, ""); err != nil { return false, end(err) }
    sig, id, err := c.tr.ReceiveControlSignal()
    if err != nil { return false, end(err) }
    switch sig {
    case protocol.ConvergenceAchieved:
        return true, end(nil)
    case protocol.Dummy:
        return false, end(nil)
    case protocol.Shutdown:
        c.markPeerGone()
        return false, end(fmt.Errorf("%w: partner shut down while a convergence verdict was expected", transport.ErrConnectionLost))
    }
    c.nack()
    return false, end(protocol.Violation(protocol.ConvergenceAchieved, "", sig, id))
}

// SendControlSignal sends a command or BreakSolutionLoop to the peer's run
// loop and waits for the acknowledgement.
func (c *Connection) SendControlSignal(sig protocol.ControlSignal, identifier string) error {
    if !sig.IsCommand() && sig != protocol.BreakSolutionLoop {
        return fmt.Errorf("%w: %s", ErrInvalidSignal, sig)
    }
    end, err := c.begin("SendControlSignal", StateConnected, StateRunning, StateConnected)
    if err != nil { return err }
    if err := c.tr.SendControlSignal(sig, identifier); err != nil { return end(err) }
    return end(c.expect(sig, identifier))
}

// AdvanceInTime triggers the peer's AdvanceInTime callback with t and
// returns the time it reports back.
func (c *Connection) AdvanceInTime(t float64) (float64, error) {
    if err := c.SendControlSignal(protocol.AdvanceInTime, ""); err != nil { return 0, err }
    if err := c.ExportData(TimeFromCoSim, buffer.Adopt([]float64{t})); err != nil { return 0, err }
    out := buffer.New[float64](1)
    if err := c.ImportData(TimeToCoSim, out); err != nil { return 0, err }
    if out.Size() != 1 { return 0, fmt.Errorf("%w: %s carried %d values", protocol.ErrProtocolViolation, TimeToCoSim, out.Size()) }
    return out.Data()[0], nil
}
