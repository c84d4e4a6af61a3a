package protocol

import (
    "errors"
    "fmt"
)

var (
    // ErrProtocolViolation reports a signal or frame that does not fit the exchange in progress.
    ErrProtocolViolation = errors.New("protocol violation")
    ErrUnknownSignal     = errors.New("unknown control signal")
)

// ControlSignal is a protocol verb. Its numeric value is the on-wire token.
type ControlSignal uint8

const (
    Dummy ControlSignal = iota + 1
    ImportMesh
    ExportMesh
    ImportData
    ExportData
    ImportGeometry
    ExportGeometry
    AdvanceInTime
    InitializeSolutionStep
    SolveSolutionStep
    FinalizeSolutionStep
    CheckConvergence
    ConvergenceAchieved
    BreakSolutionLoop
    Shutdown
)

var signalNames = [...]string{
    Dummy:                  "Dummy",
    ImportMesh:             "ImportMesh",
    ExportMesh:             "ExportMesh",
    ImportData:             "ImportData",
    ExportData:             "ExportData",
    ImportGeometry:         "ImportGeometry",
    ExportGeometry:         "ExportGeometry",
    AdvanceInTime:          "AdvanceInTime",
    InitializeSolutionStep: "InitializeSolutionStep",
    SolveSolutionStep:      "SolveSolutionStep",
    FinalizeSolutionStep:   "FinalizeSolutionStep",
    CheckConvergence:       "CheckConvergence",
    ConvergenceAchieved:    "ConvergenceAchieved",
    BreakSolutionLoop:      "BreakSolutionLoop",
    Shutdown:               "Shutdown",
}

// Valid reports whether s is one of the enumerated verbs.
func (s ControlSignal) Valid() bool { return s >= Dummy && s <= Shutdown }

func (s ControlSignal) String() string {
    if !s.Valid() { return fmt.Sprintf("ControlSignal(%d)", uint8(s)) }
    return signalNames[s]
}

// ParseControlSignal maps a verb name back to its signal.
func ParseControlSignal(name string) (ControlSignal, error) {
    for s := Dummy; s <= Shutdown; s++ {
        if signalNames[s] == name { return s, nil }
    }
    return 0, fmt.Errorf("%w: %q", ErrUnknownSignal, name)
}

// Complement returns the verb the receiving side acknowledges a transfer
// with: ExportX is acknowledged by ImportX and the reverse.
func (s ControlSignal) Complement() (ControlSignal, bool) {
    switch s {
    case ExportMesh:
        return ImportMesh, true
    case ImportMesh:
        return ExportMesh, true
    case ExportData:
        return ImportData, true
    case ImportData:
        return ExportData, true
    case ExportGeometry:
        return ImportGeometry, true
    case ImportGeometry:
        return ExportGeometry, true
    }
    return 0, false
}

// IsCommand reports whether s may be sent to a peer's run loop to trigger a callback.
func (s ControlSignal) IsCommand() bool {
    switch s {
    case ImportMesh, ExportMesh, ImportData, ExportData, ImportGeometry, ExportGeometry,
        AdvanceInTime, InitializeSolutionStep, SolveSolutionStep, FinalizeSolutionStep:
        return true
    }
    return false
}

// Violation builds an ErrProtocolViolation describing an unexpected signal.
func Violation(want ControlSignal, wantID string, got ControlSignal, gotID string) error {
    return fmt.Errorf("%w: expected %s(%q), received %s(%q)", ErrProtocolViolation, want, wantID, got, gotID)
}
