package observability

import (
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// EchoLevel maps the echo_level connection setting to the least severe level
// a connection logs: 0 keeps warnings and errors, 1 adds info, 2 and above
// adds debug.
func EchoLevel(echo int) zapcore.Level {
    switch {
    case echo <= 0:
        return zapcore.WarnLevel
    case echo == 1:
        return zapcore.InfoLevel
    default:
        return zapcore.DebugLevel
    }
}

// EchoLogger derives a connection logger from base. It can only make base
// quieter: zap.IncreaseLevel never lowers the level of the underlying core.
func EchoLogger(base *zap.Logger, echo int) *zap.Logger {
    if base == nil { base = zap.L() }
    lvl := EchoLevel(echo)
    if lvl <= zapcore.DebugLevel { return base }
    return base.WithOptions(zap.IncreaseLevel(lvl))
}
