// Package observability sets up process logging and scales per-connection
// verbosity from the echo_level setting.
package observability

import (
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "gopkg.in/natefinch/lumberjack.v2"

    "github.com/vsujeesh/CoSimIO/pkg/config"
)

// SetupLogger builds a zap.Logger from c, installs it as the global logger
// and redirects the stdlib log package. The caller should defer logger.Sync().
func SetupLogger(c config.LogConfig) (*zap.Logger, error) {
    lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(c.Level)))
    if err != nil { return nil, fmt.Errorf("log level: %w", err) }
    level := zap.NewAtomicLevelAt(lvl)

    encCfg := zap.NewProductionEncoderConfig()
    if c.Development {
        encCfg = zap.NewDevelopmentEncoderConfig()
        encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
    }
    encoder := zapcore.NewConsoleEncoder(encCfg)
    if strings.EqualFold(c.Format, "json") { encoder = zapcore.NewJSONEncoder(encCfg) }

    outputs := c.Outputs
    if len(outputs) == 0 { outputs = []string{"stderr"} }
    cores := make([]zapcore.Core, 0, len(outputs))
    for _, out := range outputs {
        ws, err := writerFor(out, c.Rotation)
        if err != nil { return nil, err }
        cores = append(cores, zapcore.NewCore(encoder, ws, level))
    }

    opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)}
    if c.Development { opts = append(opts, zap.Development()) }
    logger := zap.New(zapcore.NewTee(cores...), opts...)
    zap.ReplaceGlobals(logger)
    _, _ = zap.RedirectStdLogAt(logger, zap.InfoLevel)
    return logger, nil
}

func writerFor(out string, r config.RotationConfig) (zapcore.WriteSyncer, error) {
    switch strings.ToLower(out) {
    case "stdout":
        return zapcore.Lock(os.Stdout), nil
    case "stderr":
        return zapcore.Lock(os.Stderr), nil
    }
    if dir := filepath.Dir(out); dir != "." {
        if err := os.MkdirAll(dir, 0o755); err != nil { return nil, fmt.Errorf("log output %s: %w", out, err) }
    }
    if r.Enable {
        return zapcore.AddSync(&lumberjack.Logger{
            Filename:   out,
            MaxSize:    max(r.MaxSizeMB, 10),
            MaxBackups: max(r.MaxBackups, 1),
            MaxAge:     max(r.MaxAgeDays, 7),
            Compress:   r.Compress,
        }), nil
    }
    f, err := os.OpenFile(out, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
    if err != nil { return nil, fmt.Errorf("log output %s: %w", out, err) }
    return zapcore.AddSync(f), nil
}
