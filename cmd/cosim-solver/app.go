package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "github.com/prometheus/client_golang/prometheus"
    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/config"
    "github.com/vsujeesh/CoSimIO/pkg/cosimio"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/metrics"
    "github.com/vsujeesh/CoSimIO/pkg/observability"
    "github.com/vsujeesh/CoSimIO/pkg/solver"
)

func helloString() string {
    h := cosimio.Hello()
    major, _ := h.GetInt("major_version")
    minor, _ := h.GetInt("minor_version")
    patch, _ := h.GetString("patch_version")
    proto, _ := h.GetInt("protocol_version")
    return fmt.Sprintf("CoSimIO %d.%d.%s (protocol %d)", major, minor, patch, proto)
}

// connectSettings merges the CLI flags into the config file's block for the
// connection. The format flag only applies when the block names none.
func connectSettings(cfg *config.Config, opts Options) *metadata.Metadata {
    base := metadata.New()
    if cc, ok := cfg.Connection(opts.ConnectionName); ok { base = cc.Settings() }
    if opts.WorkingDir != "" { base.SetString("working_directory", opts.WorkingDir) }
    if opts.EchoLevel != 0 { base.SetInt("echo_level", opts.EchoLevel) }
    return solver.Settings(base, opts.ConnectionName, solver.SolverName, solver.DriverName, opts.Format)
}

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }
    mode, err := solver.ParseMode(opts.Mode)
    if err != nil {
        _, _ = os.Stderr.WriteString(err.Error() + "\n")
        return 2
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()
    zap.L().Info("cosim-solver started", zap.String("version", helloString()), zap.Stringer("mode", mode))

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()
    if cfg.Metrics.Enable {
        go func() {
            if err := metrics.Serve(ctx, cfg.Metrics.Listen, prometheus.DefaultGatherer); err != nil {
                zap.L().Warn("metrics endpoint stopped", zap.Error(err))
            }
        }()
    }

    io, err := cosimio.New(cosimio.Options{Logger: logger, Registerer: prometheus.DefaultRegisterer})
    if err != nil {
        zap.L().Error("init", zap.Error(err))
        return 1
    }
    // interrupting a blocked exchange closes every connection
    go func() {
        <-ctx.Done()
        _ = io.Close()
    }()

    s := solver.New(io, opts.ConnectionName, solver.Timeline{Dt: opts.Dt, End: opts.EndTime}, logger)
    if mode != solver.Standalone {
        if _, err := io.Connect(connectSettings(cfg, opts)); err != nil {
            zap.L().Error("connect", zap.Error(err))
            return 1
        }
    }
    if err := s.Run(mode); err != nil {
        zap.L().Error("simulation failed", zap.Error(err))
        _ = io.Close()
        return 1
    }
    if mode != solver.Standalone {
        info := metadata.New()
        info.SetString("connection_name", opts.ConnectionName)
        if _, err := io.Disconnect(info); err != nil { zap.L().Warn("disconnect", zap.Error(err)) }
    }
    zap.L().Info("exiting")
    return 0
}
