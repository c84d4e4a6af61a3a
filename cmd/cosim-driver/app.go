package main

import (
    "context"
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

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }
    mode, err := solver.ParseMode(opts.Mode)
    if err != nil || mode == solver.Standalone {
        _, _ = os.Stderr.WriteString("cosim-driver needs a coupled mode: weak, strong or orchestrated\n")
        return 2
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()
    zap.L().Info("cosim-driver started", zap.Stringer("mode", mode))

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
    go func() {
        <-ctx.Done()
        _ = io.Close()
    }()

    base := metadata.New()
    if cc, ok := cfg.Connection(opts.ConnectionName); ok { base = cc.Settings() }
    if opts.WorkingDir != "" { base.SetString("working_directory", opts.WorkingDir) }
    if opts.EchoLevel != 0 { base.SetInt("echo_level", opts.EchoLevel) }
    ret, err := io.Connect(solver.Settings(base, opts.ConnectionName, solver.DriverName, solver.SolverName, opts.Format))
    if err != nil {
        zap.L().Error("connect", zap.Error(err))
        return 1
    }
    if partner, err := ret.GetMetadata("partner"); err == nil {
        zap.L().Info("partner connected", zap.Stringer("hello", partner))
    }

    d := solver.NewDriver(io, opts.ConnectionName, solver.Timeline{Dt: opts.Dt, End: opts.EndTime}, logger)
    d.Iterations = opts.Iterations
    if err := d.Run(mode); err != nil {
        zap.L().Error("co-simulation failed", zap.Error(err))
        _ = io.Close()
        return 1
    }
    info := metadata.New()
    info.SetString("connection_name", opts.ConnectionName)
    if _, err := io.Disconnect(info); err != nil { zap.L().Warn("disconnect", zap.Error(err)) }
    return 0
}
