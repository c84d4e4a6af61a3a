package metrics

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.uber.org/zap"
)

// Handler serves the metrics of g in the prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
    mux := http.NewServeMux()
    mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
    return mux
}

// Serve exposes g on listen until ctx is done.
func Serve(ctx context.Context, listen string, g prometheus.Gatherer) error {
    srv := &http.Server{Addr: listen, Handler: Handler(g), ReadHeaderTimeout: 5 * time.Second}
    go func() {
        <-ctx.Done()
        sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        _ = srv.Shutdown(sctx)
    }()
    zap.L().Info("metrics endpoint listening", zap.String("addr", listen))
    if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) { return err }
    return nil
}
