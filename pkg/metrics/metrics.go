// Package metrics exposes prometheus collectors for coupling exchanges.
// A nil *Collectors is valid and records nothing.
package metrics

import (
    "errors"
    "time"

    "github.com/prometheus/client_golang/prometheus"
)

const namespace = "cosimio"

// Collectors groups the exchange metrics of one process.
type Collectors struct {
    signals  *prometheus.CounterVec
    bytes    *prometheus.CounterVec
    exchange *prometheus.HistogramVec
    failures *prometheus.CounterVec
    state    *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg. Collectors that
// are already registered (a second IO in the same process) are reused.
func New(reg prometheus.Registerer) (*Collectors, error) {
    if reg == nil { return nil, nil }
    c := &Collectors{
        signals: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "signals_total",
            Help:      "Control signals sent and received",
        }, []string{"connection", "direction", "signal"}),
        bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "payload_bytes_total",
            Help:      "Frame payload bytes moved by the transport",
        }, []string{"connection", "direction", "kind"}),
        exchange: prometheus.NewHistogramVec(prometheus.HistogramOpts{
            Namespace: namespace,
            Name:      "exchange_duration_seconds",
            Help:      "Wall time of a complete coupling operation",
            Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
        }, []string{"connection", "operation"}),
        failures: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace,
            Name:      "failures_total",
            Help:      "Coupling operations that ended with an error",
        }, []string{"connection", "operation"}),
        state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
            Namespace: namespace,
            Name:      "connection_state",
            Help:      "Current connection state as its numeric code",
        }, []string{"connection"}),
    }
    var err error
    c.signals, err = register(reg, c.signals)
    if err != nil { return nil, err }
    c.bytes, err = register(reg, c.bytes)
    if err != nil { return nil, err }
    c.exchange, err = register(reg, c.exchange)
    if err != nil { return nil, err }
    c.failures, err = register(reg, c.failures)
    if err != nil { return nil, err }
    c.state, err = register(reg, c.state)
    if err != nil { return nil, err }
    return c, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, col C) (C, error) {
    if err := reg.Register(col); err != nil {
        var are prometheus.AlreadyRegisteredError
        if errors.As(err, &are) {
            if existing, ok := are.ExistingCollector.(C); ok { return existing, nil }
        }
        return col, err
    }
    return col, nil
}

// Signal counts one control signal. direction is "sent" or "received".
func (c *Collectors) Signal(conn, direction, signal string) {
    if c == nil { return }
    c.signals.WithLabelValues(conn, direction, signal).Inc()
}

// Bytes adds n payload bytes of the given frame kind.
func (c *Collectors) Bytes(conn, direction, kind string, n int) {
    if c == nil || n <= 0 { return }
    c.bytes.WithLabelValues(conn, direction, kind).Add(float64(n))
}

// Observe records one operation that started at start.
func (c *Collectors) Observe(conn, op string, start time.Time, err error) {
    if c == nil { return }
    c.exchange.WithLabelValues(conn, op).Observe(time.Since(start).Seconds())
    if err != nil { c.failures.WithLabelValues(conn, op).Inc() }
}

// State publishes the numeric state of a connection.
func (c *Collectors) State(conn string, code int) {
    if c == nil { return }
    c.state.WithLabelValues(conn).Set(float64(code))
}

// Forget drops the series of a connection that left the registry.
func (c *Collectors) Forget(conn string) {
    if c == nil { return }
    c.state.DeleteLabelValues(conn)
}
