package metrics

import (
    "errors"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRecord(t *testing.T) {
    reg := prometheus.NewRegistry()
    c, err := New(reg)
    if err != nil { t.Fatalf("new: %v", err) }

    c.Signal("fsi", "sent", "ExportData")
    c.Signal("fsi", "sent", "ExportData")
    c.Bytes("fsi", "sent", "buffer", 24)
    c.Observe("fsi", "ExportData", time.Now(), nil)
    c.Observe("fsi", "ImportData", time.Now(), errors.New("lost"))
    c.State("fsi", 2)

    if v := testutil.ToFloat64(c.signals.WithLabelValues("fsi", "sent", "ExportData")); v != 2 { t.Fatalf("signals = %v", v) }
    if v := testutil.ToFloat64(c.bytes.WithLabelValues("fsi", "sent", "buffer")); v != 24 { t.Fatalf("bytes = %v", v) }
    if v := testutil.ToFloat64(c.failures.WithLabelValues("fsi", "ImportData")); v != 1 { t.Fatalf("failures = %v", v) }
    if v := testutil.ToFloat64(c.state.WithLabelValues("fsi")); v != 2 { t.Fatalf("state = %v", v) }
}

func TestCollectorsReuseRegistration(t *testing.T) {
    reg := prometheus.NewRegistry()
    a, err := New(reg)
    if err != nil { t.Fatalf("first: %v", err) }
    b, err := New(reg)
    if err != nil { t.Fatalf("second: %v", err) }
    a.Signal("x", "received", "Shutdown")
    if v := testutil.ToFloat64(b.signals.WithLabelValues("x", "received", "Shutdown")); v != 1 { t.Fatalf("shared counter = %v", v) }
}

func TestNilCollectors(t *testing.T) {
    var c *Collectors
    c.Signal("a", "sent", "Dummy")
    c.Bytes("a", "sent", "signal", 3)
    c.Observe("a", "Run", time.Now(), nil)
    c.State("a", 1)
    c.Forget("a")
    if got, err := New(nil); got != nil || err != nil { t.Fatalf("nil registerer: %v %v", got, err) }
}

func TestHandlerExposesCollectors(t *testing.T) {
    reg := prometheus.NewRegistry()
    c, err := New(reg)
    if err != nil { t.Fatal(err) }
    c.Signal("fsi", "sent", "ExportData")

    rec := httptest.NewRecorder()
    Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    if rec.Code != http.StatusOK { t.Fatalf("status %d", rec.Code) }
    if !strings.Contains(rec.Body.String(), `cosimio_signals_total{connection="fsi",direction="sent",signal="ExportData"} 1`) {
        t.Fatalf("signal series missing:\n%s", rec.Body.String())
    }
}
