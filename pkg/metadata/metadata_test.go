package metadata

import (
    "errors"
    "math"
    "strings"
    "testing"

    "github.com/vsujeesh/CoSimIO/pkg/protocol/codec"
)

func TestSetGetRoundtrip(t *testing.T) {
    m := New()
    m.SetInt("echo_level", 2)
    m.SetDouble("dt", 0.1)
    m.SetBool("is_primary_connection", true)
    m.SetString("solver_name", "fluid")
    nested := New()
    nested.SetString("inner", "x")
    m.SetMetadata("sub", nested)

    if v, err := m.GetInt("echo_level"); err != nil || v != 2 { t.Fatalf("int: %v %v", v, err) }
    if v, err := m.GetDouble("dt"); err != nil || v != 0.1 { t.Fatalf("double: %v %v", v, err) }
    if v, err := m.GetBool("is_primary_connection"); err != nil || !v { t.Fatalf("bool: %v %v", v, err) }
    if v, err := m.GetString("solver_name"); err != nil || v != "fluid" { t.Fatalf("string: %v %v", v, err) }
    sub, err := m.GetMetadata("sub")
    if err != nil { t.Fatalf("nested: %v", err) }
    if s, _ := sub.GetString("inner"); s != "x" { t.Fatalf("nested value mismatch: %q", s) }
    if m.Size() != 5 { t.Fatalf("size = %d", m.Size()) }
}

func TestGetErrors(t *testing.T) {
    m := New()
    m.SetInt("n", 1)
    if _, err := m.GetInt("missing"); !errors.Is(err, ErrKeyNotFound) { t.Fatalf("want ErrKeyNotFound, got %v", err) }
    if _, err := m.GetString("n"); !errors.Is(err, ErrTypeMismatch) { t.Fatalf("want ErrTypeMismatch, got %v", err) }
    if _, err := Get[float64](m, "n"); !errors.Is(err, ErrTypeMismatch) { t.Fatalf("int must not read as double: %v", err) }
}

func TestOverwriteChangesKindKeepsOrder(t *testing.T) {
    m := New()
    m.SetInt("a", 1)
    m.SetInt("b", 2)
    m.SetString("a", "now a string")
    if m.KindOf("a") != KindString { t.Fatalf("kind = %s", m.KindOf("a")) }
    if _, err := m.GetInt("a"); !errors.Is(err, ErrTypeMismatch) { t.Fatalf("old kind still readable: %v", err) }
    if ks := m.Keys(); strings.Join(ks, ",") != "a,b" { t.Fatalf("order = %v", ks) }
}

func TestRemoveAndHas(t *testing.T) {
    m := New()
    m.SetBool("x", true)
    m.SetBool("y", false)
    if err := m.Remove("x"); err != nil { t.Fatalf("remove: %v", err) }
    if m.Has("x") || !m.Has("y") || m.Size() != 1 { t.Fatalf("unexpected state after remove: %s", m) }
    if err := m.Remove("x"); !errors.Is(err, ErrKeyNotFound) { t.Fatalf("second remove: %v", err) }
}

func TestValueSemantics(t *testing.T) {
    inner := New()
    inner.SetInt("v", 1)
    m := New()
    m.SetMetadata("inner", inner)
    inner.SetInt("v", 2)
    got, _ := m.GetMetadata("inner")
    if v, _ := got.GetInt("v"); v != 1 { t.Fatalf("stored copy changed with caller: %d", v) }
    got.SetInt("v", 3)
    again, _ := m.GetMetadata("inner")
    if v, _ := again.GetInt("v"); v != 1 { t.Fatalf("returned copy aliases storage: %d", v) }
}

func TestGetOr(t *testing.T) {
    m := New()
    m.SetString("host", "10.0.0.1")
    if v, err := GetOr(m, "port", 9000); err != nil || v != 9000 { t.Fatalf("default: %v %v", v, err) }
    if v, err := GetOr(m, "host", "localhost"); err != nil || v != "10.0.0.1" { t.Fatalf("present: %v %v", v, err) }
    if _, err := GetOr(m, "host", 1); !errors.Is(err, ErrTypeMismatch) { t.Fatalf("mismatch: %v", err) }
}

func TestWireRoundtripAllCodecs(t *testing.T) {
    m := New()
    m.SetDouble("third", 1.0/3.0)
    m.SetDouble("tiny", math.SmallestNonzeroFloat64)
    m.SetInt("big", math.MaxInt64)
    m.SetInt("neg", -42)
    m.SetBool("flag", true)
    m.SetString("long", strings.Repeat("ü", 5000))
    sub := New()
    sub.SetDouble("x", -0.5)
    m.SetMetadata("sub", sub)
    m.SetDouble("negzero", math.Copysign(0, -1))

    reg := codec.NewRegistry()
    for _, name := range []string{"cbor", "json", "proto"} {
        c, err := reg.Lookup(name)
        if err != nil { t.Fatalf("lookup %s: %v", name, err) }
        b, err := Marshal(c, m)
        if err != nil { t.Fatalf("%s marshal: %v", name, err) }
        out, err := Unmarshal(c, b)
        if err != nil { t.Fatalf("%s unmarshal: %v", name, err) }
        if !out.Equal(m) { t.Fatalf("%s roundtrip mismatch:\n got %s\nwant %s", name, out, m) }
        nz, err := out.GetDouble("negzero")
        if err != nil { t.Fatalf("%s negzero: %v", name, err) }
        if math.Float64bits(nz) != math.Float64bits(math.Copysign(0, -1)) { t.Fatalf("%s lost the sign of -0.0: %v", name, nz) }
    }
}

func TestFromEntriesRejectsInvalidKind(t *testing.T) {
    if _, err := FromEntries([]Entry{{Key: "k", Kind: KindInvalid}}); err == nil {
        t.Fatalf("expected error")
    }
}
