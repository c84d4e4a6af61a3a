package transport

import (
    "errors"
    "testing"
    "time"

    "github.com/vsujeesh/CoSimIO/pkg/metadata"
)

func base() *metadata.Metadata {
    m := metadata.New()
    m.SetString("connection_name", "fsi")
    m.SetString("solver_name", "structure")
    return m
}

func TestParseSettingsDefaults(t *testing.T) {
    m := base()
    m.SetBool("is_primary_connection", true)
    s, err := ParseSettings(m)
    if err != nil { t.Fatalf("parse: %v", err) }
    if s.Kind != KindFile || s.Host != DefaultHost || s.HandshakeRetries != DefaultHandshakeRetries ||
        s.HandshakeInterval != DefaultHandshakeInterval || s.Timeout != 0 || s.WorkingDirectory != "." || !s.Primary {
        t.Fatalf("unexpected defaults: %+v", s)
    }
}

func TestParseSettingsRoleFromConnectTo(t *testing.T) {
    m := base()
    m.SetString("connect_to", "thermal")
    s, err := ParseSettings(m)
    if err != nil { t.Fatalf("parse: %v", err) }
    if !s.Primary { t.Fatalf("structure < thermal, expected primary") }

    m.SetString("solver_name", "zz")
    s, err = ParseSettings(m)
    if err != nil { t.Fatalf("parse: %v", err) }
    if s.Primary { t.Fatalf("zz > thermal, expected secondary") }
}

func TestParseSettingsDurations(t *testing.T) {
    m := base()
    m.SetBool("is_primary_connection", false)
    m.SetInt("timeout", 2)
    m.SetDouble("handshake_interval", 0.25)
    m.SetString("communication_format", "socket")
    m.SetInt("port", 4711)
    s, err := ParseSettings(m)
    if err != nil { t.Fatalf("parse: %v", err) }
    if s.Timeout != 2*time.Second || s.HandshakeInterval != 250*time.Millisecond || s.Kind != KindSocket || s.Port != 4711 {
        t.Fatalf("got %+v", s)
    }
    if w := s.HandshakeWindow(); w <= s.Timeout { t.Fatalf("window %s too small", w) }
}

func TestParseSettingsRejects(t *testing.T) {
    cases := map[string]func(m *metadata.Metadata){
        "no role":        func(m *metadata.Metadata) {},
        "no name":        func(m *metadata.Metadata) { m.SetBool("is_primary_connection", true); _ = m.Remove("connection_name") },
        "bad name":       func(m *metadata.Metadata) { m.SetBool("is_primary_connection", true); m.SetString("connection_name", "../x") },
        "name type":      func(m *metadata.Metadata) { m.SetBool("is_primary_connection", true); m.SetInt("connection_name", 3) },
        "self connect":   func(m *metadata.Metadata) { m.SetString("connect_to", "structure") },
        "format":         func(m *metadata.Metadata) { m.SetBool("is_primary_connection", true); m.SetString("communication_format", "carrier-pigeon") },
        "port":           func(m *metadata.Metadata) { m.SetBool("is_primary_connection", true); m.SetInt("port", 70000) },
        "timeout":        func(m *metadata.Metadata) { m.SetBool("is_primary_connection", true); m.SetDouble("timeout", -1) },
        "timeout type":   func(m *metadata.Metadata) { m.SetBool("is_primary_connection", true); m.SetString("timeout", "soon") },
        "retries":        func(m *metadata.Metadata) { m.SetBool("is_primary_connection", true); m.SetInt("handshake_retries", 0) },
    }
    for name, mutate := range cases {
        m := base()
        mutate(m)
        if _, err := ParseSettings(m); !errors.Is(err, ErrInvalidSettings) {
            t.Fatalf("%s: want ErrInvalidSettings, got %v", name, err)
        }
    }
    if _, err := ParseSettings(nil); !errors.Is(err, ErrInvalidSettings) { t.Fatalf("nil settings: %v", err) }
}

func TestParseKind(t *testing.T) {
    for s, k := range map[string]Kind{"file": KindFile, "Socket": KindSocket, "sockets": KindSocket, "pipe": KindPipe, "mem": KindMem} {
        got, err := ParseKind(s)
        if err != nil || got != k { t.Fatalf("%s: %v %v", s, got, err) }
        if got.String() == "unknown" { t.Fatalf("%s has no name", s) }
    }
}
