package transport

import (
    "fmt"
    "math"
    "path/filepath"
    "regexp"
    "time"

    "github.com/vsujeesh/CoSimIO/pkg/metadata"
)

const (
    DefaultHost              = "127.0.0.1"
    DefaultHandshakeRetries  = 200
    DefaultHandshakeInterval = 50 * time.Millisecond
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)

// Settings is the parsed form of the Connect-time Metadata.
type Settings struct {
    ConnectionName    string
    SolverName        string
    SolverVersion     string
    EchoLevel         int
    Kind              Kind
    Primary           bool
    WorkingDirectory  string
    Host              string
    Port              int
    // Timeout bounds every send and receive after the handshake; 0 waits forever.
    Timeout           time.Duration
    HandshakeRetries  int
    HandshakeInterval time.Duration
    Codec             string
}

// HandshakeWindow is the upper bound on the rendezvous with the peer.
func (s Settings) HandshakeWindow() time.Duration {
    // geometric sum of the back-off, capped per step at 20x the interval
    var total time.Duration
    d := s.HandshakeInterval
    for i := 0; i < s.HandshakeRetries; i++ {
        total += d
        d = time.Duration(float64(d) * 1.5)
        if d > 20*s.HandshakeInterval { d = 20 * s.HandshakeInterval }
    }
    return total + s.Timeout + time.Second
}

// ParseSettings validates Connect settings and fills defaults.
func ParseSettings(m *metadata.Metadata) (Settings, error) {
    if m == nil { return Settings{}, fmt.Errorf("%w: no settings", ErrInvalidSettings) }
    s := Settings{Host: DefaultHost, HandshakeRetries: DefaultHandshakeRetries, HandshakeInterval: DefaultHandshakeInterval}
    var err error
    if s.ConnectionName, err = m.GetString("connection_name"); err != nil { return Settings{}, invalid(err) }
    if !namePattern.MatchString(s.ConnectionName) {
        return Settings{}, fmt.Errorf("%w: connection_name %q must be a plain file name", ErrInvalidSettings, s.ConnectionName)
    }
    if s.SolverName, err = metadata.GetOr(m, "solver_name", ""); err != nil { return Settings{}, invalid(err) }
    if s.SolverVersion, err = metadata.GetOr(m, "solver_version", ""); err != nil { return Settings{}, invalid(err) }
    if s.EchoLevel, err = metadata.GetOr(m, "echo_level", 0); err != nil { return Settings{}, invalid(err) }

    format, err := metadata.GetOr(m, "communication_format", KindFile.String())
    if err != nil { return Settings{}, invalid(err) }
    if s.Kind, err = ParseKind(format); err != nil { return Settings{}, err }

    switch {
    case m.Has("is_primary_connection"):
        if s.Primary, err = m.GetBool("is_primary_connection"); err != nil { return Settings{}, invalid(err) }
    case m.Has("connect_to"):
        partner, err := m.GetString("connect_to")
        if err != nil { return Settings{}, invalid(err) }
        if partner == "" || partner == s.SolverName {
            return Settings{}, fmt.Errorf("%w: connect_to %q must name a different solver than solver_name %q", ErrInvalidSettings, partner, s.SolverName)
        }
        s.Primary = s.SolverName < partner
    default:
        return Settings{}, fmt.Errorf("%w: either is_primary_connection or connect_to is required", ErrInvalidSettings)
    }

    wd, err := metadata.GetOr(m, "working_directory", ".")
    if err != nil { return Settings{}, invalid(err) }
    s.WorkingDirectory = filepath.Clean(wd)
    if s.Host, err = metadata.GetOr(m, "host", DefaultHost); err != nil { return Settings{}, invalid(err) }
    if s.Port, err = metadata.GetOr(m, "port", 0); err != nil { return Settings{}, invalid(err) }
    if s.Port < 0 || s.Port > math.MaxUint16 { return Settings{}, fmt.Errorf("%w: port %d", ErrInvalidSettings, s.Port) }

    if s.Timeout, err = seconds(m, "timeout", 0); err != nil { return Settings{}, err }
    if s.HandshakeRetries, err = metadata.GetOr(m, "handshake_retries", DefaultHandshakeRetries); err != nil { return Settings{}, invalid(err) }
    if s.HandshakeRetries < 1 { return Settings{}, fmt.Errorf("%w: handshake_retries must be positive", ErrInvalidSettings) }
    if s.HandshakeInterval, err = seconds(m, "handshake_interval", DefaultHandshakeInterval); err != nil { return Settings{}, err }
    if s.HandshakeInterval <= 0 { return Settings{}, fmt.Errorf("%w: handshake_interval must be positive", ErrInvalidSettings) }
    if s.Codec, err = metadata.GetOr(m, "metadata_codec", ""); err != nil { return Settings{}, invalid(err) }
    return s, nil
}

// seconds accepts either a double or an int number of seconds.
func seconds(m *metadata.Metadata, key string, def time.Duration) (time.Duration, error) {
    var v float64
    switch m.KindOf(key) {
    case metadata.KindInvalid:
        return def, nil
    case metadata.KindInt:
        i, _ := m.GetInt(key)
        v = float64(i)
    case metadata.KindDouble:
        v, _ = m.GetDouble(key)
    default:
        return 0, fmt.Errorf("%w: %s must be a number of seconds", ErrInvalidSettings, key)
    }
    if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) { return 0, fmt.Errorf("%w: %s = %v", ErrInvalidSettings, key, v) }
    return time.Duration(v * float64(time.Second)), nil
}

func invalid(err error) error { return fmt.Errorf("%w: %v", ErrInvalidSettings, err) }
