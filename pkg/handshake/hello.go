package handshake

import (
    "fmt"
    "time"

    "github.com/google/uuid"

    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
)

// Hello is exchanged by both peers right after the transport link is up.
// It binds the logical connection name to the solver on each side.
type Hello struct {
    ProtocolVersion int
    ConnectionName  string
    SolverName      string
    SolverVersion   string
    Transport       string
    Primary         bool
    InstanceID      string
    Timestamp       int64
}

// Build constructs the local Hello with a fresh instance id.
func Build(connectionName, solverName, solverVersion, transport string, primary bool) Hello {
    return Hello{
        ProtocolVersion: int(protocol.Version),
        ConnectionName:  connectionName,
        SolverName:      solverName,
        SolverVersion:   solverVersion,
        Transport:       transport,
        Primary:         primary,
        InstanceID:      uuid.NewString(),
        Timestamp:       time.Now().UnixMilli(),
    }
}

// Metadata returns the wire form of h.
func (h Hello) Metadata() *metadata.Metadata {
    m := metadata.New()
    m.SetInt("protocol_version", h.ProtocolVersion)
    m.SetString("connection_name", h.ConnectionName)
    m.SetString("solver_name", h.SolverName)
    m.SetString("solver_version", h.SolverVersion)
    m.SetString("communication_format", h.Transport)
    m.SetBool("is_primary_connection", h.Primary)
    m.SetString("instance_id", h.InstanceID)
    m.SetInt("timestamp_ms", int(h.Timestamp))
    return m
}

// FromMetadata parses a peer's Hello. Missing mandatory keys are a protocol violation.
func FromMetadata(m *metadata.Metadata) (Hello, error) {
    var h Hello
    var err error
    if h.ProtocolVersion, err = m.GetInt("protocol_version"); err != nil { return Hello{}, violation(err) }
    if h.ConnectionName, err = m.GetString("connection_name"); err != nil { return Hello{}, violation(err) }
    if h.Primary, err = m.GetBool("is_primary_connection"); err != nil { return Hello{}, violation(err) }
    if h.SolverName, err = metadata.GetOr(m, "solver_name", ""); err != nil { return Hello{}, violation(err) }
    if h.SolverVersion, err = metadata.GetOr(m, "solver_version", ""); err != nil { return Hello{}, violation(err) }
    if h.Transport, err = metadata.GetOr(m, "communication_format", ""); err != nil { return Hello{}, violation(err) }
    if h.InstanceID, err = metadata.GetOr(m, "instance_id", ""); err != nil { return Hello{}, violation(err) }
    ts, err := metadata.GetOr(m, "timestamp_ms", 0)
    if err != nil { return Hello{}, violation(err) }
    h.Timestamp = int64(ts)
    return h, nil
}

// Verify checks that remote belongs to the same coupling run as local.
func Verify(local, remote Hello) error {
    if remote.ProtocolVersion != local.ProtocolVersion {
        return fmt.Errorf("%w: partner speaks protocol %d, local is %d", protocol.ErrProtocolViolation, remote.ProtocolVersion, local.ProtocolVersion)
    }
    if remote.ConnectionName != local.ConnectionName {
        return fmt.Errorf("%w: partner connection %q, local is %q", protocol.ErrProtocolViolation, remote.ConnectionName, local.ConnectionName)
    }
    if remote.Primary == local.Primary {
        return fmt.Errorf("%w: both sides claim is_primary_connection=%t", protocol.ErrProtocolViolation, local.Primary)
    }
    if remote.Transport != "" && local.Transport != "" && remote.Transport != local.Transport {
        return fmt.Errorf("%w: partner uses %s, local uses %s", protocol.ErrProtocolViolation, remote.Transport, local.Transport)
    }
    return nil
}

func violation(err error) error { return fmt.Errorf("%w: hello: %v", protocol.ErrProtocolViolation, err) }
