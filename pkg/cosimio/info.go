package cosimio

import (
    "errors"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/connection"
    "github.com/vsujeesh/CoSimIO/pkg/mesh"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/registry"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

// Library version reported by Hello.
const (
    MajorVersion = 2
    MinorVersion = 0
    PatchVersion = "0"
)

// ConnectionStatus is the value of the connection_status key of every returned Info.
type ConnectionStatus int

const (
    Disconnected ConnectionStatus = iota
    Connected
    Failed
)

func (s ConnectionStatus) String() string {
    switch s {
    case Connected:
        return "Connected"
    case Failed:
        return "Failed"
    default:
        return "Disconnected"
    }
}

func statusOf(st connection.State) ConnectionStatus {
    switch st.Status() {
    case "Connected":
        return Connected
    case "Failed":
        return Failed
    }
    return Disconnected
}

// Return codes stored under return_code. Zero is success.
const (
    CodeSuccess = iota
    CodeInvalidArgument
    CodeBufferMisuse
    CodeDuplicateConnection
    CodeConnectionNotFound
    CodeInvalidState
    CodeConcurrentUse
    CodeCallbackNotFound
    CodeProtocolViolation
    CodeTimeout
    CodeConnectionLost
    CodeUnknown = 99
)

// ReturnCode maps err onto its return code.
func ReturnCode(err error) int {
    switch {
    case err == nil:
        return CodeSuccess
    case errors.Is(err, registry.ErrDuplicateConnection):
        return CodeDuplicateConnection
    case errors.Is(err, registry.ErrConnectionNotFound):
        return CodeConnectionNotFound
    case errors.Is(err, connection.ErrInvalidState):
        return CodeInvalidState
    case errors.Is(err, connection.ErrConcurrentUse):
        return CodeConcurrentUse
    case errors.Is(err, connection.ErrCallbackNotFound):
        return CodeCallbackNotFound
    case errors.Is(err, transport.ErrTimeout):
        return CodeTimeout
    case errors.Is(err, transport.ErrConnectionLost):
        return CodeConnectionLost
    case errors.Is(err, protocol.ErrProtocolViolation), errors.Is(err, protocol.ErrBadFrame),
        errors.Is(err, protocol.ErrUnknownSignal):
        return CodeProtocolViolation
    case errors.Is(err, buffer.ErrReadOnly), errors.Is(err, buffer.ErrNotResizable),
        errors.Is(err, buffer.ErrIndexOutOfRange), errors.Is(err, buffer.ErrSizeMismatch):
        return CodeBufferMisuse
    case errors.Is(err, metadata.ErrKeyNotFound), errors.Is(err, metadata.ErrTypeMismatch),
        errors.Is(err, transport.ErrInvalidSettings), errors.Is(err, connection.ErrInvalidSignal),
        errors.Is(err, mesh.ErrInvalidMesh):
        return CodeInvalidArgument
    }
    return CodeUnknown
}

// ReturnInfo builds the Info returned for an operation on a connection in state st.
func ReturnInfo(st connection.State, err error) *metadata.Metadata {
    m := metadata.New()
    m.SetInt("connection_status", int(statusOf(st)))
    m.SetInt("return_code", ReturnCode(err))
    if err != nil { m.SetString("error", err.Error()) }
    return m
}

// Hello reports the library and wire protocol versions.
func Hello() *metadata.Metadata {
    m := metadata.New()
    m.SetInt("major_version", MajorVersion)
    m.SetInt("minor_version", MinorVersion)
    m.SetString("patch_version", PatchVersion)
    m.SetInt("protocol_version", int(protocol.Version))
    return m
}
