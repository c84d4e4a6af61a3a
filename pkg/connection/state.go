package connection

// State is the lifecycle position of a Connection.
type State int32

const (
    StateCreated State = iota
    StateConnecting
    StateConnected
    StateImporting
    StateExporting
    StateRunning
    StateDisconnecting
    StateDisconnected
    // StateFailed is absorbing: only a new Connect under the same name leaves it.
    StateFailed
)

func (s State) String() string {
    switch s {
    case StateCreated:
        return "Created"
    case StateConnecting:
        return "Connecting"
    case StateConnected:
        return "Connected"
    case StateImporting:
        return "Importing"
    case StateExporting:
        return "Exporting"
    case StateRunning:
        return "Running"
    case StateDisconnecting:
        return "Disconnecting"
    case StateDisconnected:
        return "Disconnected"
    case StateFailed:
        return "Failed"
    default:
        return "Unknown"
    }
}

// Live reports whether the connection still holds its name.
func (s State) Live() bool { return s != StateFailed && s != StateDisconnected }

// Status folds the state onto the connection_status reported to callers.
func (s State) Status() string {
    switch s {
    case StateFailed:
        return "Failed"
    case StateCreated, StateConnecting, StateDisconnected:
        return "Disconnected"
    default:
        return "Connected"
    }
}
