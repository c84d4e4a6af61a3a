// Package cosimio is the entry point used by solvers and language bindings:
// every call names its connection through an Info and returns an Info
// carrying connection_status and return_code.
package cosimio

import (
    "fmt"

    "github.com/prometheus/client_golang/prometheus"
    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/config"
    "github.com/vsujeesh/CoSimIO/pkg/connection"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/metrics"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/protocol/codec"
    "github.com/vsujeesh/CoSimIO/pkg/registry"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
    "github.com/vsujeesh/CoSimIO/pkg/transport/mem"
    "github.com/vsujeesh/CoSimIO/pkg/transports"
)

// Options configures an IO. The zero value logs through zap.L(), records no
// metrics and pairs mem connections through the process-wide hub.
type Options struct {
    Logger     *zap.Logger
    Registerer prometheus.Registerer
    Codecs     *codec.Registry
    Hub        *mem.Hub
}

// IO owns the connections of one process.
type IO struct {
    reg     *registry.Registry
    log     *zap.Logger
    metrics *metrics.Collectors
    opts    transports.Options
}

func New(opts Options) (*IO, error) {
    if opts.Logger == nil { opts.Logger = zap.L() }
    mc, err := metrics.New(opts.Registerer)
    if err != nil { return nil, fmt.Errorf("metrics: %w", err) }
    return &IO{
        reg:     registry.New(),
        log:     opts.Logger,
        metrics: mc,
        opts: transports.Options{
            Options: transport.Options{Codecs: opts.Codecs, Metrics: mc, Logger: opts.Logger},
            Hub:     opts.Hub,
        },
    }, nil
}

// Registry exposes the connection table, mostly for diagnostics.
func (io *IO) Registry() *registry.Registry { return io.reg }

// Connect registers a connection under settings' connection_name and
// performs the handshake. The returned Info also carries the negotiated
// settings and the partner's Hello under "partner".
func (io *IO) Connect(settings *metadata.Metadata) (*metadata.Metadata, error) {
    s, err := transport.ParseSettings(settings)
    if err != nil { return ReturnInfo(connection.StateCreated, err), err }
    tr, err := transports.NewByKind(s.Kind, io.opts)
    if err != nil { return ReturnInfo(connection.StateCreated, err), err }

    c := connection.New(s.ConnectionName, tr, connection.Options{Logger: io.log, Metrics: io.metrics})
    if err := io.reg.Insert(c); err != nil { return ReturnInfo(connection.StateCreated, err), err }

    res, err := c.Connect(settings)
    info := ReturnInfo(c.State(), err)
    if err != nil {
        io.reg.Remove(s.ConnectionName, c)
        io.log.Warn("connect failed", zap.String("connection", s.ConnectionName), zap.Error(err))
        return info, err
    }
    info.Merge(res)
    return info, nil
}

// ConnectFile connects with the settings stored in a yaml or json file.
func (io *IO) ConnectFile(path string) (*metadata.Metadata, error) {
    settings, err := config.LoadSettings(path)
    if err != nil { return ReturnInfo(connection.StateCreated, err), err }
    return io.Connect(settings)
}

// lookup resolves the connection_name of info.
func (io *IO) lookup(info *metadata.Metadata) (*connection.Connection, error) {
    name, err := info.GetString("connection_name")
    if err != nil { return nil, err }
    return io.reg.Get(name)
}

func identifier(info *metadata.Metadata) (string, error) { return metadata.GetOr(info, "identifier", "") }

// call runs op on the connection named by info and folds the outcome into an Info.
func (io *IO) call(info *metadata.Metadata, op func(c *connection.Connection) error) (*metadata.Metadata, error) {
    c, err := io.lookup(info)
    if err != nil { return ReturnInfo(connection.StateDisconnected, err), err }
    err = op(c)
    return ReturnInfo(c.State(), err), err
}

// Disconnect shuts the connection down and releases its name. Disconnecting
// a Failed connection reports ErrInvalidState but still releases the name.
func (io *IO) Disconnect(info *metadata.Metadata) (*metadata.Metadata, error) {
    c, err := io.lookup(info)
    if err != nil { return ReturnInfo(connection.StateDisconnected, err), err }
    err = c.Disconnect()
    if !c.State().Live() { io.reg.Remove(c.Name(), c) }
    return ReturnInfo(c.State(), err), err
}

func (io *IO) ExportData(info *metadata.Metadata, data buffer.Payload) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error {
        id, err := identifier(info)
        if err != nil { return err }
        return c.ExportData(id, data)
    })
}

func (io *IO) ImportData(info *metadata.Metadata, data buffer.Payload) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error {
        id, err := identifier(info)
        if err != nil { return err }
        return c.ImportData(id, data)
    })
}

func (io *IO) ExportMesh(info *metadata.Metadata, coords *buffer.Buffer[float64], conn, types *buffer.Buffer[int]) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error {
        id, err := identifier(info)
        if err != nil { return err }
        return c.ExportMesh(id, coords, conn, types)
    })
}

func (io *IO) ImportMesh(info *metadata.Metadata, coords *buffer.Buffer[float64], conn, types *buffer.Buffer[int]) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error {
        id, err := identifier(info)
        if err != nil { return err }
        return c.ImportMesh(id, coords, conn, types)
    })
}

func (io *IO) ExportGeometry(info, geometry *metadata.Metadata) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error {
        id, err := identifier(info)
        if err != nil { return err }
        return c.ExportGeometry(id, geometry)
    })
}

// ImportGeometry returns the received geometry under the "geometry" key.
func (io *IO) ImportGeometry(info *metadata.Metadata) (*metadata.Metadata, error) {
    var geo *metadata.Metadata
    ret, err := io.call(info, func(c *connection.Connection) error {
        id, err := identifier(info)
        if err != nil { return err }
        geo, err = c.ImportGeometry(id)
        return err
    })
    if geo != nil { ret.SetMetadata("geometry", geo) }
    return ret, err
}

// Register binds the callback for info's function_name.
func (io *IO) Register(info *metadata.Metadata, cb connection.Callback) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error {
        fn, err := info.GetString("function_name")
        if err != nil { return err }
        return c.Register(fn, cb)
    })
}

// Run serves the partner until it breaks the solution loop or shuts down.
func (io *IO) Run(info *metadata.Metadata) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error { return c.Run() })
}

// IsConverged asks the partner and reports the verdict under is_converged.
func (io *IO) IsConverged(info *metadata.Metadata) (*metadata.Metadata, error) {
    var ok bool
    ret, err := io.call(info, func(c *connection.Connection) (err error) {
        ok, err = c.IsConverged()
        return err
    })
    ret.SetBool("is_converged", ok)
    return ret, err
}

// SetConverged records the verdict the run loop reports to the partner.
func (io *IO) SetConverged(info *metadata.Metadata, converged bool) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error {
        c.SetConverged(converged)
        return nil
    })
}

// AnswerConvergence answers one CheckConvergence outside the run loop.
func (io *IO) AnswerConvergence(info *metadata.Metadata, converged bool) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error { return c.AnswerConvergence(converged) })
}

// SendControlSignal sends sig with info's identifier to the partner's run loop.
func (io *IO) SendControlSignal(info *metadata.Metadata, sig protocol.ControlSignal) (*metadata.Metadata, error) {
    return io.call(info, func(c *connection.Connection) error {
        id, err := identifier(info)
        if err != nil { return err }
        return c.SendControlSignal(sig, id)
    })
}

// AdvanceInTime sends info's current_time to the partner's AdvanceInTime
// callback and returns the time it reports under current_time.
func (io *IO) AdvanceInTime(info *metadata.Metadata) (*metadata.Metadata, error) {
    var next float64
    ret, err := io.call(info, func(c *connection.Connection) error {
        t, err := info.GetDouble("current_time")
        if err != nil { return err }
        next, err = c.AdvanceInTime(t)
        return err
    })
    if err == nil { ret.SetDouble("current_time", next) }
    return ret, err
}

// Close force-closes every connection. It is meant for process teardown.
func (io *IO) Close() error { return io.reg.CloseAll() }
