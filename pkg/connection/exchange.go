package connection

import (
    "fmt"

    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/mesh"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

// expect receives the next signal and requires it to be want(wantID). A
// mismatch is answered with Dummy before the violation is reported, unless
// the peer itself sent the Dummy.
func (c *Connection) expect(want protocol.ControlSignal, wantID string) error {
    got, id, err := c.tr.ReceiveControlSignal()
    if err != nil { return err }
    if got == want && id == wantID { return nil }
    if got == protocol.Shutdown {
        c.markPeerGone()
        return fmt.Errorf("%w: partner shut down while %s(%q) was expected", transport.ErrConnectionLost, want, wantID)
    }
    if got != protocol.Dummy { c.nack() }
    return protocol.Violation(want, wantID, got, id)
}

func (c *Connection) nack() {
    if err := c.tr.SendControlSignal(protocol.Dummy, ""); err != nil {
        c.log.Debug("negative acknowledgement not delivered", zap.Error(err))
    }
}

func (c *Connection) markPeerGone() {
    c.mu.Lock()
    c.peerGone = true
    c.mu.Unlock()
}

// offer announces an export and waits for the receiver to acknowledge it.
func (c *Connection) offer(export protocol.ControlSignal, id string) error {
    ack, _ := export.Complement()
    if err := c.tr.SendControlSignal(export, id); err != nil { return err }
    return c.expect(ack, id)
}

// accept waits for the matching export announcement and acknowledges it.
func (c *Connection) accept(export protocol.ControlSignal, id string) error {
    if err := c.expect(export, id); err != nil { return err }
    ack, _ := export.Complement()
    return c.tr.SendControlSignal(ack, id)
}

// ExportData sends data under identifier.
func (c *Connection) ExportData(identifier string, data buffer.Payload) error {
    end, err := c.begin("ExportData", StateConnected, StateExporting, StateConnected)
    if err != nil { return err }
    if err := c.offer(protocol.ExportData, identifier); err != nil { return end(err) }
    err = c.tr.SendBuffer(data)
    if err == nil { c.log.Debug("data exported", zap.String("identifier", identifier), zap.Int("size", data.Size())) }
    return end(err)
}

// ImportData receives the data exported under identifier into data, resizing
// it when it owns its storage.
func (c *Connection) ImportData(identifier string, data buffer.Payload) error {
    end, err := c.begin("ImportData", StateConnected, StateImporting, StateConnected)
    if err != nil { return err }
    if data.Mode()&buffer.ReadOnly != 0 {
        return end(fmt.Errorf("%w: cannot import %q into a read-only buffer", buffer.ErrReadOnly, identifier))
    }
    if err := c.accept(protocol.ExportData, identifier); err != nil { return end(err) }
    err = c.tr.ReceiveBuffer(data)
    if err == nil { c.log.Debug("data imported", zap.String("identifier", identifier), zap.Int("size", data.Size())) }
    return end(err)
}

// ExportMesh validates and sends a mesh: coordinates (x,y,z per node),
// connectivities and one cell type per element.
func (c *Connection) ExportMesh(identifier string, coords *buffer.Buffer[float64], conn, types *buffer.Buffer[int]) error {
    end, err := c.begin("ExportMesh", StateConnected, StateExporting, StateConnected)
    if err != nil { return err }
    if err := mesh.Validate(coords.Data(), conn.Data(), types.Data()); err != nil { return end(err) }
    if err := c.offer(protocol.ExportMesh, identifier); err != nil { return end(err) }
    for _, p := range []buffer.Payload{coords, conn, types} {
        if err := c.tr.SendBuffer(p); err != nil { return end(err) }
    }
    c.log.Debug("mesh exported", zap.String("identifier", identifier),
        zap.Int("nodes", coords.Size()/mesh.Dimension), zap.Int("elements", types.Size()))
    return end(nil)
}

// ImportMesh receives the mesh exported under identifier.
func (c *Connection) ImportMesh(identifier string, coords *buffer.Buffer[float64], conn, types *buffer.Buffer[int]) error {
    end, err := c.begin("ImportMesh", StateConnected, StateImporting, StateConnected)
    if err != nil { return err }
    for _, p := range []buffer.Payload{coords, conn, types} {
        if p.Mode()&buffer.ReadOnly != 0 {
            return end(fmt.Errorf("%w: cannot import mesh %q into a read-only buffer", buffer.ErrReadOnly, identifier))
        }
    }
    if err := c.accept(protocol.ExportMesh, identifier); err != nil { return end(err) }
    var errs []error
    for _, p := range []buffer.Payload{coords, conn, types} {
        // every frame is consumed so the stream stays aligned even if one buffer rejects it
        if err := c.tr.ReceiveBuffer(p); err != nil {
            if terminal(err) { return end(err) }
            errs = append(errs, err)
        }
    }
    if len(errs) > 0 { return end(errs[0]) }
    if err := mesh.Validate(coords.Data(), conn.Data(), types.Data()); err != nil {
        return end(fmt.Errorf("received mesh %q: %w", identifier, err))
    }
    c.log.Debug("mesh imported", zap.String("identifier", identifier), zap.Int("elements", types.Size()))
    return end(nil)
}

// ExportGeometry sends a geometry description.
func (c *Connection) ExportGeometry(identifier string, geometry *metadata.Metadata) error {
    end, err := c.begin("ExportGeometry", StateConnected, StateExporting, StateConnected)
    if err != nil { return err }
    if err := c.offer(protocol.ExportGeometry, identifier); err != nil { return end(err) }
    return end(c.tr.SendMetadata(geometry))
}

// ImportGeometry receives the geometry exported under identifier.
func (c *Connection) ImportGeometry(identifier string) (*metadata.Metadata, error) {
    end, err := c.begin("ImportGeometry", StateConnected, StateImporting, StateConnected)
    if err != nil { return nil, err }
    if err := c.accept(protocol.ExportGeometry, identifier); err != nil { return nil, end(err) }
    m, err := c.tr.ReceiveMetadata()
    if err != nil { return nil, end(err) }
    return m, end(nil)
}
