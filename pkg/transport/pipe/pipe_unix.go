//go:build !windows

package pipe

import (
    "context"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "syscall"

    "github.com/containerd/fifo"
    "github.com/hashicorp/go-multierror"

    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

// Paths returns the primary-to-secondary and secondary-to-primary FIFOs.
func Paths(s transport.Settings) (p2s, s2p string) {
    base := filepath.Join(s.WorkingDirectory, ".CoSimIOPipe_"+s.ConnectionName)
    return base + ".p2s", base + ".s2p"
}

// open returns as soon as both FIFOs exist; reads and writes block until the
// partner opened its ends, or until ctx ends and the FIFOs are closed.
func open(ctx context.Context, s transport.Settings) (io.ReadWriteCloser, error) {
    if err := os.MkdirAll(s.WorkingDirectory, 0o755); err != nil { return nil, fmt.Errorf("%w: %v", transport.ErrInvalidSettings, err) }
    p2s, s2p := Paths(s)
    in, out := s2p, p2s
    if !s.Primary { in, out = p2s, s2p }

    r, err := fifo.OpenFifo(ctx, in, syscall.O_RDONLY|syscall.O_CREAT|syscall.O_NONBLOCK, 0o600)
    if err != nil { return nil, err }
    w, err := fifo.OpenFifo(ctx, out, syscall.O_WRONLY|syscall.O_CREAT|syscall.O_NONBLOCK, 0o600)
    if err != nil {
        _ = r.Close()
        return nil, err
    }
    d := &duplex{r: r, w: w}
    if s.Primary { d.paths = []string{p2s, s2p} }
    return d, nil
}

// duplex joins the inbound and outbound FIFO into one stream. The primary
// owns the FIFO files and unlinks them on close.
type duplex struct {
    r, w  io.ReadWriteCloser
    paths []string
}

func (d *duplex) Read(p []byte) (int, error)  { return d.r.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.w.Write(p) }

func (d *duplex) Close() error {
    var result *multierror.Error
    if err := d.w.Close(); err != nil { result = multierror.Append(result, err) }
    if err := d.r.Close(); err != nil { result = multierror.Append(result, err) }
    for _, p := range d.paths {
        if err := os.Remove(p); err != nil && !os.IsNotExist(err) { result = multierror.Append(result, err) }
    }
    return result.ErrorOrNil()
}
