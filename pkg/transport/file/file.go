// Package file implements the shared-filesystem backend. Peers rendezvous
// through marker files and then exchange one file per frame, written under a
// temporary name and renamed into place so the receiver never sees a partial frame.
package file

import (
    "context"
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/vsujeesh/CoSimIO/pkg/protocol"
    "github.com/vsujeesh/CoSimIO/pkg/retry"
    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

const (
    primaryMarker   = "primary.ready"
    secondaryMarker = "secondary.ready"

    pollMin = 100 * time.Microsecond
    pollMax = 10 * time.Millisecond
)

var errWaiting = errors.New("peer marker not ready")

// Dir is the communication folder of a connection.
func Dir(s transport.Settings) string {
    return filepath.Join(s.WorkingDirectory, ".CoSimIOFileComm_"+s.ConnectionName)
}

// Opener is the file backend.
type Opener struct{}

func New() Opener { return Opener{} }

func (Opener) Kind() transport.Kind { return transport.KindFile }

func (Opener) Open(ctx context.Context, s transport.Settings) (transport.Link, error) {
    dir := Dir(s)
    if err := os.MkdirAll(dir, 0o755); err != nil { return nil, fmt.Errorf("%w: %v", transport.ErrInvalidSettings, err) }
    cfg := retry.Handshake(s.HandshakeRetries, s.HandshakeInterval)

    var (
        session string
        err     error
    )
    if s.Primary {
        session, err = rendezvousPrimary(ctx, cfg, dir)
    } else {
        session, err = rendezvousSecondary(ctx, cfg, dir)
    }
    if err != nil {
        if errors.Is(err, retry.ErrExhausted) || ctx.Err() != nil {
            return nil, fmt.Errorf("%w: no partner for %q in %s: %v", transport.ErrTimeout, s.ConnectionName, dir, err)
        }
        return nil, err
    }
    zap.L().Debug("file rendezvous complete", zap.String("connection", s.ConnectionName), zap.String("session", session))

    l := &link{dir: dir, session: session, out: "s2p", in: "p2s", timeout: s.Timeout, primary: s.Primary, done: make(chan struct{})}
    if s.Primary { l.out, l.in = "p2s", "s2p" }
    return l, nil
}

// rendezvousPrimary publishes a fresh session id and waits for the
// secondary to echo it back. Markers carrying another id are left alone;
// the secondary replaces them once it reads the current id.
func rendezvousPrimary(ctx context.Context, cfg retry.Config, dir string) (string, error) {
    session := uuid.NewString()
    for _, pattern := range []string{"*.msg", "*.closed"} {
        stale, _ := filepath.Glob(filepath.Join(dir, pattern))
        for _, p := range stale { _ = os.Remove(p) }
    }
    if err := transport.WriteFileAtomic(filepath.Join(dir, primaryMarker), []byte(session)); err != nil { return "", err }

    err := retry.Do(ctx, cfg, func(int) error {
        b, err := os.ReadFile(filepath.Join(dir, secondaryMarker))
        if err != nil { return err }
        if strings.TrimSpace(string(b)) != session { return errWaiting }
        return nil
    })
    if err != nil {
        _ = os.Remove(filepath.Join(dir, primaryMarker))
        return "", err
    }
    // consuming the secondary marker is the acknowledgement
    if err := os.Remove(filepath.Join(dir, secondaryMarker)); err != nil { return "", err }
    _ = os.Remove(filepath.Join(dir, primaryMarker))
    return session, nil
}

// rendezvousSecondary echoes the primary's session id and waits until the
// primary consumes the echo.
func rendezvousSecondary(ctx context.Context, cfg retry.Config, dir string) (string, error) {
    var session string
    err := retry.Do(ctx, cfg, func(int) error {
        b, err := os.ReadFile(filepath.Join(dir, primaryMarker))
        switch {
        case err == nil:
            if cur := strings.TrimSpace(string(b)); cur != session {
                session = cur
                if err := transport.WriteFileAtomic(filepath.Join(dir, secondaryMarker), []byte(session)); err != nil {
                    return retry.Permanent(err)
                }
                return errWaiting
            }
        case !errors.Is(err, fs.ErrNotExist):
            return err
        case session == "":
            return err
        }
        if _, err := os.Stat(filepath.Join(dir, secondaryMarker)); errors.Is(err, fs.ErrNotExist) { return nil }
        return errWaiting
    })
    if err != nil {
        _ = os.Remove(filepath.Join(dir, secondaryMarker))
        return "", err
    }
    return session, nil
}

// link numbers frames per direction: <session>_<p2s|s2p>_<seq>.msg.
type link struct {
    dir, session string
    out, in      string
    primary      bool
    timeout      time.Duration
    sendSeq      uint64
    recvSeq      uint64

    // done is closed by Close and wakes a Recv that is polling.
    done      chan struct{}
    closeOnce sync.Once
}

func (l *link) msg(tag string, seq uint64) string {
    return filepath.Join(l.dir, fmt.Sprintf("%s_%s_%06d.msg", l.session, tag, seq))
}

func (l *link) closeMarker(tag string) string {
    return filepath.Join(l.dir, l.session+"_"+tag+".closed")
}

func exists(p string) bool {
    _, err := os.Stat(p)
    return err == nil
}

func (l *link) closed() bool {
    select {
    case <-l.done:
        return true
    default:
        return false
    }
}

func (l *link) peerGone() bool {
    if exists(l.closeMarker(l.in)) { return true }
    _, err := os.Stat(l.dir)
    return errors.Is(err, fs.ErrNotExist)
}

func (l *link) Send(f *protocol.Frame) error {
    if l.closed() { return transport.ErrNotConnected }
    if l.peerGone() { return fmt.Errorf("%w: partner left %s", transport.ErrConnectionLost, l.dir) }
    raw, err := f.Encode()
    if err != nil { return err }
    if err := transport.WriteFileAtomic(l.msg(l.out, l.sendSeq), raw); err != nil {
        if errors.Is(err, fs.ErrNotExist) { return fmt.Errorf("%w: %v", transport.ErrConnectionLost, err) }
        return err
    }
    l.sendSeq++
    return nil
}

func (l *link) Recv() (protocol.Frame, error) {
    var deadline time.Time
    if l.timeout > 0 { deadline = time.Now().Add(l.timeout) }
    path := l.msg(l.in, l.recvSeq)
    wait := pollMin
    for {
        if l.closed() { return protocol.Frame{}, transport.ErrNotConnected }
        f, ok, err := l.take(path)
        if err != nil || ok { return f, err }
        if l.peerGone() {
            // the partner may have written its last frame right before leaving
            if f, ok, err := l.take(path); err != nil || ok { return f, err }
            return protocol.Frame{}, fmt.Errorf("%w: partner left %s", transport.ErrConnectionLost, l.dir)
        }
        if !deadline.IsZero() && time.Now().After(deadline) {
            return protocol.Frame{}, fmt.Errorf("%w: no frame %s within %s", transport.ErrTimeout, filepath.Base(path), l.timeout)
        }
        select {
        case <-l.done:
            return protocol.Frame{}, transport.ErrNotConnected
        case <-time.After(wait):
        }
        if wait *= 2; wait > pollMax { wait = pollMax }
    }
}

// take reads and deletes the frame file at path if it is there.
func (l *link) take(path string) (protocol.Frame, bool, error) {
    raw, err := os.ReadFile(path)
    if errors.Is(err, fs.ErrNotExist) { return protocol.Frame{}, false, nil }
    if err != nil { return protocol.Frame{}, false, err }
    if err := os.Remove(path); err != nil { return protocol.Frame{}, false, err }
    var f protocol.Frame
    if err := f.Decode(raw); err != nil { return protocol.Frame{}, false, err }
    l.recvSeq++
    return f, true, nil
}

// Close marks this side as gone and unblocks a pending Recv. Whichever side
// closes last removes the folder.
func (l *link) Close() error {
    var err error
    l.closeOnce.Do(func() {
        close(l.done)
        err = l.release()
    })
    return err
}

func (l *link) release() error {
    if l.peerGone() { return os.RemoveAll(l.dir) }
    if err := transport.WriteFileAtomic(l.closeMarker(l.out), nil); err != nil { return err }
    if exists(l.closeMarker(l.in)) { return os.RemoveAll(l.dir) }
    return nil
}

var _ transport.Opener = Opener{}
