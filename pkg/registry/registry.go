// Package registry maps connection names to live connections.
package registry

import (
    "errors"
    "fmt"
    "sort"
    "sync"

    "github.com/hashicorp/go-multierror"
    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "github.com/vsujeesh/CoSimIO/pkg/connection"
)

var (
    ErrDuplicateConnection = errors.New("connection name already in use")
    ErrConnectionNotFound  = errors.New("connection not found")
)

// Registry holds at most one connection per name. A Failed or Disconnected
// entry no longer owns its name and is replaced by the next Insert.
type Registry struct {
    mu    sync.RWMutex
    conns map[string]*connection.Connection
}

func New() *Registry { return &Registry{conns: make(map[string]*connection.Connection)} }

// Insert adds c under its name.
func (r *Registry) Insert(c *connection.Connection) error {
    r.mu.Lock()
    old, ok := r.conns[c.Name()]
    if ok && old != c && old.State().Live() {
        r.mu.Unlock()
        return fmt.Errorf("%w: %q is %s", ErrDuplicateConnection, c.Name(), old.State())
    }
    r.conns[c.Name()] = c
    r.mu.Unlock()
    if ok && old != c {
        if err := old.Close(); err != nil {
            zap.L().Debug("closing replaced connection", zap.String("connection", c.Name()), zap.Error(err))
        }
        zap.L().Info("stale connection replaced", zap.String("connection", c.Name()), zap.Stringer("state", old.State()))
    }
    return nil
}

// Get returns the connection registered under name.
func (r *Registry) Get(name string) (*connection.Connection, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    c, ok := r.conns[name]
    if !ok { return nil, fmt.Errorf("%w: %q", ErrConnectionNotFound, name) }
    return c, nil
}

// Remove drops name if it still maps to c.
func (r *Registry) Remove(name string, c *connection.Connection) bool {
    r.mu.Lock()
    defer r.mu.Unlock()
    if cur, ok := r.conns[name]; ok && cur == c {
        delete(r.conns, name)
        return true
    }
    return false
}

// Names lists the registered names in sorted order.
func (r *Registry) Names() []string {
    r.mu.RLock()
    out := make([]string, 0, len(r.conns))
    for n := range r.conns { out = append(out, n) }
    r.mu.RUnlock()
    sort.Strings(out)
    return out
}

func (r *Registry) Len() int { r.mu.RLock(); defer r.mu.RUnlock(); return len(r.conns) }

// CloseAll force-closes and forgets every connection, in parallel.
func (r *Registry) CloseAll() error {
    r.mu.Lock()
    conns := r.conns
    r.conns = make(map[string]*connection.Connection)
    r.mu.Unlock()

    var (
        mu     sync.Mutex
        result *multierror.Error
        g      errgroup.Group
    )
    for name, c := range conns {
        name, c := name, c
        g.Go(func() error {
            if err := c.Close(); err != nil {
                mu.Lock()
                result = multierror.Append(result, fmt.Errorf("close %q: %w", name, err))
                mu.Unlock()
            }
            return nil
        })
    }
    _ = g.Wait()
    if len(conns) > 0 { zap.L().Info("connections closed", zap.Int("count", len(conns))) }
    return result.ErrorOrNil()
}
