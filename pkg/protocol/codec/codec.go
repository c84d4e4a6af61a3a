package codec

import (
    "fmt"
    "strings"
)

// Codec marshals metadata documents for the wire.
// Implementations must be deterministic so both peers agree on the bytes.
type Codec interface {
    // Name is the short alias used in settings ("cbor", "json", "proto").
    Name() string
    ContentType() string
    Marshal(v any) ([]byte, error)
    Unmarshal(data []byte, v any) error
}

// Registry maps names and content types to codecs.
type Registry struct {
    byType map[string]Codec
    byName map[string]Codec
}

// NewRegistry returns a registry preloaded with JSON, CBOR and Protobuf.
func NewRegistry() *Registry {
    r := &Registry{byType: make(map[string]Codec), byName: make(map[string]Codec)}
    r.Register(JSON())
    r.Register(Proto())
    if c, err := CBOR(); err == nil { r.Register(c) }
    return r
}

// Register adds or replaces a codec.
func (r *Registry) Register(c Codec) {
    r.byType[c.ContentType()] = c
    r.byName[c.Name()] = c
}

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec { return r.byType[contentType] }

// Lookup returns a codec by its short name.
func (r *Registry) Lookup(name string) (Codec, error) {
    n := strings.ToLower(strings.TrimSpace(name))
    if n == "" { n = DefaultName }
    if c := r.byName[n]; c != nil { return c, nil }
    return nil, fmt.Errorf("unknown codec: %q", name)
}

// DefaultName is the codec used for metadata when settings do not choose one.
const DefaultName = "cbor"
