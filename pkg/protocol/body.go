package protocol

import (
    "errors"
    "fmt"

    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/protocol/codec"
)

// Format is a compact on-wire indicator of a metadata body encoding.
// It is carried as the first byte of a metadata or hello payload.
type Format uint8

const (
    FormatUnknown Format = iota
    FormatJSON
    FormatCBOR
    FormatProto
)

func (f Format) String() string {
    switch f {
    case FormatJSON:
        return "json"
    case FormatCBOR:
        return "cbor"
    case FormatProto:
        return "proto"
    default:
        return "unknown"
    }
}

// FormatOf maps a codec name to its format byte.
func FormatOf(c codec.Codec) Format {
    switch c.Name() {
    case "json":
        return FormatJSON
    case "cbor":
        return FormatCBOR
    case "proto":
        return FormatProto
    }
    return FormatUnknown
}

// CodecFor returns the codec registered for a given format.
func CodecFor(r *codec.Registry, f Format) (codec.Codec, error) {
    if f == FormatUnknown { return nil, fmt.Errorf("%w: unknown body format %d", ErrBadFrame, f) }
    c, err := r.Lookup(f.String())
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrBadFrame, err) }
    return c, nil
}

// EncodeBody serializes m with c and prefixes the payload with the format byte.
func EncodeBody(c codec.Codec, m *metadata.Metadata) ([]byte, error) {
    f := FormatOf(c)
    if f == FormatUnknown { return nil, fmt.Errorf("codec %q has no wire format", c.Name()) }
    b, err := metadata.Marshal(c, m)
    if err != nil { return nil, err }
    out := make([]byte, 1+len(b))
    out[0] = byte(f)
    copy(out[1:], b)
    return out, nil
}

// DecodeBody decodes a payload produced by EncodeBody. The receiver honours
// whatever format the sender chose.
func DecodeBody(r *codec.Registry, payload []byte) (*metadata.Metadata, error) {
    if len(payload) == 0 { return nil, errors.Join(ErrBadFrame, errors.New("empty metadata body")) }
    c, err := CodecFor(r, Format(payload[0]))
    if err != nil { return nil, err }
    m, err := metadata.Unmarshal(c, payload[1:])
    if err != nil { return nil, errors.Join(ErrBadFrame, err) }
    return m, nil
}
