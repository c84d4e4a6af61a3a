package protocol

import (
    "errors"
    "fmt"
    "io"

    "github.com/vsujeesh/CoSimIO/pkg/buffer"
    "github.com/vsujeesh/CoSimIO/pkg/metadata"
    "github.com/vsujeesh/CoSimIO/pkg/protocol/codec"
)

// Frame is a header + payload wrapper for a single transfer unit.
type Frame struct {
    Header  Header
    Payload []byte
}

// SignalFrame carries a control verb and its identifier.
func SignalFrame(sig ControlSignal, id string) Frame {
    return Frame{Header: Header{Version: Version, Kind: KindSignal, Signal: sig}, Payload: []byte(id)}
}

// BufferFrame encodes the contents of p.
func BufferFrame(p buffer.Payload) Frame {
    return Frame{
        Header:  Header{Version: Version, Kind: KindBuffer, Elem: uint8(p.ElemType()), Count: uint64(p.Size())},
        Payload: p.AppendEncoded(make([]byte, 0, p.Size()*buffer.ElemSize)),
    }
}

// MetadataFrame encodes m with c. kind is KindMetadata or KindHello.
func MetadataFrame(kind FrameKind, c codec.Codec, m *metadata.Metadata) (Frame, error) {
    body, err := EncodeBody(c, m)
    if err != nil { return Frame{}, err }
    return Frame{Header: Header{Version: Version, Kind: kind}, Payload: body}, nil
}

// Signal returns the verb and identifier of a signal frame.
func (f *Frame) Signal() (ControlSignal, string, error) {
    if f.Header.Kind != KindSignal {
        return 0, "", fmt.Errorf("%w: expected signal frame, got %s", ErrProtocolViolation, f.Header.Kind)
    }
    if !f.Header.Signal.Valid() {
        return 0, "", fmt.Errorf("%w: code %d", ErrUnknownSignal, uint8(f.Header.Signal))
    }
    return f.Header.Signal, string(f.Payload), nil
}

// DecodeInto resizes p to the announced element count and fills it.
func (f *Frame) DecodeInto(p buffer.Payload) error {
    if f.Header.Kind != KindBuffer {
        return fmt.Errorf("%w: expected buffer frame, got %s", ErrProtocolViolation, f.Header.Kind)
    }
    if buffer.ElemType(f.Header.Elem) != p.ElemType() {
        return fmt.Errorf("%w: element type %s, buffer holds %s", ErrProtocolViolation, buffer.ElemType(f.Header.Elem), p.ElemType())
    }
    if f.Header.Count > MaxPayload/buffer.ElemSize || f.Header.Count*buffer.ElemSize != uint64(len(f.Payload)) {
        return errors.Join(ErrBadFrame, fmt.Errorf("count %d does not match %d payload bytes", f.Header.Count, len(f.Payload)))
    }
    if err := p.Resize(int(f.Header.Count)); err != nil { return err }
    return p.DecodeFrom(f.Payload)
}

// Metadata decodes a metadata or hello frame.
func (f *Frame) Metadata(r *codec.Registry) (*metadata.Metadata, error) {
    if f.Header.Kind != KindMetadata && f.Header.Kind != KindHello {
        return nil, fmt.Errorf("%w: expected metadata frame, got %s", ErrProtocolViolation, f.Header.Kind)
    }
    return DecodeBody(r, f.Payload)
}

// payloadLen rejects payloads the header cannot announce.
func payloadLen(n uint64) (uint32, error) {
    if n > MaxPayload {
        return 0, errors.Join(ErrBadFrame, fmt.Errorf("payload of %d bytes exceeds %d", n, MaxPayload))
    }
    return uint32(n), nil
}

// WriteTo writes header + payload to w.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
    n, err := payloadLen(uint64(len(f.Payload)))
    if err != nil { return 0, err }
    f.Header.PayloadLen = n
    hb, err := f.Header.MarshalBinary()
    if err != nil { return 0, err }
    n1, err := w.Write(hb)
    if err != nil { return int64(n1), err }
    n2, err := w.Write(f.Payload)
    return int64(n1 + n2), err
}

// ReadFrom reads header + payload from r.
func (f *Frame) ReadFrom(r io.Reader) (int64, error) {
    hb := make([]byte, HeaderSize)
    if _, err := io.ReadFull(r, hb); err != nil { return 0, err }
    if err := f.Header.UnmarshalBinary(hb); err != nil { return HeaderSize, err }
    if f.Header.PayloadLen > 0 {
        f.Payload = make([]byte, int(f.Header.PayloadLen))
        if _, err := io.ReadFull(r, f.Payload); err != nil {
            if errors.Is(err, io.EOF) { err = io.ErrUnexpectedEOF }
            return HeaderSize, err
        }
    } else {
        f.Payload = nil
    }
    return int64(HeaderSize + int(f.Header.PayloadLen)), nil
}

// Encode returns header+payload as a single byte slice.
func (f *Frame) Encode() ([]byte, error) {
    n, err := payloadLen(uint64(len(f.Payload)))
    if err != nil { return nil, err }
    f.Header.PayloadLen = n
    out := make([]byte, HeaderSize+len(f.Payload))
    f.Header.put(out)
    copy(out[HeaderSize:], f.Payload)
    return out, nil
}

// Decode parses a single frame from buf. Trailing bytes are an error.
func (f *Frame) Decode(buf []byte) error {
    if err := f.Header.UnmarshalBinary(buf); err != nil { return err }
    need := int(f.Header.PayloadLen)
    if HeaderSize+need != len(buf) {
        return errors.Join(ErrBadFrame, fmt.Errorf("frame holds %d bytes, header announces %d", len(buf), HeaderSize+need))
    }
    f.Payload = append(f.Payload[:0], buf[HeaderSize:]...)
    return nil
}
