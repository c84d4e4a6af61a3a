package protocol

import (
    "encoding/binary"
    "errors"
)

// Fixed frame header (24 bytes), little-endian.
//
//  0 ..1   Magic    'C''S' (0x5343)
//  2       Version  u8
//  3       Kind     u8
//  4       Signal   u8   (KindSignal)
//  5       Elem     u8   (KindBuffer)
//  6 ..7   Reserved u16
//  8 ..15  Count    u64  elements (KindBuffer)
//  16..19  PayloadLen u32
//  20..23  Reserved2 u32
const (
    HeaderSize = 24
    magicWord  = uint16(0x5343)
)

// Version is the wire protocol version. Any change to the frame layout, the
// signal set or the fixed callback identifiers bumps it.
const Version uint8 = 1

// MaxPayload guards against absurd lengths from a corrupted stream.
const MaxPayload = 1 << 31

// FrameKind tells what the payload holds.
type FrameKind uint8

const (
    KindUnknown FrameKind = iota
    KindSignal
    KindBuffer
    KindMetadata
    KindHello
)

func (k FrameKind) String() string {
    switch k {
    case KindSignal:
        return "signal"
    case KindBuffer:
        return "buffer"
    case KindMetadata:
        return "metadata"
    case KindHello:
        return "hello"
    default:
        return "unknown"
    }
}

var (
    ErrBadFrame = errors.New("malformed frame")
)

// Header describes one frame.
type Header struct {
    Version    uint8
    Kind       FrameKind
    Signal     ControlSignal
    Elem       uint8
    Count      uint64
    PayloadLen uint32
}

// MarshalBinary encodes the header into a 24-byte buffer.
func (h *Header) MarshalBinary() ([]byte, error) {
    buf := make([]byte, HeaderSize)
    h.put(buf)
    return buf, nil
}

func (h *Header) put(buf []byte) {
    binary.LittleEndian.PutUint16(buf[0:2], magicWord)
    buf[2] = h.Version
    buf[3] = uint8(h.Kind)
    buf[4] = uint8(h.Signal)
    buf[5] = h.Elem
    binary.LittleEndian.PutUint64(buf[8:16], h.Count)
    binary.LittleEndian.PutUint32(buf[16:20], h.PayloadLen)
}

// UnmarshalBinary decodes and validates a header.
func (h *Header) UnmarshalBinary(buf []byte) error {
    if len(buf) < HeaderSize {
        return errors.Join(ErrBadFrame, errors.New("short header"))
    }
    if binary.LittleEndian.Uint16(buf[0:2]) != magicWord {
        return errors.Join(ErrBadFrame, errors.New("bad magic"))
    }
    h.Version = buf[2]
    h.Kind = FrameKind(buf[3])
    h.Signal = ControlSignal(buf[4])
    h.Elem = buf[5]
    h.Count = binary.LittleEndian.Uint64(buf[8:16])
    h.PayloadLen = binary.LittleEndian.Uint32(buf[16:20])
    if h.Version != Version {
        return errors.Join(ErrBadFrame, errors.New("unsupported frame version"))
    }
    if uint64(h.PayloadLen) > MaxPayload {
        return errors.Join(ErrBadFrame, errors.New("payload too large"))
    }
    return nil
}
