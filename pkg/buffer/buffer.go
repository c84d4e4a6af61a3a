// Package buffer provides the numeric views handed to data and mesh transfers.
//
// A Buffer is either owning (holds its own slice, resizable) or borrowing
// (a fixed-size view over caller storage), and either mutable or read-only.
// The tags are fixed at construction. Borrowing a caller's slice lets an
// export read straight from the solver's array and an import write straight
// into it, without an intermediate copy.
package buffer

import (
    "encoding/binary"
    "errors"
    "fmt"
    "math"
)

var (
    ErrReadOnly        = errors.New("buffer: read-only")
    ErrNotResizable    = errors.New("buffer: borrowed storage is not resizable")
    ErrIndexOutOfRange = errors.New("buffer: index out of range")
    ErrSizeMismatch    = errors.New("buffer: encoded size mismatch")
)

// Element is the closed set of element types that cross the wire.
type Element interface {
    float64 | int
}

// ElemType is the on-wire element tag.
type ElemType uint8

const (
    ElemUnknown ElemType = iota
    ElemDouble
    ElemInt
)

func (e ElemType) String() string {
    switch e {
    case ElemDouble:
        return "double"
    case ElemInt:
        return "int"
    default:
        return "unknown"
    }
}

// ElemSize is the encoded width of every element type.
const ElemSize = 8

// Mode carries the ownership and mutability tags.
type Mode uint8

const (
    Borrowed Mode = 1 << 0
    ReadOnly Mode = 1 << 1
)

func (m Mode) String() string {
    own, mut := "owning", "mutable"
    if m&Borrowed != 0 { own = "borrowing" }
    if m&ReadOnly != 0 { mut = "read-only" }
    return own + "/" + mut
}

// Payload is the element-type-erased contract transports use to move a buffer.
type Payload interface {
    ElemType() ElemType
    Mode() Mode
    Size() int
    Resize(n int) error
    // AppendEncoded appends the little-endian encoding of all elements to dst.
    AppendEncoded(dst []byte) []byte
    // DecodeFrom overwrites all elements from src, which must hold exactly Size() elements.
    DecodeFrom(src []byte) error
}

// Buffer is a typed view over a contiguous numeric sequence.
type Buffer[T Element] struct {
    data []T
    mode Mode
}

// New returns an owning, mutable buffer of n zero elements.
func New[T Element](n int) *Buffer[T] {
    if n < 0 { n = 0 }
    return &Buffer[T]{data: make([]T, n)}
}

// Adopt takes ownership of data. The buffer may reallocate it on Resize.
func Adopt[T Element](data []T) *Buffer[T] { return &Buffer[T]{data: data} }

// AdoptReadOnly takes ownership of data and forbids writes and resizing.
func AdoptReadOnly[T Element](data []T) *Buffer[T] { return &Buffer[T]{data: data, mode: ReadOnly} }

// Borrow returns a mutable fixed-size view over data; data must outlive the buffer.
func Borrow[T Element](data []T) *Buffer[T] { return &Buffer[T]{data: data, mode: Borrowed} }

// BorrowReadOnly returns a read-only fixed-size view over data.
func BorrowReadOnly[T Element](data []T) *Buffer[T] {
    return &Buffer[T]{data: data, mode: Borrowed | ReadOnly}
}

func (b *Buffer[T]) Mode() Mode     { return b.mode }
func (b *Buffer[T]) Size() int      { return len(b.data) }
func (b *Buffer[T]) IsBorrowed() bool { return b.mode&Borrowed != 0 }
func (b *Buffer[T]) IsReadOnly() bool { return b.mode&ReadOnly != 0 }

// Data returns the underlying slice without copying. Callers must not write
// through it when the buffer is read-only.
func (b *Buffer[T]) Data() []T { return b.data }

func (b *Buffer[T]) ElemType() ElemType {
    var zero T
    if _, ok := any(zero).(float64); ok { return ElemDouble }
    return ElemInt
}

// Resize changes the length of an owning buffer, keeping the common prefix.
func (b *Buffer[T]) Resize(n int) error {
    if b.IsBorrowed() {
        if n == len(b.data) { return nil }
        return fmt.Errorf("%w: have %d, need %d", ErrNotResizable, len(b.data), n)
    }
    if b.IsReadOnly() { return ErrReadOnly }
    if n < 0 { return fmt.Errorf("%w: negative size %d", ErrIndexOutOfRange, n) }
    if n <= cap(b.data) {
        old := len(b.data)
        b.data = b.data[:n]
        var zero T
        for i := old; i < n; i++ { b.data[i] = zero }
        return nil
    }
    grown := make([]T, n)
    copy(grown, b.data)
    b.data = grown
    return nil
}

// At returns element i.
func (b *Buffer[T]) At(i int) (T, error) {
    var zero T
    if i < 0 || i >= len(b.data) { return zero, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(b.data)) }
    return b.data[i], nil
}

// Set writes element i.
func (b *Buffer[T]) Set(i int, v T) error {
    if b.IsReadOnly() { return ErrReadOnly }
    if i < 0 || i >= len(b.data) { return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(b.data)) }
    b.data[i] = v
    return nil
}

func (b *Buffer[T]) AppendEncoded(dst []byte) []byte {
    var word [ElemSize]byte
    for _, v := range b.data {
        switch x := any(v).(type) {
        case float64:
            binary.LittleEndian.PutUint64(word[:], math.Float64bits(x))
        case int:
            binary.LittleEndian.PutUint64(word[:], uint64(int64(x)))
        }
        dst = append(dst, word[:]...)
    }
    return dst
}

func (b *Buffer[T]) DecodeFrom(src []byte) error {
    if b.IsReadOnly() { return ErrReadOnly }
    if len(src) != len(b.data)*ElemSize {
        return fmt.Errorf("%w: %d bytes for %d elements", ErrSizeMismatch, len(src), len(b.data))
    }
    isDouble := b.ElemType() == ElemDouble
    for i := range b.data {
        u := binary.LittleEndian.Uint64(src[i*ElemSize:])
        if isDouble {
            b.data[i] = T(math.Float64frombits(u))
        } else {
            b.data[i] = T(int64(u))
        }
    }
    return nil
}
