package buffer

import (
    "errors"
    "math"
    "testing"
)

func TestBorrowedResizeAlwaysFails(t *testing.T) {
    storage := []float64{1, 2, 3}
    for _, b := range []*Buffer[float64]{Borrow(storage), BorrowReadOnly(storage)} {
        if err := b.Resize(5); !errors.Is(err, ErrNotResizable) { t.Fatalf("%s: want ErrNotResizable, got %v", b.Mode(), err) }
        if err := b.Resize(0); !errors.Is(err, ErrNotResizable) { t.Fatalf("%s: shrink: %v", b.Mode(), err) }
        if b.Size() != 3 { t.Fatalf("size changed to %d", b.Size()) }
    }
}

func TestOwningResizeFillSize(t *testing.T) {
    b := New[int](2)
    for _, n := range []int{7, 3, 0, 12} {
        if err := b.Resize(n); err != nil { t.Fatalf("resize %d: %v", n, err) }
        for i := 0; i < n; i++ {
            if err := b.Set(i, i*i); err != nil { t.Fatalf("set: %v", err) }
        }
        if b.Size() != n { t.Fatalf("size = %d, want %d", b.Size(), n) }
    }
    if v, _ := b.At(11); v != 121 { t.Fatalf("at 11 = %d", v) }
}

func TestResizeZeroesRegrownTail(t *testing.T) {
    b := Adopt([]float64{1, 2, 3, 4})
    _ = b.Resize(2)
    _ = b.Resize(4)
    if b.Data()[2] != 0 || b.Data()[3] != 0 { t.Fatalf("stale tail: %v", b.Data()) }
}

func TestReadOnlyRejectsWrites(t *testing.T) {
    b := AdoptReadOnly([]int{1, 2})
    if err := b.Set(0, 9); !errors.Is(err, ErrReadOnly) { t.Fatalf("set: %v", err) }
    if err := b.Resize(4); !errors.Is(err, ErrReadOnly) { t.Fatalf("resize: %v", err) }
    if err := b.DecodeFrom(make([]byte, 16)); !errors.Is(err, ErrReadOnly) { t.Fatalf("decode: %v", err) }
    if v, err := b.At(1); err != nil || v != 2 { t.Fatalf("read: %v %v", v, err) }
}

func TestBorrowWritesThrough(t *testing.T) {
    storage := make([]float64, 2)
    b := Borrow(storage)
    _ = b.Set(1, 4.5)
    if storage[1] != 4.5 { t.Fatalf("borrowed write not visible in caller storage") }
    if _, err := b.At(2); !errors.Is(err, ErrIndexOutOfRange) { t.Fatalf("at: %v", err) }
}

func TestEncodeDecode(t *testing.T) {
    src := BorrowReadOnly([]float64{0, -1.5, math.Pi, math.Inf(-1)})
    enc := src.AppendEncoded(nil)
    if len(enc) != 4*ElemSize { t.Fatalf("encoded len = %d", len(enc)) }
    dst := New[float64](4)
    if err := dst.DecodeFrom(enc); err != nil { t.Fatalf("decode: %v", err) }
    for i, v := range src.Data() {
        if dst.Data()[i] != v { t.Fatalf("elem %d: %v != %v", i, dst.Data()[i], v) }
    }

    ints := Adopt([]int{-3, 0, math.MaxInt32 + 7})
    out := New[int](3)
    if err := out.DecodeFrom(ints.AppendEncoded(nil)); err != nil { t.Fatalf("decode ints: %v", err) }
    if out.Data()[0] != -3 || out.Data()[2] != math.MaxInt32+7 { t.Fatalf("ints = %v", out.Data()) }
    if err := out.DecodeFrom(enc[:8]); !errors.Is(err, ErrSizeMismatch) { t.Fatalf("short: %v", err) }
}

func TestElemType(t *testing.T) {
    if New[float64](0).ElemType() != ElemDouble { t.Fatalf("double tag") }
    if New[int](0).ElemType() != ElemInt { t.Fatalf("int tag") }
    var p Payload = Borrow([]int{1})
    if p.Mode().String() != "borrowing/mutable" { t.Fatalf("mode string = %s", p.Mode()) }
}
