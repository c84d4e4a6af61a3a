package transports

import (
    "errors"
    "testing"

    "github.com/vsujeesh/CoSimIO/pkg/transport"
)

func TestNewByKind(t *testing.T) {
    for _, k := range []transport.Kind{transport.KindFile, transport.KindSocket, transport.KindPipe, transport.KindMem} {
        tr, err := NewByKind(k, Options{})
        if err != nil { t.Fatalf("%s: %v", k, err) }
        if tr.Kind() != k { t.Fatalf("kind = %s want %s", tr.Kind(), k) }
    }
    if _, err := NewByKind(transport.KindUnknown, Options{}); !errors.Is(err, transport.ErrInvalidSettings) {
        t.Fatalf("unknown kind: %v", err)
    }
}
