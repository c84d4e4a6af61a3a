package metadata

import (
    "errors"
    "fmt"
    "sort"
    "strconv"
    "strings"
)

var (
    ErrKeyNotFound  = errors.New("metadata: key not found")
    ErrTypeMismatch = errors.New("metadata: type mismatch")
)

// Kind tags the stored value of a key.
type Kind uint8

const (
    KindInvalid Kind = iota
    KindInt
    KindDouble
    KindBool
    KindString
    KindMetadata
)

func (k Kind) String() string {
    switch k {
    case KindInt:
        return "int"
    case KindDouble:
        return "double"
    case KindBool:
        return "bool"
    case KindString:
        return "string"
    case KindMetadata:
        return "metadata"
    default:
        return "invalid"
    }
}

// Value is the closed set of storable types.
type Value interface {
    int | float64 | bool | string | *Metadata
}

type value struct {
    kind Kind
    i    int
    d    float64
    b    bool
    s    string
    m    *Metadata
}

// Metadata is an insertion-ordered document. The zero value is empty and ready to use.
type Metadata struct {
    keys []string
    vals map[string]value
}

// New returns an empty document.
func New() *Metadata { return &Metadata{} }

// Set stores v under key, replacing any previous value and kind.
func Set[T Value](m *Metadata, key string, v T) {
    switch x := any(v).(type) {
    case int:
        m.put(key, value{kind: KindInt, i: x})
    case float64:
        m.put(key, value{kind: KindDouble, d: x})
    case bool:
        m.put(key, value{kind: KindBool, b: x})
    case string:
        m.put(key, value{kind: KindString, s: x})
    case *Metadata:
        m.put(key, value{kind: KindMetadata, m: x.Clone()})
    }
}

// Get reads key as T.
func Get[T Value](m *Metadata, key string) (T, error) {
    var zero T
    v, ok := m.lookup(key)
    if !ok { return zero, fmt.Errorf("%w: %q", ErrKeyNotFound, key) }
    want := kindOf[T]()
    if v.kind != want {
        return zero, fmt.Errorf("%w: %q holds %s, requested %s", ErrTypeMismatch, key, v.kind, want)
    }
    var out any
    switch want {
    case KindInt:
        out = v.i
    case KindDouble:
        out = v.d
    case KindBool:
        out = v.b
    case KindString:
        out = v.s
    case KindMetadata:
        out = v.m.Clone()
    }
    return out.(T), nil
}

// GetOr reads key as T and falls back to def when the key is absent.
// A present key of another kind still fails with ErrTypeMismatch.
func GetOr[T Value](m *Metadata, key string, def T) (T, error) {
    if !m.Has(key) { return def, nil }
    return Get[T](m, key)
}

func kindOf[T Value]() Kind {
    var zero T
    switch any(zero).(type) {
    case int:
        return KindInt
    case float64:
        return KindDouble
    case bool:
        return KindBool
    case string:
        return KindString
    case *Metadata:
        return KindMetadata
    }
    return KindInvalid
}

func (m *Metadata) SetInt(key string, v int)               { Set(m, key, v) }
func (m *Metadata) SetDouble(key string, v float64)        { Set(m, key, v) }
func (m *Metadata) SetBool(key string, v bool)             { Set(m, key, v) }
func (m *Metadata) SetString(key string, v string)         { Set(m, key, v) }
func (m *Metadata) SetMetadata(key string, v *Metadata)    { Set(m, key, v) }
func (m *Metadata) GetInt(key string) (int, error)         { return Get[int](m, key) }
func (m *Metadata) GetDouble(key string) (float64, error)  { return Get[float64](m, key) }
func (m *Metadata) GetBool(key string) (bool, error)       { return Get[bool](m, key) }
func (m *Metadata) GetString(key string) (string, error)   { return Get[string](m, key) }
func (m *Metadata) GetMetadata(key string) (*Metadata, error) { return Get[*Metadata](m, key) }

// Has reports whether key is present.
func (m *Metadata) Has(key string) bool { _, ok := m.lookup(key); return ok }

// KindOf returns the kind stored under key, or KindInvalid.
func (m *Metadata) KindOf(key string) Kind {
    v, _ := m.lookup(key)
    return v.kind
}

// Size returns the number of keys.
func (m *Metadata) Size() int {
    if m == nil { return 0 }
    return len(m.keys)
}

// Keys returns keys in insertion order.
func (m *Metadata) Keys() []string {
    if m == nil { return nil }
    return append([]string(nil), m.keys...)
}

// Remove deletes key. Removing an absent key fails with ErrKeyNotFound.
func (m *Metadata) Remove(key string) error {
    if !m.Has(key) { return fmt.Errorf("%w: %q", ErrKeyNotFound, key) }
    delete(m.vals, key)
    for i, k := range m.keys {
        if k == key {
            m.keys = append(m.keys[:i], m.keys[i+1:]...)
            break
        }
    }
    return nil
}

// Clone returns a deep copy. Cloning nil yields nil.
func (m *Metadata) Clone() *Metadata {
    if m == nil { return nil }
    out := &Metadata{keys: append([]string(nil), m.keys...), vals: make(map[string]value, len(m.vals))}
    for k, v := range m.vals {
        if v.kind == KindMetadata { v.m = v.m.Clone() }
        out.vals[k] = v
    }
    return out
}

// Equal compares keys, order, kinds and values. Doubles compare by value, so NaN never equals NaN.
func (m *Metadata) Equal(o *Metadata) bool {
    if m.Size() != o.Size() { return false }
    for i, k := range m.Keys() {
        if o.keys[i] != k { return false }
        a, b := m.vals[k], o.vals[k]
        if a.kind != b.kind { return false }
        switch a.kind {
        case KindInt:
            if a.i != b.i { return false }
        case KindDouble:
            if a.d != b.d { return false }
        case KindBool:
            if a.b != b.b { return false }
        case KindString:
            if a.s != b.s { return false }
        case KindMetadata:
            if !a.m.Equal(b.m) { return false }
        }
    }
    return true
}

// String renders the document for logs, e.g. {connection_status: 1, solver_name: "a"}.
func (m *Metadata) String() string {
    var sb strings.Builder
    sb.WriteByte('{')
    for i, k := range m.Keys() {
        if i > 0 { sb.WriteString(", ") }
        sb.WriteString(k)
        sb.WriteString(": ")
        v := m.vals[k]
        switch v.kind {
        case KindInt:
            sb.WriteString(strconv.Itoa(v.i))
        case KindDouble:
            sb.WriteString(strconv.FormatFloat(v.d, 'g', -1, 64))
        case KindBool:
            sb.WriteString(strconv.FormatBool(v.b))
        case KindString:
            sb.WriteString(strconv.Quote(v.s))
        case KindMetadata:
            sb.WriteString(v.m.String())
        }
    }
    sb.WriteByte('}')
    return sb.String()
}

// Merge copies every key of o into m, overwriting existing keys.
func (m *Metadata) Merge(o *Metadata) {
    for _, k := range o.Keys() {
        v := o.vals[k]
        if v.kind == KindMetadata { v.m = v.m.Clone() }
        m.put(k, v)
    }
}

// SortedKeys returns keys in lexical order; handy for stable diagnostics.
func (m *Metadata) SortedKeys() []string {
    ks := m.Keys()
    sort.Strings(ks)
    return ks
}

func (m *Metadata) put(key string, v value) {
    if m.vals == nil { m.vals = make(map[string]value) }
    if _, ok := m.vals[key]; !ok { m.keys = append(m.keys, key) }
    m.vals[key] = v
}

func (m *Metadata) lookup(key string) (value, bool) {
    if m == nil || m.vals == nil { return value{}, false }
    v, ok := m.vals[key]
    return v, ok
}
