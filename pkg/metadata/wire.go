package metadata

import (
    "fmt"
    "strconv"

    "google.golang.org/protobuf/types/known/structpb"

    "github.com/vsujeesh/CoSimIO/pkg/protocol/codec"
)

// Entry is the codec-neutral wire form of one key. Documents travel as an
// ordered []Entry so insertion order survives codecs with unordered maps.
// Double is always emitted: omitempty would collapse -0.0 into +0.0.
type Entry struct {
    Key    string  `json:"k" cbor:"1,keyasint"`
    Kind   Kind    `json:"t" cbor:"2,keyasint"`
    Int    int64   `json:"i,omitempty" cbor:"3,keyasint,omitempty"`
    Double float64 `json:"d" cbor:"4,keyasint"`
    Bool   bool    `json:"b,omitempty" cbor:"5,keyasint,omitempty"`
    String string  `json:"s,omitempty" cbor:"6,keyasint,omitempty"`
    Nested []Entry `json:"m,omitempty" cbor:"7,keyasint,omitempty"`
}

// Entries flattens the document into wire entries.
func (m *Metadata) Entries() []Entry {
    out := make([]Entry, 0, m.Size())
    for _, k := range m.Keys() {
        v := m.vals[k]
        e := Entry{Key: k, Kind: v.kind}
        switch v.kind {
        case KindInt:
            e.Int = int64(v.i)
        case KindDouble:
            e.Double = v.d
        case KindBool:
            e.Bool = v.b
        case KindString:
            e.String = v.s
        case KindMetadata:
            e.Nested = v.m.Entries()
        }
        out = append(out, e)
    }
    return out
}

// FromEntries rebuilds a document from wire entries.
func FromEntries(es []Entry) (*Metadata, error) {
    m := New()
    for _, e := range es {
        switch e.Kind {
        case KindInt:
            m.put(e.Key, value{kind: KindInt, i: int(e.Int)})
        case KindDouble:
            m.put(e.Key, value{kind: KindDouble, d: e.Double})
        case KindBool:
            m.put(e.Key, value{kind: KindBool, b: e.Bool})
        case KindString:
            m.put(e.Key, value{kind: KindString, s: e.String})
        case KindMetadata:
            nested, err := FromEntries(e.Nested)
            if err != nil { return nil, err }
            m.put(e.Key, value{kind: KindMetadata, m: nested})
        default:
            return nil, fmt.Errorf("metadata: key %q has invalid kind %d", e.Key, e.Kind)
        }
    }
    return m, nil
}

// Marshal encodes m with c. The proto codec carries a structpb.ListValue of
// [key, kind, value] triples; ints travel as decimal strings there because
// structpb numbers are doubles.
func Marshal(c codec.Codec, m *Metadata) ([]byte, error) {
    if c.Name() == "proto" {
        lv, err := toList(m)
        if err != nil { return nil, err }
        return c.Marshal(lv)
    }
    return c.Marshal(m.Entries())
}

// Unmarshal decodes a document produced by Marshal with the same codec.
func Unmarshal(c codec.Codec, data []byte) (*Metadata, error) {
    if c.Name() == "proto" {
        var lv structpb.ListValue
        if err := c.Unmarshal(data, &lv); err != nil { return nil, err }
        return fromList(&lv)
    }
    var es []Entry
    if err := c.Unmarshal(data, &es); err != nil { return nil, err }
    return FromEntries(es)
}

func toList(m *Metadata) (*structpb.ListValue, error) {
    lv := &structpb.ListValue{}
    for _, k := range m.Keys() {
        v := m.vals[k]
        var pv *structpb.Value
        switch v.kind {
        case KindInt:
            pv = structpb.NewStringValue(strconv.Itoa(v.i))
        case KindDouble:
            pv = structpb.NewNumberValue(v.d)
        case KindBool:
            pv = structpb.NewBoolValue(v.b)
        case KindString:
            pv = structpb.NewStringValue(v.s)
        case KindMetadata:
            nested, err := toList(v.m)
            if err != nil { return nil, err }
            pv = structpb.NewListValue(nested)
        }
        lv.Values = append(lv.Values, structpb.NewListValue(&structpb.ListValue{Values: []*structpb.Value{
            structpb.NewStringValue(k),
            structpb.NewNumberValue(float64(v.kind)),
            pv,
        }}))
    }
    return lv, nil
}

func fromList(lv *structpb.ListValue) (*Metadata, error) {
    m := New()
    for _, item := range lv.GetValues() {
        triple := item.GetListValue().GetValues()
        if len(triple) != 3 { return nil, fmt.Errorf("metadata: malformed proto entry") }
        key := triple[0].GetStringValue()
        pv := triple[2]
        switch Kind(triple[1].GetNumberValue()) {
        case KindInt:
            n, err := strconv.Atoi(pv.GetStringValue())
            if err != nil { return nil, fmt.Errorf("metadata: key %q: %w", key, err) }
            m.put(key, value{kind: KindInt, i: n})
        case KindDouble:
            m.put(key, value{kind: KindDouble, d: pv.GetNumberValue()})
        case KindBool:
            m.put(key, value{kind: KindBool, b: pv.GetBoolValue()})
        case KindString:
            m.put(key, value{kind: KindString, s: pv.GetStringValue()})
        case KindMetadata:
            nested, err := fromList(pv.GetListValue())
            if err != nil { return nil, err }
            m.put(key, value{kind: KindMetadata, m: nested})
        default:
            return nil, fmt.Errorf("metadata: key %q has invalid kind", key)
        }
    }
    return m, nil
}
