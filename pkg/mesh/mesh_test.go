package mesh

import (
    "errors"
    "testing"
)

func TestValidate(t *testing.T) {
    coords := []float64{0, 2.5, 1, 2, 0, 1.5, 2, 2.5, 1.5, 4, 2.5, 1.7}
    cases := []struct {
        name   string
        coords []float64
        conn   []int
        types  []int
        ok     bool
    }{
        {"single triangle", coords[:9], []int{0, 1, 2}, []int{5}, true},
        {"triangle and line", coords, []int{0, 1, 2, 2, 3}, []int{5, 3}, true},
        {"empty mesh", nil, nil, nil, true},
        {"ragged coordinates", coords[:8], []int{0, 1, 2}, []int{5}, false},
        {"unknown type", coords, []int{0, 1, 2}, []int{99}, false},
        {"short connectivity", coords, []int{0, 1}, []int{5}, false},
        {"index out of range", coords[:9], []int{0, 1, 3}, []int{5}, false},
    }
    for _, tc := range cases {
        err := Validate(tc.coords, tc.conn, tc.types)
        if tc.ok && err != nil { t.Fatalf("%s: unexpected error %v", tc.name, err) }
        if !tc.ok && !errors.Is(err, ErrInvalidMesh) { t.Fatalf("%s: want ErrInvalidMesh, got %v", tc.name, err) }
    }
}

func TestNodesPerElement(t *testing.T) {
    if n, ok := NodesPerElement(Hexahedron); !ok || n != 8 { t.Fatalf("hexahedron: %d %v", n, ok) }
    if _, ok := NodesPerElement(ElementType(2)); ok { t.Fatalf("code 2 is not in the vocabulary") }
    if Triangle.String() != "triangle" { t.Fatalf("string = %s", Triangle) }
}
