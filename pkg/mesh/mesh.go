// Package mesh holds the element-type vocabulary shared by both peers and the
// shape checks applied to every mesh transfer.
package mesh

import (
    "errors"
    "fmt"
)

// ErrInvalidMesh reports coordinates, connectivities and types that do not describe a mesh.
var ErrInvalidMesh = errors.New("mesh: invalid mesh")

// ElementType reuses the VTK cell-type numbering.
type ElementType int

const (
    Vertex       ElementType = 1
    Line         ElementType = 3
    Triangle     ElementType = 5
    Quad         ElementType = 9
    Tetrahedron  ElementType = 10
    Hexahedron   ElementType = 12
    Wedge        ElementType = 13
    Pyramid      ElementType = 14
)

var nodesPer = map[ElementType]int{
    Vertex:      1,
    Line:        2,
    Triangle:    3,
    Quad:        4,
    Tetrahedron: 4,
    Hexahedron:  8,
    Wedge:       6,
    Pyramid:     5,
}

func (t ElementType) String() string {
    switch t {
    case Vertex:
        return "vertex"
    case Line:
        return "line"
    case Triangle:
        return "triangle"
    case Quad:
        return "quad"
    case Tetrahedron:
        return "tetrahedron"
    case Hexahedron:
        return "hexahedron"
    case Wedge:
        return "wedge"
    case Pyramid:
        return "pyramid"
    default:
        return fmt.Sprintf("unknown(%d)", int(t))
    }
}

// NodesPerElement returns the node count of t, or false for codes outside the vocabulary.
func NodesPerElement(t ElementType) (int, bool) {
    n, ok := nodesPer[t]
    return n, ok
}

// Dimension is the number of coordinates per node.
const Dimension = 3

// Validate checks that coords holds xyz triples, every type is known, the
// connectivity length matches the types and every index addresses a node.
func Validate(coords []float64, conn []int, types []int) error {
    if len(coords)%Dimension != 0 {
        return fmt.Errorf("%w: %d coordinates is not a multiple of %d", ErrInvalidMesh, len(coords), Dimension)
    }
    numNodes := len(coords) / Dimension
    want := 0
    for i, code := range types {
        n, ok := NodesPerElement(ElementType(code))
        if !ok { return fmt.Errorf("%w: element %d has unknown type %d", ErrInvalidMesh, i, code) }
        want += n
    }
    if want != len(conn) {
        return fmt.Errorf("%w: %d connectivities, element types need %d", ErrInvalidMesh, len(conn), want)
    }
    for i, idx := range conn {
        if idx < 0 || idx >= numNodes {
            return fmt.Errorf("%w: connectivity %d references node %d of %d", ErrInvalidMesh, i, idx, numNodes)
        }
    }
    return nil
}
