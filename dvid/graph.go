/*
   This file defines fundamental graph structures exchanged with the
   labelgraph datatype, along with the binary encoding of vertex
   transactions used by property reads and writes.
*/

package dvid

import (
	"encoding/binary"
	"sort"
)

// VertexID is a 64 bit label ID for vertices in the graph.
type VertexID uint64

// Vertex defines a vertex in a graph with its weight.  Field names
// match the JSON interchange format of the labelgraph datatype.
type Vertex struct {
	Id     VertexID
	Weight float64
}

// Edge defines an edge in a graph; if a directed edge is desired it
// must be encoded in an edge property.
type Edge struct {
	Id1    VertexID
	Id2    VertexID
	Weight float64
}

// Graph accumulates vertices and edges retrieved by query operations.
// The caller owns it; query operations only append and never clear
// pre-existing contents.
type Graph struct {
	Vertices []Vertex
	Edges    []Edge
}

// AddVertex appends a vertex to the graph.
func (g *Graph) AddVertex(id VertexID, weight float64) {
	g.Vertices = append(g.Vertices, Vertex{id, weight})
}

// AddEdge appends an edge to the graph.
func (g *Graph) AddEdge(id1, id2 VertexID, weight float64) {
	g.Edges = append(g.Edges, Edge{id1, id2, weight})
}

// VertexTransactions maps a vertex to the opaque transaction token
// observed at its last property read.  Tokens prove at write time that
// the property has not been modified by another client since that read.
type VertexTransactions map[VertexID]uint64

// Encode writes the transactions in the little-endian binary layout of
// the propertytransaction endpoints: a uint64 count followed by
// (vertex, token) uint64 pairs.  Entries are emitted in ascending
// vertex order so the encoding is deterministic.
func (t VertexTransactions) Encode() []byte {
	ids := make([]VertexID, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	buf := make([]byte, 8+len(t)*16)
	binary.LittleEndian.PutUint64(buf[0:], uint64(len(t)))
	off := 8
	for _, id := range ids {
		binary.LittleEndian.PutUint64(buf[off:], uint64(id))
		off += 8
		binary.LittleEndian.PutUint64(buf[off:], t[id])
		off += 8
	}
	return buf
}

// DecodeTransactions reads a transaction list in the binary layout
// written by Encode, returning the transactions and the number of bytes
// consumed.
func DecodeTransactions(data []byte) (VertexTransactions, int, error) {
	if len(data) < 8 {
		return nil, 0, ErrProtocol
	}
	count := binary.LittleEndian.Uint64(data[0:])
	off := 8
	// divide rather than multiply so a huge wire-supplied count cannot
	// wrap around and defeat the bound
	if count > uint64(len(data)-off)/16 {
		return nil, 0, ErrProtocol
	}
	t := make(VertexTransactions, count)
	for i := uint64(0); i < count; i++ {
		id := VertexID(binary.LittleEndian.Uint64(data[off:]))
		off += 8
		t[id] = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	return t, off, nil
}

// DecodeVertexList reads a uint64 count followed by that many vertex
// ids, returning the ids and the number of bytes consumed.  This is the
// layout of the failed-vertex section in propertytransaction responses.
func DecodeVertexList(data []byte) ([]VertexID, int, error) {
	if len(data) < 8 {
		return nil, 0, ErrProtocol
	}
	count := binary.LittleEndian.Uint64(data[0:])
	off := 8
	if count > uint64(len(data)-off)/8 {
		return nil, 0, ErrProtocol
	}
	ids := make([]VertexID, count)
	for i := uint64(0); i < count; i++ {
		ids[i] = VertexID(binary.LittleEndian.Uint64(data[off:]))
		off += 8
	}
	return ids, off, nil
}
