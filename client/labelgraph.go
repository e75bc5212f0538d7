/*
	This file implements labelgraph operations: subgraph and neighbor
	reads into a caller-owned graph, commutative weight accumulation,
	and optimistic-concurrency property reads/writes keyed by vertex
	transaction tokens.  Multiple clients may race on property writes;
	stale tokens come back as leftover targets, never as corruption.
*/

package client

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// maxTransactionVertices is the server's per-transaction vertex limit.
const maxTransactionVertices = 1000

const graphSchemaJSON = `
{ "$schema": "http://json-schema.org/schema#",
  "title": "Representation for a graph.  List of vertices with weights and their edges.  The weight terms are not mandatory",
  "type": "object",
  "definitions": {
    "transaction": {
      "description": "Transaction for locking vertex",
      "type": "object",
      "properties": {
        "Id": { "type": "number", "description": "64 bit ID for vertex" },
        "Trans": {"type": "number", "description": "64 bit transaction number" }
      },
      "required": ["Id", "Trans"]
    },
    "vertex": {
      "description": "Describes a vertex in a graph",
      "type": "object",
      "properties": {
        "Id": { "type": "number", "description": "64 bit ID for vertex >0" },
        "Weight": { "type": "number", "description": "Weight/size of vertex" }
      },
      "required": ["Id"]
    },
    "edge": {
      "description": "Describes an edge in a graph",
      "type": "object",
      "properties": {
        "Id1": { "type": "number", "description": "64 bit ID for vertex1 >0" },
        "Id2": { "type": "number", "description": "64 bit ID for vertex2 >0" },
        "Weight": { "type": "number", "description": "Weight/size of edge" }
      },
      "required": ["Id1", "Id2"]
    }
  },
  "properties": {
    "Transactions": {
        "description": "array of transactions",
        "type": ["array", "null"],
        "items": {"$ref": "#/definitions/transaction"},
        "uniqueItems": true
    },
    "Vertices": {
      "description": "array of vertices",
      "type": "array",
      "items": {"$ref": "#/definitions/vertex"},
      "uniqueItems": true
    },
    "Edges": {
      "description": "array of edges",
      "type": "array",
      "items": {"$ref": "#/definitions/edge"},
      "uniqueItems": true
    }
  },
  "required": ["Vertices", "Edges"]
}
`

var graphSchema = jsonschema.MustCompileString("labelgraph.json", graphSchemaJSON)

// labelGraph is the JSON interchange format of the labelgraph datatype.
type labelGraph struct {
	Transactions []transactionItem
	Vertices     []dvid.Vertex
	Edges        []dvid.Edge
}

// transactionItem associates a transaction token with a vertex.
type transactionItem struct {
	Id    dvid.VertexID
	Trans uint64
}

// GetSubgraph retrieves the subgraph touching the given vertices, or
// the whole graph if none are given, appending results to the
// caller-owned graph.
func (ns *NodeService) GetSubgraph(graphName string, vertices []dvid.Vertex, graph *dvid.Graph) error {
	var payload []byte
	if len(vertices) > 0 {
		var err error
		payload, err = marshalGraphJSON(&labelGraph{Vertices: vertices, Edges: []dvid.Edge{}})
		if err != nil {
			return err
		}
	}
	data, err := ns.doRequest(GET, ns.nodePath(graphName, "subgraph"), payload, false)
	if err != nil {
		return err
	}
	return appendGraphJSON(data, graph)
}

// GetVertexNeighbors retrieves the given vertex and all vertices
// connected to it, appending results to the caller-owned graph.
func (ns *NodeService) GetVertexNeighbors(graphName string, vertex dvid.VertexID, graph *dvid.Graph) error {
	path := ns.nodePath(graphName, "neighbors", fmt.Sprintf("%d", vertex))
	data, err := ns.doGet(path)
	if err != nil {
		return err
	}
	return appendGraphJSON(data, graph)
}

// UpdateVertices creates the given vertices or, if they exist,
// increments their weights by the given weights.  The merge is
// commutative, so concurrent callers can accumulate contributions
// without transaction tokens.
func (ns *NodeService) UpdateVertices(graphName string, vertices []dvid.Vertex) error {
	return ns.postWeights(graphName, &labelGraph{Vertices: vertices, Edges: []dvid.Edge{}})
}

// UpdateEdges creates the given edges or, if they exist, increments
// their weights by the given weights.  Endpoint vertices must already
// exist.
func (ns *NodeService) UpdateEdges(graphName string, edges []dvid.Edge) error {
	return ns.postWeights(graphName, &labelGraph{Vertices: []dvid.Vertex{}, Edges: edges})
}

func (ns *NodeService) postWeights(graphName string, lg *labelGraph) error {
	payload, err := marshalGraphJSON(lg)
	if err != nil {
		return err
	}
	_, err = ns.doPost(ns.nodePath(graphName, "weight"), payload)
	return err
}

func marshalGraphJSON(lg *labelGraph) ([]byte, error) {
	payload, err := json.Marshal(lg)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot encode graph: %v", dvid.ErrInvalidArgument, err)
	}
	// The server validates against this schema; catch malformed graphs
	// before paying transport cost.
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("%w: cannot encode graph: %v", dvid.ErrInvalidArgument, err)
	}
	if err := graphSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: graph fails schema: %v", dvid.ErrInvalidArgument, err)
	}
	return payload, nil
}

func appendGraphJSON(data []byte, graph *dvid.Graph) error {
	var lg labelGraph
	if err := json.Unmarshal(data, &lg); err != nil {
		return fmt.Errorf("%w: bad graph JSON: %v", dvid.ErrProtocol, err)
	}
	graph.Vertices = append(graph.Vertices, lg.Vertices...)
	graph.Edges = append(graph.Edges, lg.Edges...)
	return nil
}

/*************** property transactions ***************/

// GetVertexProperties retrieves the named property for each vertex,
// returning property data aligned with the input order plus the
// transaction token observed per vertex.  Vertices with no stored
// property return empty data and a first-write token.
func (ns *NodeService) GetVertexProperties(graphName string, vertices []dvid.VertexID, key string) ([]*dvid.BinaryData, dvid.VertexTransactions, error) {
	if len(vertices) > maxTransactionVertices {
		return nil, nil, fmt.Errorf("%w: transaction on %d vertices exceeds limit %d",
			dvid.ErrInvalidArgument, len(vertices), maxTransactionVertices)
	}
	transactions := make(dvid.VertexTransactions, len(vertices))
	propData := make(map[dvid.VertexID]*dvid.BinaryData)

	pending := append([]dvid.VertexID(nil), vertices...)
	path := ns.nodePath(graphName, "propertytransaction", "vertices", key)
	for len(pending) > 0 {
		payload := encodePropertyRequest(pending, nil, nil, nil)
		data, err := ns.doRequest(GET, path, payload, false)
		if err != nil {
			return nil, nil, err
		}
		failed, err := parsePropertyResponse(data, false, transactions, propData, nil)
		if err != nil {
			return nil, nil, err
		}
		if len(failed) == len(pending) {
			// all busy behind another client's transaction
			time.Sleep(throttleRetryInterval)
		}
		pending = failed
	}

	properties := make([]*dvid.BinaryData, len(vertices))
	for i, id := range vertices {
		properties[i] = propData[id]
	}
	return properties, transactions, nil
}

// GetEdgeProperties retrieves the named property for each edge,
// returning property data aligned with the input order plus the
// transaction tokens of all endpoint vertices.
func (ns *NodeService) GetEdgeProperties(graphName string, edges []dvid.Edge, key string) ([]*dvid.BinaryData, dvid.VertexTransactions, error) {
	endpoints := edgeEndpoints(edges)
	if len(endpoints) > maxTransactionVertices {
		return nil, nil, fmt.Errorf("%w: transaction on %d vertices exceeds limit %d",
			dvid.ErrInvalidArgument, len(endpoints), maxTransactionVertices)
	}
	transactions := make(dvid.VertexTransactions, len(endpoints))
	edgeData := make(map[[2]dvid.VertexID]*dvid.BinaryData)

	pending := endpoints
	path := ns.nodePath(graphName, "propertytransaction", "edges", key)
	for len(pending) > 0 {
		// only request properties for edges with both endpoints pending
		pendingSet := make(map[dvid.VertexID]struct{}, len(pending))
		for _, id := range pending {
			pendingSet[id] = struct{}{}
		}
		var wanted []dvid.Edge
		for _, edge := range edges {
			_, ok1 := pendingSet[edge.Id1]
			_, ok2 := pendingSet[edge.Id2]
			if ok1 || ok2 {
				wanted = append(wanted, edge)
			}
		}
		payload := encodePropertyRequest(pending, nil, wanted, nil)
		data, err := ns.doRequest(GET, path, payload, false)
		if err != nil {
			return nil, nil, err
		}
		failed, err := parsePropertyResponse(data, true, transactions, nil, edgeData)
		if err != nil {
			return nil, nil, err
		}
		if len(failed) == len(pending) {
			time.Sleep(throttleRetryInterval)
		}
		pending = failed
	}

	properties := make([]*dvid.BinaryData, len(edges))
	for i, edge := range edges {
		properties[i] = edgeData[edgeKey(edge.Id1, edge.Id2)]
	}
	return properties, transactions, nil
}

// SetVertexProperties conditionally writes the named property for each
// vertex using the caller's last observed transaction tokens.  Vertices
// whose tokens are stale are returned as leftover with their data
// unchanged; the caller should re-read and retry only those.
// Transactions are updated in place with the advanced tokens of
// successful writes.
func (ns *NodeService) SetVertexProperties(graphName string, vertices []dvid.VertexID, key string,
	properties []*dvid.BinaryData, transactions dvid.VertexTransactions) ([]dvid.VertexID, error) {

	if len(properties) != len(vertices) {
		return nil, fmt.Errorf("%w: %d vertices but %d properties",
			dvid.ErrInvalidArgument, len(vertices), len(properties))
	}
	if len(vertices) > maxTransactionVertices {
		return nil, fmt.Errorf("%w: transaction on %d vertices exceeds limit %d",
			dvid.ErrInvalidArgument, len(vertices), maxTransactionVertices)
	}

	payload := encodePropertyRequest(vertices, transactions, nil, properties)
	path := ns.nodePath(graphName, "propertytransaction", "vertices", key)
	data, err := ns.doPost(path, payload)
	if err != nil {
		return nil, err
	}
	failed, err := parsePropertyResponse(data, false, transactions, nil, nil)
	if err != nil {
		return nil, err
	}

	failedSet := make(map[dvid.VertexID]struct{}, len(failed))
	for _, id := range failed {
		failedSet[id] = struct{}{}
	}
	var leftover []dvid.VertexID
	for _, id := range vertices {
		if _, stale := failedSet[id]; stale {
			leftover = append(leftover, id)
		}
	}
	return leftover, nil
}

// SetEdgeProperties conditionally writes the named property for each
// edge.  An edge write resolves to the transaction tokens of both
// endpoint vertices; if either is stale the edge is leftover and its
// data is unchanged.
func (ns *NodeService) SetEdgeProperties(graphName string, edges []dvid.Edge, key string,
	properties []*dvid.BinaryData, transactions dvid.VertexTransactions) ([]dvid.Edge, error) {

	if len(properties) != len(edges) {
		return nil, fmt.Errorf("%w: %d edges but %d properties",
			dvid.ErrInvalidArgument, len(edges), len(properties))
	}
	endpoints := edgeEndpoints(edges)
	if len(endpoints) > maxTransactionVertices {
		return nil, fmt.Errorf("%w: transaction on %d vertices exceeds limit %d",
			dvid.ErrInvalidArgument, len(endpoints), maxTransactionVertices)
	}

	payload := encodePropertyRequest(endpoints, transactions, edges, properties)
	path := ns.nodePath(graphName, "propertytransaction", "edges", key)
	data, err := ns.doPost(path, payload)
	if err != nil {
		return nil, err
	}
	failed, err := parsePropertyResponse(data, true, transactions, nil, nil)
	if err != nil {
		return nil, err
	}

	failedSet := make(map[dvid.VertexID]struct{}, len(failed))
	for _, id := range failed {
		failedSet[id] = struct{}{}
	}
	var leftover []dvid.Edge
	for _, edge := range edges {
		_, stale1 := failedSet[edge.Id1]
		_, stale2 := failedSet[edge.Id2]
		if stale1 || stale2 {
			leftover = append(leftover, edge)
		}
	}
	return leftover, nil
}

/*************** binary request/response layout ***************/

// encodePropertyRequest writes the propertytransaction request: the
// vertices to lock with their tokens (0 for reads), then the property
// targets.  For edge requests, edges carries the targets; otherwise the
// locked vertices are the targets.  For writes, properties is aligned
// with the targets.
func encodePropertyRequest(vertices []dvid.VertexID, transactions dvid.VertexTransactions,
	edges []dvid.Edge, properties []*dvid.BinaryData) []byte {

	lock := make(dvid.VertexTransactions, len(vertices))
	for _, id := range vertices {
		if transactions != nil {
			lock[id] = transactions[id]
		} else {
			lock[id] = 0
		}
	}
	buf := lock.Encode()

	var numTargets int
	if edges != nil {
		numTargets = len(edges)
	} else {
		numTargets = len(vertices)
	}
	count := make([]byte, 8)
	binary.LittleEndian.PutUint64(count, uint64(numTargets))
	buf = append(buf, count...)

	num := make([]byte, 8)
	for i := 0; i < numTargets; i++ {
		if edges != nil {
			binary.LittleEndian.PutUint64(num, uint64(edges[i].Id1))
			buf = append(buf, num...)
			binary.LittleEndian.PutUint64(num, uint64(edges[i].Id2))
			buf = append(buf, num...)
		} else {
			binary.LittleEndian.PutUint64(num, uint64(vertices[i]))
			buf = append(buf, num...)
		}
		if properties != nil {
			data := properties[i].Bytes()
			binary.LittleEndian.PutUint64(num, uint64(len(data)))
			buf = append(buf, num...)
			buf = append(buf, data...)
		}
	}
	return buf
}

// parsePropertyResponse reads the propertytransaction response:
// successfully locked vertices with advanced tokens (merged into
// transactions), failed vertices (returned), and any property payloads
// (stored into vertexProps or edgeProps when non-nil).
func parsePropertyResponse(data []byte, isEdge bool, transactions dvid.VertexTransactions,
	vertexProps map[dvid.VertexID]*dvid.BinaryData, edgeProps map[[2]dvid.VertexID]*dvid.BinaryData) ([]dvid.VertexID, error) {

	locked, n, err := dvid.DecodeTransactions(data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad property transaction response: %v", dvid.ErrProtocol, err)
	}
	for id, token := range locked {
		transactions[id] = token
	}
	data = data[n:]

	failed, n, err := dvid.DecodeVertexList(data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad property transaction response: %v", dvid.ErrProtocol, err)
	}
	data = data[n:]

	if len(data) == 0 {
		return failed, nil
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: truncated property section", dvid.ErrProtocol)
	}
	numProps := binary.LittleEndian.Uint64(data)
	data = data[8:]
	for i := uint64(0); i < numProps; i++ {
		idBytes := 8
		if isEdge {
			idBytes = 16
		}
		if len(data) < idBytes+8 {
			return nil, fmt.Errorf("%w: truncated property %d", dvid.ErrProtocol, i)
		}
		id1 := dvid.VertexID(binary.LittleEndian.Uint64(data))
		var id2 dvid.VertexID
		if isEdge {
			id2 = dvid.VertexID(binary.LittleEndian.Uint64(data[8:]))
		}
		data = data[idBytes:]
		size := binary.LittleEndian.Uint64(data)
		data = data[8:]
		if uint64(len(data)) < size {
			return nil, fmt.Errorf("%w: property %d declares %d bytes but %d remain",
				dvid.ErrProtocol, i, size, len(data))
		}
		value := dvid.CopyBinaryData(data[:size])
		data = data[size:]
		if isEdge {
			if edgeProps != nil {
				edgeProps[edgeKey(id1, id2)] = value
			}
		} else if vertexProps != nil {
			vertexProps[id1] = value
		}
	}
	return failed, nil
}

// edgeEndpoints returns the unique endpoint vertices of the edges.
func edgeEndpoints(edges []dvid.Edge) []dvid.VertexID {
	seen := make(map[dvid.VertexID]struct{}, len(edges)*2)
	var endpoints []dvid.VertexID
	for _, edge := range edges {
		if _, ok := seen[edge.Id1]; !ok {
			seen[edge.Id1] = struct{}{}
			endpoints = append(endpoints, edge.Id1)
		}
		if _, ok := seen[edge.Id2]; !ok {
			seen[edge.Id2] = struct{}{}
			endpoints = append(endpoints, edge.Id2)
		}
	}
	return endpoints
}

// edgeKey normalizes an endpoint pair; smaller ID first.
func edgeKey(id1, id2 dvid.VertexID) [2]dvid.VertexID {
	if id2 < id1 {
		id1, id2 = id2, id1
	}
	return [2]dvid.VertexID{id1, id2}
}
