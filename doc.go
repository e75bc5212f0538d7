/*
libdvid-go provides client access to DVID servers, which store large
versioned image volumes and derived data like ROIs, sparse label
bodies, label graphs, and key-value data.

The client package holds the services: ServerService for server-wide
queries and NodeService for all operations on one version node.  The
dvid package holds the shared types: points and block coordinates,
graph elements, binary buffers, and the self-describing serialization
format used for compressed blobs.

A typical session connects, picks a version node, and reads a subvolume:

	conn := client.NewConnection("http://emdata.int.janelia.org:7000", 0)
	ns, err := client.NewNodeService(conn, "3f8c")
	if err != nil { ... }
	gray, err := ns.GetGray3D("grayscale", dims, offset, nil)

Connections are not safe for concurrent use; give each concurrent
goroutine its own connection and NodeService.
*/
package libdvid
