/*
Package dvid provides the core types shared across the DVID client:
voxel and block coordinates, graph elements and transaction tokens,
shared immutable binary buffers, blob serialization with optional
compression and checksums, the client error taxonomy, and leveled
logging.
*/
package dvid
