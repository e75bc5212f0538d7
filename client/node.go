/*
	This file implements NodeService, the access point for all
	version-node operations.  To stay safe without internal locking,
	instantiate a separate NodeService (and Transport) per concurrent
	caller.
*/

package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// DefaultBlockSize is the block edge length in voxels used by DVID
// servers unless negotiated otherwise from instance metadata.
const DefaultBlockSize = 32

// throttleRetryInterval is how long a throttled request waits before
// re-asking the server for admission after a 503.
var throttleRetryInterval = time.Second

// NodeService accesses data instances of one DVID version node.
type NodeService struct {
	transport Transport
	uuid      string
	blockSize int32
}

// NewNodeService returns a service for the version node with the given
// UUID, verifying that the node exists on the server.  The block edge
// length starts at DefaultBlockSize; use NegotiateBlockSize to adopt an
// instance's configured block size.
func NewNodeService(transport Transport, uuid string) (*NodeService, error) {
	ns := &NodeService{
		transport: transport,
		uuid:      uuid,
		blockSize: DefaultBlockSize,
	}
	status, _, err := transport.Do(GET, ns.nodePath("info"), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: no version node %q on server", dvid.ErrNotFound, uuid)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: node %q info returned status %d", dvid.ErrProtocol, uuid, status)
	}
	return ns, nil
}

// UUID returns the version node identifier this service addresses.
func (ns *NodeService) UUID() string {
	return ns.uuid
}

// BlockSize returns the block edge length in voxels for this node.
func (ns *NodeService) BlockSize() int32 {
	return ns.blockSize
}

// NegotiateBlockSize adopts the block size recorded in the given data
// instance's metadata.  Only cubic blocks are supported.
func (ns *NodeService) NegotiateBlockSize(instance string) error {
	var info struct {
		Extended struct {
			BlockSize [3]int32
		}
	}
	data, err := ns.GetTypeInfo(instance)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("%w: bad instance info JSON for %q: %v", dvid.ErrProtocol, instance, err)
	}
	bs := info.Extended.BlockSize
	if bs[0] <= 0 || bs[0] != bs[1] || bs[0] != bs[2] {
		return fmt.Errorf("%w: instance %q has non-cubic block size %v", dvid.ErrProtocol, instance, bs)
	}
	ns.blockSize = bs[0]
	return nil
}

// GetTypeInfo retrieves metadata for a data instance as raw JSON.
func (ns *NodeService) GetTypeInfo(instance string) (json.RawMessage, error) {
	data, err := ns.doGet(ns.nodePath(instance, "info"))
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// CustomRequest issues a request against any endpoint of this node.
// A request to /node/<uuid>/blah should provide the endpoint as "/blah".
func (ns *NodeService) CustomRequest(method ConnectionMethod, endpoint string, payload *dvid.BinaryData) (*dvid.BinaryData, error) {
	path := "/node/" + ns.uuid + endpoint
	status, data, err := ns.transport.Do(method, path, payload.Bytes())
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status, path); err != nil {
		return nil, err
	}
	return dvid.NewBinaryData(data), nil
}

/*************** key-value interface ***************/

// Put stores a binary blob at the given key, overwriting existing data.
func (ns *NodeService) Put(instance, key string, value *dvid.BinaryData) error {
	_, err := ns.doPost(ns.keyPath(instance, key), value.Bytes())
	return err
}

// Get retrieves the binary blob at the given key.  A missing key
// returns dvid.ErrNotFound.
func (ns *NodeService) Get(instance, key string) (*dvid.BinaryData, error) {
	data, err := ns.doGet(ns.keyPath(instance, key))
	if err != nil {
		return nil, err
	}
	return dvid.NewBinaryData(data), nil
}

// GetJSON unmarshals the value at the given key into v.
func (ns *NodeService) GetJSON(instance, key string, v interface{}) error {
	data, err := ns.doGet(ns.keyPath(instance, key))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: bad JSON at %s/%s: %v", dvid.ErrProtocol, instance, key, err)
	}
	return nil
}

// PutJSON marshals v and stores it at the given key.
func (ns *NodeService) PutJSON(instance, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: cannot marshal value for %s/%s: %v", dvid.ErrInvalidArgument, instance, key, err)
	}
	_, err = ns.doPost(ns.keyPath(instance, key), data)
	return err
}

// PutBlob stores data at the given key wrapped in the self-describing
// serialization format with the requested compression and checksum.
func (ns *NodeService) PutBlob(instance, key string, data []byte, compress dvid.Compression, checksum dvid.Checksum) error {
	serialized, err := dvid.SerializeData(data, compress, checksum)
	if err != nil {
		return err
	}
	_, err = ns.doPost(ns.keyPath(instance, key), serialized)
	return err
}

// GetBlob retrieves and unwraps data stored with PutBlob.
func (ns *NodeService) GetBlob(instance, key string) ([]byte, error) {
	serialized, err := ns.doGet(ns.keyPath(instance, key))
	if err != nil {
		return nil, err
	}
	data, _, err := dvid.DeserializeData(serialized, true)
	if err != nil {
		return nil, fmt.Errorf("%w: bad serialized blob at %s/%s: %v", dvid.ErrProtocol, instance, key, err)
	}
	return data, nil
}

/*************** request plumbing ***************/

func (ns *NodeService) nodePath(parts ...string) string {
	path := "/node/" + ns.uuid
	for _, part := range parts {
		path += "/" + part
	}
	return path
}

func (ns *NodeService) keyPath(instance, key string) string {
	return ns.nodePath(instance, "key", url.PathEscape(key))
}

func (ns *NodeService) doGet(path string) ([]byte, error) {
	return ns.doRequest(GET, path, nil, false)
}

func (ns *NodeService) doPost(path string, payload []byte) ([]byte, error) {
	return ns.doRequest(POST, path, payload, false)
}

// doRequest issues one exchange.  For throttled requests, a 503 means
// the server has deferred admission; the call blocks and re-asks until
// it is our turn.
func (ns *NodeService) doRequest(method ConnectionMethod, path string, payload []byte, throttled bool) ([]byte, error) {
	for {
		status, data, err := ns.transport.Do(method, path, payload)
		if err != nil {
			return nil, err
		}
		if throttled && status == http.StatusServiceUnavailable {
			time.Sleep(throttleRetryInterval)
			continue
		}
		if err := checkStatus(status, path); err != nil {
			return nil, err
		}
		return data, nil
	}
}

func checkStatus(status int, path string) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", dvid.ErrNotFound, path)
	default:
		return fmt.Errorf("%w: status %d on %s", dvid.ErrProtocol, status, path)
	}
}
