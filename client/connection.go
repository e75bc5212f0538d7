/*
	This file handles the HTTP exchange with a DVID server.  The
	Transport interface is the boundary to the underlying transport;
	everything above it deals only in verbs, paths, and byte payloads.
*/

package client

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ConnectionMethod is the HTTP verb used for a request.
type ConnectionMethod string

const (
	GET    ConnectionMethod = "GET"
	POST   ConnectionMethod = "POST"
	PUT    ConnectionMethod = "PUT"
	DELETE ConnectionMethod = "DELETE"
)

// WebAPIPath is the prefix for all DVID REST endpoints.
const WebAPIPath = "/api"

// DefaultTimeout bounds one request/response exchange.  Cancellation
// mid-request is not supported; callers wanting shorter bounds should
// configure the transport.
const DefaultTimeout = 5 * time.Minute

// Transport issues a single request with a verb, an api-relative path
// like "/node/<uuid>/grayscale/info", and an optional payload, and
// returns the HTTP status plus response payload.  Errors returned here
// are connection-level failures, distinct from protocol-level errors
// raised by the services built on top.
type Transport interface {
	Do(method ConnectionMethod, path string, payload []byte) (status int, response []byte, err error)
}

// DVIDConnection implements Transport against a DVID server over HTTP.
// One connection is not safe for concurrent use from multiple
// goroutines; each concurrent caller should own its own connection.
type DVIDConnection struct {
	addr   string
	client *http.Client
}

// NewConnection creates a connection to the DVID server at the given
// address, e.g., "http://emdata.int.janelia.org:7000".
func NewConnection(addr string, timeout time.Duration) *DVIDConnection {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &DVIDConnection{
		addr:   strings.TrimSuffix(addr, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// Addr returns the server address for this connection.
func (c *DVIDConnection) Addr() string {
	return c.addr
}

// Do issues one request and reads the full response.  Responses sent
// with gzip content encoding are decompressed transparently.
func (c *DVIDConnection) Do(method ConnectionMethod, path string, payload []byte) (int, []byte, error) {
	url := c.addr + WebAPIPath + path
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(string(method), url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("bad request for %s %s: %v", method, url, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("connection failed on %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return resp.StatusCode, nil, fmt.Errorf("bad gzip response on %s %s: %v", method, url, err)
		}
		defer gzReader.Close()
		reader = gzReader
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("connection failed reading %s %s: %v", method, url, err)
	}
	return resp.StatusCode, data, nil
}
