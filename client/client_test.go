package client

import (
	"net/http"
	"testing"
)

// stubCall records one exchange issued against the stub transport.
type stubCall struct {
	method  ConnectionMethod
	path    string
	payload []byte
}

// stubResponse is a canned response.  Responses are consumed in order
// and the last one repeats.
type stubResponse struct {
	status int
	data   []byte
	err    error
}

type stubTransport struct {
	calls     []stubCall
	responses []stubResponse
}

func (s *stubTransport) Do(method ConnectionMethod, path string, payload []byte) (int, []byte, error) {
	var copied []byte
	if payload != nil {
		copied = append([]byte(nil), payload...)
	}
	s.calls = append(s.calls, stubCall{method, path, copied})
	if len(s.responses) == 0 {
		return http.StatusOK, nil, nil
	}
	r := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return r.status, r.data, r.err
}

// newTestNode returns a NodeService over a stub transport primed with
// the given responses.  The node existence check issued by
// NewNodeService is handled and discarded.
func newTestNode(t *testing.T, responses ...stubResponse) (*NodeService, *stubTransport) {
	t.Helper()
	transport := &stubTransport{
		responses: append([]stubResponse{{status: http.StatusOK}}, responses...),
	}
	ns, err := NewNodeService(transport, "3f8c")
	if err != nil {
		t.Fatalf("error creating node service: %v", err)
	}
	transport.calls = nil
	return ns, transport
}
