package client

import (
	"encoding/binary"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// encodeCoarseVol builds a sparsevol-coarse payload from X runs of
// blocks, each run given as (x, y, z, length).
func encodeCoarseVol(runs [][4]int32) []byte {
	var numBlocks uint32
	for _, run := range runs {
		numBlocks += uint32(run[3])
	}
	buf := make([]byte, sparseVolHeaderSize+len(runs)*16)
	buf[1] = 3 // ndims
	buf[2] = 0 // runs along X
	binary.LittleEndian.PutUint32(buf[4:], numBlocks)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(runs)))
	off := sparseVolHeaderSize
	for _, run := range runs {
		for _, v := range run {
			binary.LittleEndian.PutUint32(buf[off:], uint32(v))
			off += 4
		}
	}
	return buf
}

func TestGetCoarseBody(t *testing.T) {
	payload := encodeCoarseVol([][4]int32{
		{0, 0, 1, 2},
		{5, 1, 0, 1},
	})
	ns, transport := newTestNode(t, stubResponse{status: http.StatusOK, data: payload})

	exists, blocks, err := ns.GetCoarseBody("bodies", 982)
	if err != nil {
		t.Fatalf("error on GetCoarseBody: %v", err)
	}
	if !exists {
		t.Fatalf("expected body to exist")
	}
	if got := transport.calls[0].path; got != "/node/3f8c/bodies/sparsevol-coarse/982" {
		t.Errorf("bad sparsevol path: %q", got)
	}
	expected := []dvid.ChunkPoint3d{
		{5, 1, 0},
		{0, 0, 1},
		{1, 0, 1},
	}
	if !reflect.DeepEqual(blocks, expected) {
		t.Errorf("bad coarse blocks: got %v, expected %v", blocks, expected)
	}
}

func TestGetCoarseBodyAbsent(t *testing.T) {
	ns, _ := newTestNode(t, stubResponse{status: http.StatusNotFound})
	exists, blocks, err := ns.GetCoarseBody("bodies", 1)
	if err != nil {
		t.Fatalf("absent body should not error, got %v", err)
	}
	if exists || blocks != nil {
		t.Errorf("expected absent body, got exists=%v blocks=%v", exists, blocks)
	}

	found, err := ns.BodyExists("bodies", 1)
	if err != nil || found {
		t.Errorf("expected BodyExists false, got %v, %v", found, err)
	}
}

func TestGetCoarseBodyBadPayload(t *testing.T) {
	bad := encodeCoarseVol([][4]int32{{0, 0, 0, 1}})
	bad[1] = 2 // not a 3d payload
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: bad})
	if _, _, err := ns.GetCoarseBody("bodies", 5); !errors.Is(err, dvid.ErrProtocol) {
		t.Errorf("expected ErrProtocol on bad payload, got %v", err)
	}
}

func TestGetCoarseBodyAbsurdSpanCount(t *testing.T) {
	// one span's worth of data but a count whose byte total wraps
	// 32-bit arithmetic back to 16
	payload := encodeCoarseVol([][4]int32{{0, 0, 0, 1}})
	binary.LittleEndian.PutUint32(payload[8:], 0x10000001)
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: payload})
	if _, _, err := ns.GetCoarseBody("bodies", 5); !errors.Is(err, dvid.ErrProtocol) {
		t.Errorf("expected ErrProtocol on absurd span count, got %v", err)
	}
}

func TestGetBodyLocation(t *testing.T) {
	// blocks along X at (0..4, 0, 0); centroid is block (2,0,0)
	payload := encodeCoarseVol([][4]int32{{0, 0, 0, 5}})
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: payload})

	location, err := ns.GetBodyLocation("bodies", 7, nil)
	if err != nil {
		t.Fatalf("error on GetBodyLocation: %v", err)
	}
	expected := dvid.Point3d{2*32 + 16, 16, 16}
	if location != expected {
		t.Errorf("bad body location: got %s, expected %s", location, expected)
	}
}

func TestGetBodyLocationRestrictZ(t *testing.T) {
	payload := encodeCoarseVol([][4]int32{
		{0, 0, 0, 3},
		{10, 0, 2, 1},
	})
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: payload})

	// plane 70 is in block z=2, where only block (10,0,2) lives
	opts := &BodyLocationOptions{RestrictZ: true, Z: 70}
	location, err := ns.GetBodyLocation("bodies", 7, opts)
	if err != nil {
		t.Fatalf("error on restricted GetBodyLocation: %v", err)
	}
	expected := dvid.Point3d{10*32 + 16, 16, 70}
	if location != expected {
		t.Errorf("bad restricted location: got %s, expected %s", location, expected)
	}
}

func TestGetBodyLocationRestrictZMiss(t *testing.T) {
	payload := encodeCoarseVol([][4]int32{{0, 0, 0, 1}})
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: payload})

	// no blocks at plane 1000, so the unrestricted policy applies
	opts := &BodyLocationOptions{RestrictZ: true, Z: 1000}
	location, err := ns.GetBodyLocation("bodies", 7, opts)
	if err != nil {
		t.Fatalf("error on restricted GetBodyLocation: %v", err)
	}
	if location != (dvid.Point3d{16, 16, 16}) {
		t.Errorf("bad fallback location: %s", location)
	}
}

func TestGetBodyLocationAbsent(t *testing.T) {
	ns, _ := newTestNode(t, stubResponse{status: http.StatusNotFound})
	if _, err := ns.GetBodyLocation("bodies", 7, nil); !errors.Is(err, dvid.ErrNotFound) {
		t.Errorf("expected ErrNotFound for absent body, got %v", err)
	}
}
