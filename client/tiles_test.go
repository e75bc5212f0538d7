package client

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"net/http"
	"testing"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

func encodeTestTile(t *testing.T, width, height int) ([]byte, []byte) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = byte(i % 251)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("could not encode test tile: %v", err)
	}
	return buf.Bytes(), img.Pix
}

func TestGetTileSlice(t *testing.T) {
	encoded, pixels := encodeTestTile(t, 16, 8)
	ns, transport := newTestNode(t, stubResponse{status: http.StatusOK, data: encoded})

	tile, err := ns.GetTileSlice("tiles", XY, 0, dvid.Point3d{10, 10, 20})
	if err != nil {
		t.Fatalf("error on GetTileSlice: %v", err)
	}
	if got := transport.calls[0].path; got != "/node/3f8c/tiles/tile/xy/0/10_10_20" {
		t.Errorf("bad tile path: %q", got)
	}
	if tile.Dims() != [2]int32{16, 8} {
		t.Errorf("bad tile dims: %v", tile.Dims())
	}
	if !bytes.Equal(tile.Data().Bytes(), pixels) {
		t.Errorf("bad decoded tile pixels")
	}
}

func TestGetTileSliceBinary(t *testing.T) {
	encoded, _ := encodeTestTile(t, 4, 4)
	ns, transport := newTestNode(t, stubResponse{status: http.StatusOK, data: encoded})

	raw, err := ns.GetTileSliceBinary("tiles", YZ, 2, dvid.Point3d{1, 2, 3})
	if err != nil {
		t.Fatalf("error on GetTileSliceBinary: %v", err)
	}
	if got := transport.calls[0].path; got != "/node/3f8c/tiles/tile/yz/2/1_2_3" {
		t.Errorf("bad tile path: %q", got)
	}
	// raw bytes come back exactly as stored
	if !bytes.Equal(raw.Bytes(), encoded) {
		t.Errorf("binary tile was altered in transit")
	}
}

func TestGetTileSliceBadPlane(t *testing.T) {
	ns, transport := newTestNode(t)
	if _, err := ns.GetTileSlice("tiles", Slice2D("xq"), 0, dvid.Point3d{0, 0, 0}); !errors.Is(err, dvid.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown plane, got %v", err)
	}
	if len(transport.calls) != 0 {
		t.Errorf("bad plane issued %d network calls", len(transport.calls))
	}
}

func TestGetTileSliceBadImage(t *testing.T) {
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: []byte("not an image")})
	if _, err := ns.GetTileSlice("tiles", XY, 0, dvid.Point3d{0, 0, 0}); !errors.Is(err, dvid.ErrProtocol) {
		t.Errorf("expected ErrProtocol for undecodable tile, got %v", err)
	}
}
