package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

func TestPostROISpanMerging(t *testing.T) {
	ns, transport := newTestNode(t)

	// unsorted with a duplicate; {1,1,0} and {2,1,0} must merge into one run
	blocks := []dvid.ChunkPoint3d{
		{2, 1, 0},
		{5, 0, 1},
		{1, 1, 0},
		{1, 1, 0},
	}
	if err := ns.PostROI("myroi", blocks); err != nil {
		t.Fatalf("error on PostROI: %v", err)
	}
	if got := transport.calls[0].path; got != "/node/3f8c/myroi/roi" {
		t.Errorf("bad ROI path: %q", got)
	}
	var spans [][4]int32
	if err := json.Unmarshal(transport.calls[0].payload, &spans); err != nil {
		t.Fatalf("bad ROI payload JSON: %v", err)
	}
	expected := [][4]int32{
		{0, 1, 1, 2},
		{1, 0, 5, 5},
	}
	if !reflect.DeepEqual(spans, expected) {
		t.Errorf("bad ROI spans: got %v, expected %v", spans, expected)
	}
}

func TestGetROIOrdering(t *testing.T) {
	roiJSON := []byte(`[[1, 0, 5, 6], [0, 2, 1, 1]]`)
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: roiJSON})

	blocks, err := ns.GetROI("myroi")
	if err != nil {
		t.Fatalf("error on GetROI: %v", err)
	}
	expected := []dvid.ChunkPoint3d{
		{1, 2, 0},
		{5, 0, 1},
		{6, 0, 1},
	}
	if !reflect.DeepEqual(blocks, expected) {
		t.Errorf("bad ROI blocks: got %v, expected %v", blocks, expected)
	}
}

func TestGetROIPartitionDense(t *testing.T) {
	// a full 2x2x2 block cube at origin
	var spans [][4]int32
	for z := int32(0); z < 2; z++ {
		for y := int32(0); y < 2; y++ {
			spans = append(spans, [4]int32{z, y, 0, 1})
		}
	}
	roiJSON, _ := json.Marshal(spans)
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: roiJSON})

	substacks, packing, err := ns.GetROIPartition("myroi", 2)
	if err != nil {
		t.Fatalf("error on GetROIPartition: %v", err)
	}
	if len(substacks) != 1 {
		t.Fatalf("expected 1 substack, got %d", len(substacks))
	}
	if substacks[0] != (Substack{dvid.ChunkPoint3d{0, 0, 0}, 2}) {
		t.Errorf("bad substack: %+v", substacks[0])
	}
	if packing != 1.0 {
		t.Errorf("expected packing factor 1.0 for dense cube, got %g", packing)
	}
}

func TestGetROIPartitionNegativeCoords(t *testing.T) {
	// single block at (-1,-1,-1); grid is anchored at multiples of the
	// partition size, so its substack corner floors to (-2,-2,-2)
	roiJSON := []byte(`[[-1, -1, -1, -1]]`)
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: roiJSON})

	substacks, packing, err := ns.GetROIPartition("myroi", 2)
	if err != nil {
		t.Fatalf("error on GetROIPartition: %v", err)
	}
	if len(substacks) != 1 || substacks[0].Corner != (dvid.ChunkPoint3d{-2, -2, -2}) {
		t.Errorf("bad negative-coordinate substacks: %+v", substacks)
	}
	if packing != 1.0/8.0 {
		t.Errorf("expected packing factor 0.125, got %g", packing)
	}
}

func TestGetROIPartitionEmpty(t *testing.T) {
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: []byte(`[]`)})
	substacks, packing, err := ns.GetROIPartition("myroi", 4)
	if err != nil {
		t.Fatalf("error on empty GetROIPartition: %v", err)
	}
	if len(substacks) != 0 || packing != 0 {
		t.Errorf("expected no substacks and packing 0, got %d substacks and %g", len(substacks), packing)
	}
}

func TestGetROIPartitionBadSize(t *testing.T) {
	ns, transport := newTestNode(t)
	if _, _, err := ns.GetROIPartition("myroi", 0); !errors.Is(err, dvid.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for partition size 0, got %v", err)
	}
	if len(transport.calls) != 0 {
		t.Errorf("invalid partition size issued %d network calls", len(transport.calls))
	}
}

func TestROIPtQuery(t *testing.T) {
	ns, transport := newTestNode(t, stubResponse{status: http.StatusOK, data: []byte(`[true, false, true]`)})

	points := []dvid.Point3d{{1, 2, 3}, {500, 500, 500}, {1, 2, 3}}
	inROI, err := ns.ROIPtQuery("myroi", points)
	if err != nil {
		t.Fatalf("error on ROIPtQuery: %v", err)
	}
	if !reflect.DeepEqual(inROI, []bool{true, false, true}) {
		t.Errorf("bad ptquery result: %v", inROI)
	}
	if got := transport.calls[0].path; got != "/node/3f8c/myroi/ptquery" {
		t.Errorf("bad ptquery path: %q", got)
	}
	var sent [][3]int32
	if err := json.Unmarshal(transport.calls[0].payload, &sent); err != nil {
		t.Fatalf("bad ptquery payload JSON: %v", err)
	}
	if len(sent) != 3 || sent[1] != [3]int32{500, 500, 500} {
		t.Errorf("bad ptquery payload: %v", sent)
	}
}

func TestROIPtQueryLengthMismatch(t *testing.T) {
	ns, _ := newTestNode(t, stubResponse{status: http.StatusOK, data: []byte(`[true]`)})
	points := []dvid.Point3d{{1, 2, 3}, {4, 5, 6}}
	if _, err := ns.ROIPtQuery("myroi", points); !errors.Is(err, dvid.ErrProtocol) {
		t.Errorf("expected ErrProtocol on answer count mismatch, got %v", err)
	}
}
