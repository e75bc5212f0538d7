package dvid

import (
	"reflect"
	"testing"
)

func TestChunkFlooring(t *testing.T) {
	tests := []struct {
		voxel Point3d
		block ChunkPoint3d
	}{
		{Point3d{0, 0, 0}, ChunkPoint3d{0, 0, 0}},
		{Point3d{31, 31, 31}, ChunkPoint3d{0, 0, 0}},
		{Point3d{32, 32, 32}, ChunkPoint3d{1, 1, 1}},
		{Point3d{-1, -1, -1}, ChunkPoint3d{-1, -1, -1}},
		{Point3d{-32, -32, -32}, ChunkPoint3d{-1, -1, -1}},
		{Point3d{-33, 0, 64}, ChunkPoint3d{-2, 0, 2}},
	}
	for _, tt := range tests {
		if got := tt.voxel.Chunk(32); got != tt.block {
			t.Errorf("voxel %s: got block %s, expected %s", tt.voxel, got, tt.block)
		}
	}
}

func TestMinVoxelPoint(t *testing.T) {
	block := ChunkPoint3d{-2, 0, 3}
	expected := Point3d{-64, 0, 96}
	if got := block.MinVoxelPoint(32); got != expected {
		t.Errorf("block %s: got corner %s, expected %s", block, got, expected)
	}
}

func TestSetMinimumMaximum(t *testing.T) {
	minPt := Point3d{10, -5, 7}
	minPt.SetMinimum(Point3d{3, 20, 7})
	if minPt != (Point3d{3, -5, 7}) {
		t.Errorf("bad SetMinimum: %s", minPt)
	}
	maxPt := Point3d{10, -5, 7}
	maxPt.SetMaximum(Point3d{3, 20, 7})
	if maxPt != (Point3d{10, 20, 7}) {
		t.Errorf("bad SetMaximum: %s", maxPt)
	}
}

func TestSortChunks(t *testing.T) {
	chunks := []ChunkPoint3d{
		{1, 0, 2},
		{0, 1, 0},
		{2, 0, 0},
		{0, 0, 0},
		{0, 0, 2},
	}
	SortChunks(chunks)
	expected := []ChunkPoint3d{
		{0, 0, 0},
		{2, 0, 0},
		{0, 1, 0},
		{0, 0, 2},
		{1, 0, 2},
	}
	if !reflect.DeepEqual(chunks, expected) {
		t.Errorf("bad chunk sort: got %v, expected %v", chunks, expected)
	}
}

func TestPointNdString(t *testing.T) {
	p := PointNd{100, 200, 32}
	if got := p.String("_"); got != "100_200_32" {
		t.Errorf("bad PointNd string: %q", got)
	}
	parsed, err := StringToPointNd("100, 200, 32", ",")
	if err != nil {
		t.Fatalf("error parsing point string: %v", err)
	}
	if !reflect.DeepEqual(parsed, p) {
		t.Errorf("bad parsed point: got %v, expected %v", parsed, p)
	}
	if _, err := StringToPointNd("12_bad", "_"); err == nil {
		t.Errorf("expected error on bad coordinate string")
	}
}

func TestPointNdDuplicate(t *testing.T) {
	p := PointNd{1, 2, 3}
	dup := p.Duplicate()
	dup[0] = 99
	if p[0] != 1 {
		t.Errorf("Duplicate shares backing array")
	}
	if p.Prod() != 6 {
		t.Errorf("bad Prod: %d", p.Prod())
	}
}
