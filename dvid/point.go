/*
	This file defines voxel-space and block-space coordinates.  Voxel
	points are in global voxel coordinates while chunk points are in
	block coordinates, i.e., voxel coordinate divided by the block size
	with flooring.
*/

package dvid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CoordinateBits is the number of bits used for each coordinate.
const CoordinateBits = 32

// Point3d is a voxel coordinate.
type Point3d [3]int32

// SetMinimum sets the point to the minimum elements of current and passed points.
func (p *Point3d) SetMinimum(p2 Point3d) {
	if p[0] > p2[0] {
		p[0] = p2[0]
	}
	if p[1] > p2[1] {
		p[1] = p2[1]
	}
	if p[2] > p2[2] {
		p[2] = p2[2]
	}
}

// SetMaximum sets the point to the maximum elements of current and passed points.
func (p *Point3d) SetMaximum(p2 Point3d) {
	if p[0] < p2[0] {
		p[0] = p2[0]
	}
	if p[1] < p2[1] {
		p[1] = p2[1]
	}
	if p[2] < p2[2] {
		p[2] = p2[2]
	}
}

// Chunk returns the block coordinate of the block containing this voxel,
// flooring for negative coordinates.
func (p Point3d) Chunk(blockSize int32) ChunkPoint3d {
	return ChunkPoint3d{
		chunkOf(p[0], blockSize),
		chunkOf(p[1], blockSize),
		chunkOf(p[2], blockSize),
	}
}

func (p Point3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p[0], p[1], p[2])
}

func chunkOf(coord, size int32) int32 {
	if coord < 0 {
		return (coord - size + 1) / size
	}
	return coord / size
}

// ChunkPoint3d is a block coordinate, the voxel coordinate in units of
// the block size.
type ChunkPoint3d [3]int32

// MinVoxelPoint returns the voxel coordinate of this block's minimum corner.
func (c ChunkPoint3d) MinVoxelPoint(blockSize int32) Point3d {
	return Point3d{c[0] * blockSize, c[1] * blockSize, c[2] * blockSize}
}

func (c ChunkPoint3d) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c[0], c[1], c[2])
}

// ByZYX implements a sort of 3d points by Z, then Y, then X, the same
// total order the server uses for block keys.
type ByZYX []Point3d

func (p ByZYX) Len() int      { return len(p) }
func (p ByZYX) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p ByZYX) Less(i, j int) bool {
	return lessZYX([3]int32(p[i]), [3]int32(p[j]))
}

// ChunksByZYX sorts block coordinates by Z, then Y, then X.
type ChunksByZYX []ChunkPoint3d

func (p ChunksByZYX) Len() int      { return len(p) }
func (p ChunksByZYX) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p ChunksByZYX) Less(i, j int) bool {
	return lessZYX([3]int32(p[i]), [3]int32(p[j]))
}

func lessZYX(a, b [3]int32) bool {
	if a[2] != b[2] {
		return a[2] < b[2]
	}
	if a[1] != b[1] {
		return a[1] < b[1]
	}
	return a[0] < b[0]
}

// SortChunks sorts block coordinates in place by (Z, Y, X) ascending.
func SortChunks(chunks []ChunkPoint3d) {
	sort.Sort(ChunksByZYX(chunks))
}

// PointNd is an n-dimensional point, used for dims and offsets whose
// axis order is caller-specified.
type PointNd []int32

// NumDims returns the dimensionality of this point.
func (p PointNd) NumDims() uint8 {
	return uint8(len(p))
}

// Prod returns the product of the point's components.
func (p PointNd) Prod() int64 {
	total := int64(1)
	for _, v := range p {
		total *= int64(v)
	}
	return total
}

// Duplicate returns a copy of the point without any shared slice references.
func (p PointNd) Duplicate() PointNd {
	dup := make(PointNd, len(p))
	copy(dup, p)
	return dup
}

// String returns the point as coordinates separated by the given string,
// e.g., "100_200_32" for an underscore separator.
func (p PointNd) String(separator string) string {
	elems := make([]string, len(p))
	for i, v := range p {
		elems[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(elems, separator)
}

// StringToPointNd parses a separated coordinate string like "100,200,32".
func StringToPointNd(str, separator string) (p PointNd, err error) {
	elems := strings.Split(str, separator)
	p = make(PointNd, len(elems))
	for i, elem := range elems {
		var v int64
		v, err = strconv.ParseInt(strings.TrimSpace(elem), 10, CoordinateBits)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate string %q: %v", str, err)
		}
		p[i] = int32(v)
	}
	return p, nil
}
