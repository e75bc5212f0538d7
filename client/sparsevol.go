/*
	This file derives approximate spatial facts about a labeled body
	from its coarse, block-granularity footprint.  Only block identity
	is known, not per-voxel occupancy, so locations produced here are
	inherently approximate.
*/

package client

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// sparse volume RLE header: payload descriptor, ndims, run dimension,
// reserved byte, uint32 block count, uint32 span count.
const sparseVolHeaderSize = 12

// BodyLocationOptions configures GetBodyLocation.  The zero value (or
// a nil pointer) requests an unrestricted, centroid-near location.
type BodyLocationOptions struct {
	// RestrictZ restricts candidate blocks to those containing voxel
	// plane Z.  If the body has no blocks at that plane, the
	// unrestricted policy applies.
	RestrictZ bool
	Z         int32
}

// BodyExists returns whether the body has a non-empty coarse footprint.
func (ns *NodeService) BodyExists(instance string, bodyID uint64) (bool, error) {
	exists, _, err := ns.GetCoarseBody(instance, bodyID)
	return exists, err
}

// GetCoarseBody retrieves the block-level footprint of a body.  An
// absent body returns false and an empty block list, not an error.
// Blocks are returned sorted by (Z, Y, X) ascending.
func (ns *NodeService) GetCoarseBody(instance string, bodyID uint64) (bool, []dvid.ChunkPoint3d, error) {
	path := ns.nodePath(instance, "sparsevol-coarse", fmt.Sprintf("%d", bodyID))
	data, err := ns.doGet(path)
	if err != nil {
		if errors.Is(err, dvid.ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	blocks, err := decodeCoarseVol(data)
	if err != nil {
		return false, nil, fmt.Errorf("%w: bad sparsevol-coarse payload for body %d: %v",
			dvid.ErrProtocol, bodyID, err)
	}
	if len(blocks) == 0 {
		return false, nil, nil
	}
	dvid.SortChunks(blocks)
	return true, blocks, nil
}

// GetBodyLocation selects a representative voxel inside the body.  The
// result is approximate: without a Z restriction a block near the
// centroid of the footprint is chosen and the returned point is that
// block's center.  With a Z restriction, a block at that plane is used
// if any exists, else the unrestricted policy applies.  Ties between
// equally central blocks resolve to an unspecified candidate.
func (ns *NodeService) GetBodyLocation(instance string, bodyID uint64, opts *BodyLocationOptions) (dvid.Point3d, error) {
	exists, blocks, err := ns.GetCoarseBody(instance, bodyID)
	if err != nil {
		return dvid.Point3d{}, err
	}
	if !exists {
		return dvid.Point3d{}, fmt.Errorf("%w: body %d in %q", dvid.ErrNotFound, bodyID, instance)
	}

	if opts != nil && opts.RestrictZ {
		zblock := dvid.Point3d{0, 0, opts.Z}.Chunk(ns.blockSize)[2]
		var candidates []dvid.ChunkPoint3d
		for _, block := range blocks {
			if block[2] == zblock {
				candidates = append(candidates, block)
			}
		}
		if len(candidates) > 0 {
			block := nearCentroid(candidates)
			center := blockCenter(block, ns.blockSize)
			// stay within the requested plane
			center[2] = opts.Z
			return center, nil
		}
	}
	return blockCenter(nearCentroid(blocks), ns.blockSize), nil
}

// nearCentroid returns the block with minimum squared distance to the
// centroid of the given blocks, first match winning in (Z, Y, X) order.
func nearCentroid(blocks []dvid.ChunkPoint3d) dvid.ChunkPoint3d {
	var cx, cy, cz float64
	for _, block := range blocks {
		cx += float64(block[0])
		cy += float64(block[1])
		cz += float64(block[2])
	}
	n := float64(len(blocks))
	cx, cy, cz = cx/n, cy/n, cz/n

	best := blocks[0]
	bestDist := sqDist(best, cx, cy, cz)
	for _, block := range blocks[1:] {
		if d := sqDist(block, cx, cy, cz); d < bestDist {
			best = block
			bestDist = d
		}
	}
	return best
}

func sqDist(block dvid.ChunkPoint3d, cx, cy, cz float64) float64 {
	dx := float64(block[0]) - cx
	dy := float64(block[1]) - cy
	dz := float64(block[2]) - cz
	return dx*dx + dy*dy + dz*dz
}

func blockCenter(block dvid.ChunkPoint3d, blockSize int32) dvid.Point3d {
	corner := block.MinVoxelPoint(blockSize)
	half := blockSize / 2
	return dvid.Point3d{corner[0] + half, corner[1] + half, corner[2] + half}
}

// decodeCoarseVol parses the sparsevol-coarse RLE encoding: a 12-byte
// header followed by (x, y, z, length) int32 quads giving runs of
// blocks along X.
func decodeCoarseVol(data []byte) ([]dvid.ChunkPoint3d, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < sparseVolHeaderSize {
		return nil, fmt.Errorf("truncated header (%d bytes)", len(data))
	}
	if ndims := data[1]; ndims != 3 {
		return nil, fmt.Errorf("unsupported dimensionality %d", ndims)
	}
	if runDim := data[2]; runDim != 0 {
		return nil, fmt.Errorf("unsupported run dimension %d", runDim)
	}
	numSpans := binary.LittleEndian.Uint32(data[8:12])
	// compare in uint64 so an absurd span count cannot wrap the
	// byte-count arithmetic
	if uint64(len(data)-sparseVolHeaderSize) != uint64(numSpans)*16 {
		return nil, fmt.Errorf("%d spans declared but %d bytes of span data",
			numSpans, len(data)-sparseVolHeaderSize)
	}

	var blocks []dvid.ChunkPoint3d
	off := sparseVolHeaderSize
	for i := uint32(0); i < numSpans; i++ {
		x := int32(binary.LittleEndian.Uint32(data[off:]))
		y := int32(binary.LittleEndian.Uint32(data[off+4:]))
		z := int32(binary.LittleEndian.Uint32(data[off+8:]))
		length := int32(binary.LittleEndian.Uint32(data[off+12:]))
		off += 16
		if length < 0 {
			return nil, fmt.Errorf("negative run length %d", length)
		}
		for dx := int32(0); dx < length; dx++ {
			blocks = append(blocks, dvid.ChunkPoint3d{x + dx, y, z})
		}
	}
	return blocks, nil
}
