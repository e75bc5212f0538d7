/*
	This file implements ROI operations.  On the wire an ROI is a JSON
	list of 4-tuples [z, y, x0, x1], each a run of blocks along X; the
	server keys them by Z, then Y, then X, which gives the deterministic
	ordering callers can rely on.
*/

package client

import (
	"encoding/json"
	"fmt"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// roiSpan is the wire tuple (Z, Y, X0, X1).
type roiSpan [4]int32

// Substack is a cube of blocks produced by ROI partitioning.
type Substack struct {
	// Corner is the substack's minimum corner in block coordinates.
	Corner dvid.ChunkPoint3d

	// Size is the substack edge length in blocks.
	Size int32
}

// PostROI uploads a set of block coordinates to the named ROI.  The
// blocks may be in any order and are unioned server-side with any
// existing ROI; this call never removes blocks.
func (ns *NodeService) PostROI(name string, blocks []dvid.ChunkPoint3d) error {
	spans := blocksToSpans(blocks)
	jsonBytes, err := json.Marshal(spans)
	if err != nil {
		return fmt.Errorf("%w: cannot encode ROI spans: %v", dvid.ErrInvalidArgument, err)
	}
	_, err = ns.doPost(ns.nodePath(name, "roi"), jsonBytes)
	return err
}

// GetROI retrieves the named ROI as block coordinates sorted ascending
// by Z, then Y, then X.
func (ns *NodeService) GetROI(name string) ([]dvid.ChunkPoint3d, error) {
	data, err := ns.doGet(ns.nodePath(name, "roi"))
	if err != nil {
		return nil, err
	}
	var spans []roiSpan
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("%w: bad ROI JSON: %v", dvid.ErrProtocol, err)
	}
	blocks := spansToBlocks(spans)
	dvid.SortChunks(blocks)
	return blocks, nil
}

// GetROIPartition tiles the named ROI with substacks of the given edge
// length in blocks and returns the substacks that intersect at least
// one ROI block, ordered by Z, then Y, then X.  The substack grid is
// aligned to multiples of partitionSize in block space.  The returned
// packing factor is the fraction of the substack volume occupied by
// ROI blocks: 1.0 means perfectly dense.  An empty ROI yields no
// substacks and a packing factor of 0.
func (ns *NodeService) GetROIPartition(name string, partitionSize int32) ([]Substack, float64, error) {
	if partitionSize < 1 {
		return nil, 0, fmt.Errorf("%w: partition size must be >= 1, got %d", dvid.ErrInvalidArgument, partitionSize)
	}
	blocks, err := ns.GetROI(name)
	if err != nil {
		return nil, 0, err
	}
	if len(blocks) == 0 {
		return nil, 0, nil
	}

	seen := make(map[dvid.ChunkPoint3d]struct{})
	var corners []dvid.ChunkPoint3d
	for _, block := range blocks {
		corner := dvid.ChunkPoint3d{
			floorAlign(block[0], partitionSize),
			floorAlign(block[1], partitionSize),
			floorAlign(block[2], partitionSize),
		}
		if _, found := seen[corner]; !found {
			seen[corner] = struct{}{}
			corners = append(corners, corner)
		}
	}
	dvid.SortChunks(corners)

	substacks := make([]Substack, len(corners))
	for i, corner := range corners {
		substacks[i] = Substack{corner, partitionSize}
	}
	substackVolume := float64(partitionSize) * float64(partitionSize) * float64(partitionSize)
	packing := float64(len(blocks)) / (float64(len(substacks)) * substackVolume)
	return substacks, packing, nil
}

// ROIPtQuery checks whether each voxel point's containing block lies in
// the named ROI.  The returned list matches the input order exactly,
// including duplicates.
func (ns *NodeService) ROIPtQuery(name string, points []dvid.Point3d) ([]bool, error) {
	jsonBytes, err := json.Marshal(points)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot encode query points: %v", dvid.ErrInvalidArgument, err)
	}
	data, err := ns.doPost(ns.nodePath(name, "ptquery"), jsonBytes)
	if err != nil {
		return nil, err
	}
	var inROI []bool
	if err := json.Unmarshal(data, &inROI); err != nil {
		return nil, fmt.Errorf("%w: bad ptquery JSON: %v", dvid.ErrProtocol, err)
	}
	if len(inROI) != len(points) {
		return nil, fmt.Errorf("%w: ptquery returned %d answers for %d points",
			dvid.ErrProtocol, len(inROI), len(points))
	}
	return inROI, nil
}

// blocksToSpans merges block coordinates into X runs after sorting by
// (Z, Y, X).  Duplicate blocks collapse into the containing run.
func blocksToSpans(blocks []dvid.ChunkPoint3d) []roiSpan {
	sorted := make([]dvid.ChunkPoint3d, len(blocks))
	copy(sorted, blocks)
	dvid.SortChunks(sorted)

	spans := []roiSpan{}
	for _, block := range sorted {
		if n := len(spans); n > 0 {
			last := &spans[n-1]
			if last[0] == block[2] && last[1] == block[1] && block[0] <= last[3]+1 {
				if block[0] > last[3] {
					last[3] = block[0]
				}
				continue
			}
		}
		spans = append(spans, roiSpan{block[2], block[1], block[0], block[0]})
	}
	return spans
}

func spansToBlocks(spans []roiSpan) []dvid.ChunkPoint3d {
	var blocks []dvid.ChunkPoint3d
	for _, span := range spans {
		for x := span[2]; x <= span[3]; x++ {
			blocks = append(blocks, dvid.ChunkPoint3d{x, span[1], span[0]})
		}
	}
	return blocks
}

// floorAlign rounds coord down to a multiple of size, flooring for
// negative coordinates.
func floorAlign(coord, size int32) int32 {
	aligned := (coord / size) * size
	if coord < 0 && coord%size != 0 {
		aligned -= size
	}
	return aligned
}
