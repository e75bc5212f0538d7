/*
	This file implements direct block transfers, the preferred path for
	bulk I/O.  Blocks are raw server-native layout with no compression,
	channel reordering, or ROI masking: a span of N blocks is N
	fixed-size block payloads back to back, positional, no headers.
*/

package client

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// BlockSpan is a run of contiguous blocks along the X axis backed by a
// single shared buffer.
type BlockSpan struct {
	data       *dvid.BinaryData
	span       int32
	blockBytes int
}

// NewGrayscaleBlockSpan wraps a buffer holding span grayscale blocks of
// the given block edge length.
func NewGrayscaleBlockSpan(data *dvid.BinaryData, span, blockSize int32) (*BlockSpan, error) {
	return newBlockSpan(data, span, blockSize, grayscaleBytesPerVoxel)
}

// NewLabelBlockSpan wraps a buffer holding span label blocks of the
// given block edge length.
func NewLabelBlockSpan(data *dvid.BinaryData, span, blockSize int32) (*BlockSpan, error) {
	return newBlockSpan(data, span, blockSize, labelBytesPerVoxel)
}

func newBlockSpan(data *dvid.BinaryData, span, blockSize, bytesPerVoxel int32) (*BlockSpan, error) {
	if span < 1 {
		return nil, fmt.Errorf("%w: block span must be >= 1, got %d", dvid.ErrInvalidArgument, span)
	}
	blockBytes := int(blockSize) * int(blockSize) * int(blockSize) * int(bytesPerVoxel)
	if data.Length() != blockBytes*int(span) {
		return nil, fmt.Errorf("%w: buffer is %d bytes but %d blocks require %d",
			dvid.ErrSizeMismatch, data.Length(), span, blockBytes*int(span))
	}
	return &BlockSpan{data, span, blockBytes}, nil
}

// Span returns the number of blocks held.
func (s *BlockSpan) Span() int32 {
	return s.span
}

// Data returns the shared buffer holding all blocks back to back.
func (s *BlockSpan) Data() *dvid.BinaryData {
	return s.data
}

// Block returns the raw bytes of the i-th block in the span.
func (s *BlockSpan) Block(i int32) ([]byte, error) {
	if i < 0 || i >= s.span {
		return nil, fmt.Errorf("%w: block %d of %d-block span", dvid.ErrInvalidArgument, i, s.span)
	}
	begin := int(i) * s.blockBytes
	return s.data.Bytes()[begin : begin+s.blockBytes], nil
}

// GetGrayBlocks fetches span contiguous grayscale blocks along X
// starting at the given block coordinate.
func (ns *NodeService) GetGrayBlocks(instance string, start dvid.ChunkPoint3d, span int32) (*BlockSpan, error) {
	return ns.getBlocks(instance, start, span, grayscaleBytesPerVoxel)
}

// GetLabelBlocks fetches span contiguous label blocks along X starting
// at the given block coordinate.
func (ns *NodeService) GetLabelBlocks(instance string, start dvid.ChunkPoint3d, span int32) (*BlockSpan, error) {
	return ns.getBlocks(instance, start, span, labelBytesPerVoxel)
}

// PutGrayBlocks stores a span of grayscale blocks contiguous along X
// starting at the given block coordinate.
func (ns *NodeService) PutGrayBlocks(instance string, blocks *BlockSpan, start dvid.ChunkPoint3d) error {
	return ns.putBlocks(instance, blocks, start, grayscaleBytesPerVoxel)
}

// PutLabelBlocks stores a span of label blocks contiguous along X
// starting at the given block coordinate.
func (ns *NodeService) PutLabelBlocks(instance string, blocks *BlockSpan, start dvid.ChunkPoint3d) error {
	return ns.putBlocks(instance, blocks, start, labelBytesPerVoxel)
}

func (ns *NodeService) blocksPath(instance string, start dvid.ChunkPoint3d, span int32) string {
	coord := fmt.Sprintf("%d_%d_%d", start[0], start[1], start[2])
	return ns.nodePath(instance, "blocks", coord, fmt.Sprintf("%d", span))
}

func (ns *NodeService) getBlocks(instance string, start dvid.ChunkPoint3d, span, bytesPerVoxel int32) (*BlockSpan, error) {
	timedLog := dvid.NewTimeLog()
	if span < 1 {
		return nil, fmt.Errorf("%w: block span must be >= 1, got %d", dvid.ErrInvalidArgument, span)
	}
	data, err := ns.doGet(ns.blocksPath(instance, start, span))
	if err != nil {
		return nil, err
	}
	blocks, err := newBlockSpan(dvid.NewBinaryData(data), span, ns.blockSize, bytesPerVoxel)
	if err != nil {
		return nil, fmt.Errorf("%w: block response was %d bytes for %d blocks of size %d",
			dvid.ErrProtocol, len(data), span, ns.blockSize)
	}
	timedLog.Debugf("retrieved %d blocks at %s from %q (%s)", span, start, instance,
		humanize.Bytes(uint64(len(data))))
	return blocks, nil
}

func (ns *NodeService) putBlocks(instance string, blocks *BlockSpan, start dvid.ChunkPoint3d, bytesPerVoxel int32) error {
	timedLog := dvid.NewTimeLog()
	expected := int(ns.blockSize) * int(ns.blockSize) * int(ns.blockSize) * int(bytesPerVoxel)
	if blocks.blockBytes != expected {
		return fmt.Errorf("%w: span has %d-byte blocks but node uses %d-byte blocks",
			dvid.ErrSizeMismatch, blocks.blockBytes, expected)
	}
	if _, err := ns.doPost(ns.blocksPath(instance, start, blocks.span), blocks.data.Bytes()); err != nil {
		return err
	}
	timedLog.Debugf("stored %d blocks at %s to %q (%s)", blocks.span, start, instance,
		humanize.Bytes(uint64(blocks.data.Length())))
	return nil
}
