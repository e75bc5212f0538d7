/*
	This file implements volume GETs and PUTs: validation and channel
	mapping of caller-specified dims/offsets, construction of the
	/raw/... endpoints, and the volume codec with optional LZ4
	compression.  All validation happens before any request is issued.
*/

package client

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	lz4 "github.com/pierrec/lz4/v4"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// MaxVolumeElements bounds the element count of any single volume
// request.  It is a hard client-side precondition checked before any
// network call.
const MaxVolumeElements = math.MaxInt32 / 8

const (
	grayscaleBytesPerVoxel = 1
	labelBytesPerVoxel     = 8
)

// VolumeOptions configures a volume GET or PUT.  A nil options value
// uses the defaults: throttling on, identity channel order (X,Y,Z), no
// ROI mask, and compression on for label volumes but off for grayscale.
type VolumeOptions struct {
	// Throttle asks the server to admit concurrent volume requests
	// one at a time.  The call blocks until its turn.
	Throttle bool

	// Compress enables LZ4 compression of the volume on the wire.
	Compress bool

	// ROI optionally names a region of interest masking the operation.
	// GETs return zeros outside the ROI.
	ROI string

	// Channels gives the axis each supplied dimension corresponds to,
	// e.g., {1, 0, 2} requests a volume whose first dimension runs
	// along Y.  Nil means identity order.  PUTs require identity order.
	Channels []uint32
}

func defaultVolumeOptions(compress bool) *VolumeOptions {
	return &VolumeOptions{Throttle: true, Compress: compress}
}

// Voxels wraps a shared binary buffer with its dimensions and element
// width.  The dims are in the channel order used when the volume was
// constructed or requested.
type Voxels struct {
	data          *dvid.BinaryData
	dims          dvid.PointNd
	bytesPerVoxel int32
}

// Data returns the shared buffer holding the voxel data.
func (v Voxels) Data() *dvid.BinaryData {
	return v.data
}

// Dims returns the extents along each dimension.
func (v Voxels) Dims() dvid.PointNd {
	return v.dims
}

// BytesPerVoxel returns the element width in bytes.
func (v Voxels) BytesPerVoxel() int32 {
	return v.bytesPerVoxel
}

// Grayscale3D is a volume of 1-byte grayscale voxels.
type Grayscale3D struct {
	Voxels
}

// Labels3D is a volume of 8-byte label voxels.
type Labels3D struct {
	Voxels
}

// NewGrayscale3D wraps a buffer as a grayscale volume, verifying the
// buffer length matches the dimensions.
func NewGrayscale3D(data *dvid.BinaryData, dims dvid.PointNd) (*Grayscale3D, error) {
	voxels, err := newVoxels(data, dims, grayscaleBytesPerVoxel)
	if err != nil {
		return nil, err
	}
	return &Grayscale3D{voxels}, nil
}

// NewLabels3D wraps a buffer as a label volume, verifying the buffer
// length matches the dimensions.
func NewLabels3D(data *dvid.BinaryData, dims dvid.PointNd) (*Labels3D, error) {
	voxels, err := newVoxels(data, dims, labelBytesPerVoxel)
	if err != nil {
		return nil, err
	}
	return &Labels3D{voxels}, nil
}

func newVoxels(data *dvid.BinaryData, dims dvid.PointNd, bytesPerVoxel int32) (Voxels, error) {
	count, err := checkedElementCount(dims)
	if err != nil {
		return Voxels{}, err
	}
	if int64(data.Length()) != count*int64(bytesPerVoxel) {
		return Voxels{}, fmt.Errorf("%w: buffer is %d bytes but dims %s require %d",
			dvid.ErrSizeMismatch, data.Length(), dims.String("x"), count*int64(bytesPerVoxel))
	}
	return Voxels{data, dims.Duplicate(), bytesPerVoxel}, nil
}

/*************** coordinate/channel mapping ***************/

// mapChannels validates dims, offset, and channels together and
// returns the canonical bounding box under identity (X,Y,Z...) axis
// order by inverse-permuting the channel order.
func mapChannels(dims, offset dvid.PointNd, channels []uint32) (canonDims, canonOffset dvid.PointNd, err error) {
	n := len(dims)
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 dims, got %d", dvid.ErrInvalidArgument, n)
	}
	if len(offset) != n {
		return nil, nil, fmt.Errorf("%w: %d dims but %d offset coords", dvid.ErrInvalidArgument, n, len(offset))
	}
	if channels != nil && len(channels) != n {
		return nil, nil, fmt.Errorf("%w: %d dims but %d channels", dvid.ErrInvalidArgument, n, len(channels))
	}
	for i, d := range dims {
		if d <= 0 {
			return nil, nil, fmt.Errorf("%w: dimension %d is %d", dvid.ErrInvalidArgument, i, d)
		}
	}
	if _, err = checkedElementCount(dims); err != nil {
		return nil, nil, err
	}

	canonDims = make(dvid.PointNd, n)
	canonOffset = make(dvid.PointNd, n)
	if channels == nil {
		copy(canonDims, dims)
		copy(canonOffset, offset)
		return canonDims, canonOffset, nil
	}
	seen := make([]bool, n)
	for i, axis := range channels {
		if int(axis) >= n {
			return nil, nil, fmt.Errorf("%w: channel %d out of range for %d dims", dvid.ErrInvalidArgument, axis, n)
		}
		if seen[axis] {
			return nil, nil, fmt.Errorf("%w: channel %d repeated", dvid.ErrInvalidArgument, axis)
		}
		seen[axis] = true
		canonDims[axis] = dims[i]
		canonOffset[axis] = offset[i]
	}
	return canonDims, canonOffset, nil
}

// checkedElementCount returns the element count of the dims, enforcing
// the overflow guard.
func checkedElementCount(dims dvid.PointNd) (int64, error) {
	count := int64(1)
	for _, d := range dims {
		if d <= 0 {
			return 0, fmt.Errorf("%w: non-positive dimension %d", dvid.ErrInvalidArgument, d)
		}
		count *= int64(d)
		if count > MaxVolumeElements {
			return 0, fmt.Errorf("%w: requested %d elements exceeds maximum %d",
				dvid.ErrInvalidArgument, count, MaxVolumeElements)
		}
	}
	return count, nil
}

// checkBlockAligned verifies every offset and dimension component in
// canonical order is a multiple of the block size.
func checkBlockAligned(canonDims, canonOffset dvid.PointNd, blockSize int32) error {
	for i := range canonDims {
		if canonOffset[i]%blockSize != 0 || canonDims[i]%blockSize != 0 {
			return fmt.Errorf("%w: offset %s and dims %s must be multiples of %d",
				dvid.ErrBadAlignment, canonOffset.String(","), canonDims.String(","), blockSize)
		}
	}
	return nil
}

// volumePath constructs the REST endpoint for a volume GET or PUT.
func (ns *NodeService) volumePath(instance string, dims, offset dvid.PointNd, channels []uint32, throttle, compress bool, roi string) string {
	dimsStr := ""
	for i := range dims {
		if i > 0 {
			dimsStr += "_"
		}
		axis := uint32(i)
		if channels != nil {
			axis = channels[i]
		}
		dimsStr += fmt.Sprintf("%d", axis)
	}
	path := ns.nodePath(instance, "raw", dimsStr, dims.String("_"), offset.String("_"))
	query := ""
	if throttle {
		query = appendQuery(query, "throttle=on")
	}
	if compress {
		query = appendQuery(query, "compress=lz4")
	}
	if roi != "" {
		query = appendQuery(query, "roi="+roi)
	}
	return path + query
}

func appendQuery(query, param string) string {
	if query == "" {
		return "?" + param
	}
	return query + "&" + param
}

/*************** volume operations ***************/

// GetGray3D retrieves a 3D 1-byte grayscale volume of the given
// dimensions at the given voxel offset, both in the channel order of
// opts (default X,Y,Z).
func (ns *NodeService) GetGray3D(instance string, dims, offset dvid.PointNd, opts *VolumeOptions) (*Grayscale3D, error) {
	if opts == nil {
		opts = defaultVolumeOptions(false)
	}
	data, err := ns.getVolume(instance, dims, offset, grayscaleBytesPerVoxel, opts)
	if err != nil {
		return nil, err
	}
	return &Grayscale3D{Voxels{data, dims.Duplicate(), grayscaleBytesPerVoxel}}, nil
}

// GetLabels3D retrieves a 3D 8-byte label volume of the given
// dimensions at the given voxel offset, both in the channel order of
// opts (default X,Y,Z).
func (ns *NodeService) GetLabels3D(instance string, dims, offset dvid.PointNd, opts *VolumeOptions) (*Labels3D, error) {
	if opts == nil {
		opts = defaultVolumeOptions(true)
	}
	data, err := ns.getVolume(instance, dims, offset, labelBytesPerVoxel, opts)
	if err != nil {
		return nil, err
	}
	return &Labels3D{Voxels{data, dims.Duplicate(), labelBytesPerVoxel}}, nil
}

// PutGray3D stores a 3D grayscale volume at the given voxel offset.
// Offset and dimensions must be block-aligned.
func (ns *NodeService) PutGray3D(instance string, volume *Grayscale3D, offset dvid.PointNd, opts *VolumeOptions) error {
	if opts == nil {
		opts = defaultVolumeOptions(false)
	}
	return ns.putVolume(instance, volume.Voxels, offset, opts)
}

// PutLabels3D stores a 3D label volume at the given voxel offset.
// Offset and dimensions must be block-aligned.
func (ns *NodeService) PutLabels3D(instance string, volume *Labels3D, offset dvid.PointNd, opts *VolumeOptions) error {
	if opts == nil {
		opts = defaultVolumeOptions(true)
	}
	return ns.putVolume(instance, volume.Voxels, offset, opts)
}

// GetLabelByLocation returns the label id at the given voxel, 0 if
// no label is found there.
func (ns *NodeService) GetLabelByLocation(instance string, x, y, z int32) (uint64, error) {
	opts := &VolumeOptions{}
	volume, err := ns.GetLabels3D(instance, dvid.PointNd{1, 1, 1}, dvid.PointNd{x, y, z}, opts)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(volume.Data().Bytes()), nil
}

func (ns *NodeService) getVolume(instance string, dims, offset dvid.PointNd, bytesPerVoxel int32, opts *VolumeOptions) (*dvid.BinaryData, error) {
	timedLog := dvid.NewTimeLog()

	count, err := checkedElementCount(dims)
	if err != nil {
		return nil, err
	}
	if _, _, err := mapChannels(dims, offset, opts.Channels); err != nil {
		return nil, err
	}
	expected := count * int64(bytesPerVoxel)

	path := ns.volumePath(instance, dims, offset, opts.Channels, opts.Throttle, opts.Compress, opts.ROI)
	data, err := ns.doRequest(GET, path, nil, opts.Throttle)
	if err != nil {
		return nil, err
	}

	if opts.Compress {
		uncompressed := make([]byte, expected)
		n, err := lz4.UncompressBlock(data, uncompressed)
		if err != nil {
			return nil, fmt.Errorf("%w: bad LZ4 volume payload: %v", dvid.ErrProtocol, err)
		}
		if int64(n) != expected {
			return nil, fmt.Errorf("%w: volume uncompressed to %d bytes, expected %d", dvid.ErrProtocol, n, expected)
		}
		data = uncompressed
	} else if int64(len(data)) != expected {
		return nil, fmt.Errorf("%w: volume response was %d bytes, expected %d", dvid.ErrProtocol, len(data), expected)
	}

	timedLog.Debugf("retrieved %s volume from %q (%s)", dims.String("x"), instance,
		humanize.Bytes(uint64(expected)))
	return dvid.NewBinaryData(data), nil
}

func (ns *NodeService) putVolume(instance string, volume Voxels, offset dvid.PointNd, opts *VolumeOptions) error {
	timedLog := dvid.NewTimeLog()

	if opts.Channels != nil {
		for i, axis := range opts.Channels {
			if axis != uint32(i) {
				return fmt.Errorf("%w: volume PUTs require identity channel order", dvid.ErrInvalidArgument)
			}
		}
	}
	canonDims, canonOffset, err := mapChannels(volume.dims, offset, opts.Channels)
	if err != nil {
		return err
	}
	if err := checkBlockAligned(canonDims, canonOffset, ns.blockSize); err != nil {
		return err
	}

	payload := volume.data.Bytes()
	compress := opts.Compress
	if compress {
		compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, compressed, nil)
		if err != nil {
			return fmt.Errorf("LZ4 compression failed: %v", err)
		}
		if n == 0 {
			// incompressible; send raw
			compress = false
		} else {
			payload = compressed[:n]
		}
	}

	path := ns.volumePath(instance, volume.dims, offset, nil, opts.Throttle, compress, opts.ROI)
	if _, err := ns.doRequest(POST, path, payload, opts.Throttle); err != nil {
		return err
	}
	timedLog.Debugf("stored %s volume to %q (%s on wire)", volume.dims.String("x"), instance,
		humanize.Bytes(uint64(len(payload))))
	return nil
}
