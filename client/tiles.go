/*
	This file retrieves pre-computed 2D tiles.  Tiles are stored
	server-side as encoded images (JPEG or PNG); callers can take the
	raw encoded bytes or have them decoded to 8-bit grayscale pixels.
*/

package client

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	_ "image/jpeg"
	_ "image/png"

	"github.com/janelia-flyem/libdvid-go/dvid"
)

// Slice2D names the axis-aligned plane of a tile.
type Slice2D string

const (
	XY Slice2D = "xy"
	XZ Slice2D = "xz"
	YZ Slice2D = "yz"
)

// Grayscale2D is a decoded tile: 1-byte pixels in row-major order.
type Grayscale2D struct {
	data *dvid.BinaryData
	dims [2]int32
}

// Data returns the shared buffer holding the pixel data.
func (g *Grayscale2D) Data() *dvid.BinaryData {
	return g.data
}

// Dims returns the tile width and height in pixels.
func (g *Grayscale2D) Dims() [2]int32 {
	return g.dims
}

// GetTileSliceBinary retrieves the raw stored tile at the given plane,
// zoom level, and tile coordinate, without decoding the image format.
func (ns *NodeService) GetTileSliceBinary(instance string, plane Slice2D, scaling uint32, tileLoc dvid.Point3d) (*dvid.BinaryData, error) {
	path, err := ns.tilePath(instance, plane, scaling, tileLoc)
	if err != nil {
		return nil, err
	}
	data, err := ns.doGet(path)
	if err != nil {
		return nil, err
	}
	return dvid.NewBinaryData(data), nil
}

// GetTileSlice retrieves a tile and decodes it to grayscale pixels.
// Tiles are typically JPEG for grayscale data, so pixel values may be
// lossy relative to the underlying volume.
func (ns *NodeService) GetTileSlice(instance string, plane Slice2D, scaling uint32, tileLoc dvid.Point3d) (*Grayscale2D, error) {
	encoded, err := ns.GetTileSliceBinary(instance, plane, scaling, tileLoc)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(encoded.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("%w: cannot decode tile image: %v", dvid.ErrProtocol, err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	pixels := make([]byte, width*height)
	if gray, ok := img.(*image.Gray); ok && gray.Stride == width {
		copy(pixels, gray.Pix)
	} else {
		i := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				pixels[i] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
				i++
			}
		}
	}
	return &Grayscale2D{dvid.NewBinaryData(pixels), [2]int32{int32(width), int32(height)}}, nil
}

func (ns *NodeService) tilePath(instance string, plane Slice2D, scaling uint32, tileLoc dvid.Point3d) (string, error) {
	switch plane {
	case XY, XZ, YZ:
	default:
		return "", fmt.Errorf("%w: unknown tile plane %q", dvid.ErrInvalidArgument, plane)
	}
	coord := fmt.Sprintf("%d_%d_%d", tileLoc[0], tileLoc[1], tileLoc[2])
	return ns.nodePath(instance, "tile", string(plane), fmt.Sprintf("%d", scaling), coord), nil
}
