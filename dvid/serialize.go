/*
	This file supports serialization/deserialization and compression of
	binary blobs with a self-describing one-byte format header.
*/

package dvid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	lz4 "github.com/pierrec/lz4/v4"
)

// Compression is the format of compression for storing data.
// NOTE: Should be no more than 8 (3 bits) of compression types.
type Compression uint8

const (
	Uncompressed Compression = 0
	Snappy                   = 1 << iota
	LZ4
	// Gzip cannot continue the bit pattern: 8 does not fit the 3-bit
	// compression field of SerializationFormat.
	Gzip Compression = 5
)

func (compress Compression) String() string {
	switch compress {
	case Uncompressed:
		return "No compression"
	case Snappy:
		return "Go Snappy compression"
	case LZ4:
		return "Go LZ4 compression"
	case Gzip:
		return "Go Gzip compression"
	default:
		return "Unknown compression"
	}
}

// Checksum is the type of checksum employed for error checking stored data.
// NOTE: Should be no more than 4 (2 bits) of checksum types.
type Checksum uint8

const (
	NoChecksum Checksum = 0
	CRC32               = 1 << iota
)

func (checksum Checksum) String() string {
	switch checksum {
	case NoChecksum:
		return "No checksum"
	case CRC32:
		return "CRC32 checksum"
	default:
		return "Unknown checksum"
	}
}

// SerializationFormat is a single byte combining both compression and checksum methods.
type SerializationFormat uint8

func EncodeSerializationFormat(compress Compression, checksum Checksum) SerializationFormat {
	a := (uint8(compress) & 0x07) << 5
	b := (uint8(checksum) & 0x03) << 3
	return SerializationFormat(a | b)
}

func DecodeSerializationFormat(s SerializationFormat) (compress Compression, checksum Checksum) {
	compress = Compression(uint8(s) >> 5)
	checksum = Checksum((uint8(s) >> 3) & 0x03)
	return
}

// SerializeData serializes a slice of bytes using optional compression, checksum.
func SerializeData(data []byte, compress Compression, checksum Checksum) (s []byte, err error) {
	var buffer bytes.Buffer

	// Store the requested compression and checksum
	format := EncodeSerializationFormat(compress, checksum)
	if err = binary.Write(&buffer, binary.LittleEndian, format); err != nil {
		return
	}

	// Handle compression if requested
	var byteData []byte
	switch compress {
	case Uncompressed:
		byteData = data
	case Snappy:
		byteData = snappy.Encode(nil, data)
	case LZ4:
		byteData, err = lz4Compress(data)
	case Gzip:
		var gzBuf bytes.Buffer
		gw := gzip.NewWriter(&gzBuf)
		if _, err = gw.Write(data); err == nil {
			err = gw.Close()
		}
		byteData = gzBuf.Bytes()
	default:
		err = fmt.Errorf("illegal compression (%s) during serialization", compress)
	}
	if err != nil {
		return
	}

	// Handle checksum if requested
	switch checksum {
	case NoChecksum:
	case CRC32:
		crcChecksum := crc32.ChecksumIEEE(byteData)
		err = binary.Write(&buffer, binary.LittleEndian, crcChecksum)
	default:
		err = fmt.Errorf("illegal checksum (%s) during serialization", checksum)
	}
	if err == nil {
		// Note the actual data is written last, after any checksum, so we don't
		// have to worry about length when deserializing.
		if _, err = buffer.Write(byteData); err == nil {
			s = buffer.Bytes()
		}
	}
	return
}

// DeserializeData deserializes a slice of bytes using stored compression, checksum.
// If the uncompress parameter is false, the data is not uncompressed.
func DeserializeData(s []byte, uncompress bool) (data []byte, compress Compression, err error) {
	buffer := bytes.NewBuffer(s)

	// Get the stored compression and checksum
	var format SerializationFormat
	if err = binary.Read(buffer, binary.LittleEndian, &format); err != nil {
		return
	}
	var checksum Checksum
	compress, checksum = DecodeSerializationFormat(format)

	// Get any checksum.
	var storedCrc32 uint32
	switch checksum {
	case NoChecksum:
	case CRC32:
		err = binary.Read(buffer, binary.LittleEndian, &storedCrc32)
	default:
		err = fmt.Errorf("illegal checksum in deserializing data")
	}
	if err != nil {
		return
	}

	// Get the possibly compressed data.
	cdata := buffer.Bytes()

	// Perform any requested checksum
	switch checksum {
	case CRC32:
		crcChecksum := crc32.ChecksumIEEE(cdata)
		if crcChecksum != storedCrc32 {
			err = fmt.Errorf("bad checksum: stored %x got %x", storedCrc32, crcChecksum)
			return
		}
	}

	// Uncompress if needed
	if !uncompress {
		data = cdata
		return
	}
	switch compress {
	case Uncompressed:
		data = cdata
	case Snappy:
		data, err = snappy.Decode(nil, cdata)
	case LZ4:
		data, err = lz4Uncompress(cdata)
	case Gzip:
		var gr *gzip.Reader
		if gr, err = gzip.NewReader(bytes.NewReader(cdata)); err != nil {
			return
		}
		data, err = io.ReadAll(gr)
		if err == nil {
			err = gr.Close()
		}
	default:
		err = fmt.Errorf("illegal compression format (%d) in deserialization", compress)
	}
	return
}

// lz4Compress block-compresses data, prefixing the original size as a
// little-endian uint32.  Incompressible data is stored verbatim, which
// the decoder detects by the payload length equaling the original size.
func lz4Compress(data []byte) ([]byte, error) {
	origSize := uint32(len(data))
	out := make([]byte, 4+lz4.CompressBlockBound(len(data)))
	binary.LittleEndian.PutUint32(out[0:4], origSize)
	n, err := lz4.CompressBlock(data, out[4:], nil)
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(data) {
		// not compressible
		copy(out[4:], data)
		return out[:4+len(data)], nil
	}
	return out[:4+n], nil
}

func lz4Uncompress(cdata []byte) ([]byte, error) {
	if len(cdata) < 4 {
		return nil, fmt.Errorf("truncated LZ4 payload (%d bytes)", len(cdata))
	}
	origSize := binary.LittleEndian.Uint32(cdata[0:4])
	if uint32(len(cdata)-4) == origSize {
		return cdata[4:], nil
	}
	data := make([]byte, int(origSize))
	n, err := lz4.UncompressBlock(cdata[4:], data)
	if err != nil {
		return nil, err
	}
	if uint32(n) != origSize {
		return nil, fmt.Errorf("LZ4 uncompressed to %d bytes, expected %d", n, origSize)
	}
	return data, nil
}
