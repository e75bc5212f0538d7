package dvid

import (
	"bytes"
	"testing"
)

func TestSerializationFormat(t *testing.T) {
	for _, compress := range []Compression{Uncompressed, Snappy, LZ4, Gzip} {
		for _, checksum := range []Checksum{NoChecksum, CRC32} {
			format := EncodeSerializationFormat(compress, checksum)
			gotCompress, gotChecksum := DecodeSerializationFormat(format)
			if gotCompress != compress || gotChecksum != checksum {
				t.Errorf("format round trip: stored (%s, %s), got (%s, %s)",
					compress, checksum, gotCompress, gotChecksum)
			}
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	// compressible data
	data := bytes.Repeat([]byte("foo bar baz "), 200)
	for _, compress := range []Compression{Uncompressed, Snappy, LZ4, Gzip} {
		s, err := SerializeData(data, compress, CRC32)
		if err != nil {
			t.Fatalf("error serializing with %s: %v", compress, err)
		}
		got, gotCompress, err := DeserializeData(s, true)
		if err != nil {
			t.Fatalf("error deserializing with %s: %v", compress, err)
		}
		if gotCompress != compress {
			t.Errorf("stored compression %s, got %s", compress, gotCompress)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("bad round trip with %s: %d bytes in, %d bytes out",
				compress, len(data), len(got))
		}
	}
}

func TestSerializeIncompressible(t *testing.T) {
	// short high-entropy data defeats LZ4 block compression, which must
	// fall back to a verbatim copy
	data := []byte{7, 200, 13, 99, 251, 3, 128, 54, 11, 77}
	s, err := SerializeData(data, LZ4, NoChecksum)
	if err != nil {
		t.Fatalf("error serializing incompressible data: %v", err)
	}
	got, _, err := DeserializeData(s, true)
	if err != nil {
		t.Fatalf("error deserializing incompressible data: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("bad incompressible round trip: got %v, expected %v", got, data)
	}
}

func TestSerializeChecksumFailure(t *testing.T) {
	data := []byte("some stored data that will be corrupted")
	s, err := SerializeData(data, Uncompressed, CRC32)
	if err != nil {
		t.Fatalf("error serializing: %v", err)
	}
	s[len(s)-1] ^= 0xFF
	if _, _, err := DeserializeData(s, true); err == nil {
		t.Errorf("expected checksum failure on corrupted data")
	}
}

func TestDeserializeWithoutUncompress(t *testing.T) {
	data := bytes.Repeat([]byte{42}, 1000)
	s, err := SerializeData(data, Snappy, NoChecksum)
	if err != nil {
		t.Fatalf("error serializing: %v", err)
	}
	stillCompressed, compress, err := DeserializeData(s, false)
	if err != nil {
		t.Fatalf("error deserializing without uncompress: %v", err)
	}
	if compress != Snappy {
		t.Errorf("stored Snappy, got %s", compress)
	}
	if len(stillCompressed) >= len(data) {
		t.Errorf("expected compressed payload smaller than %d bytes, got %d",
			len(data), len(stillCompressed))
	}
}
