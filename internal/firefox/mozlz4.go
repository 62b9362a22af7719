package firefox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// mozLz4Magic opens every mozlz4 file.
var mozLz4Magic = []byte("mozLz40\x00")

const mozLz4HeaderSize = 12 // magic + LE uint32 uncompressed size

// ErrNotMozLz4 is returned for data without the mozlz4 magic.
var ErrNotMozLz4 = errors.New("mozlz4: invalid header magic")

// IsMozLz4 reports whether data starts with the mozlz4 magic.
func IsMozLz4(data []byte) bool {
	return bytes.HasPrefix(data, mozLz4Magic)
}

// DecompressMozLz4 decodes Mozilla's mozlz4 container: the magic, the
// uncompressed size, then one raw lz4 block.
func DecompressMozLz4(data []byte) ([]byte, error) {
	if len(data) < mozLz4HeaderSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	if !IsMozLz4(data) {
		return nil, ErrNotMozLz4
	}

	size := binary.LittleEndian.Uint32(data[8:mozLz4HeaderSize])
	if size == 0 {
		return []byte{}, nil
	}
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[mozLz4HeaderSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

// CompressMozLz4 encodes data as a mozlz4 container.
func CompressMozLz4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	var c lz4.Compressor
	n, err := c.CompressBlock(data, buf)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: compress failed: %w", err)
	}
	// Incompressible input yields n == 0; store it as a literal-only block.
	if n == 0 && len(data) > 0 {
		buf = literalBlock(data)
		n = len(buf)
	}

	out := make([]byte, mozLz4HeaderSize, mozLz4HeaderSize+n)
	copy(out, mozLz4Magic)
	binary.LittleEndian.PutUint32(out[8:], uint32(len(data)))
	return append(out, buf[:n]...), nil
}

// literalBlock builds an lz4 block holding data as a single literal run.
func literalBlock(data []byte) []byte {
	n := len(data)
	out := make([]byte, 0, n+n/255+2)
	if n < 15 {
		out = append(out, byte(n<<4))
	} else {
		out = append(out, 0xF0)
		rest := n - 15
		for rest >= 255 {
			out = append(out, 255)
			rest -= 255
		}
		out = append(out, byte(rest))
	}
	return append(out, data...)
}
