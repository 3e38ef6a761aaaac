package compression

import (
	"fmt"

	"github.com/golang/snappy"
)

// SnappyCompressor implements Compressor with the snappy block format
type SnappyCompressor struct{}

// Compress compresses data using Snappy
func (SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

// Decompress decompresses Snappy compressed data
func (SnappyCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress failed: %w", err)
	}
	return out, nil
}

// Algorithm returns Snappy
func (SnappyCompressor) Algorithm() Algorithm {
	return Snappy
}
