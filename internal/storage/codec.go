package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soltixdb/fuzzcast/internal/compression"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	// ErrVersionMismatch is returned for records written by another schema
	// or codec version
	ErrVersionMismatch = errors.New("record version mismatch")
	// ErrCorruptRecord is returned when the frame header cannot be read
	ErrCorruptRecord = errors.New("corrupt record")
)

// frame header: magic, codec version, compression algorithm
var magic = [2]byte{'F', 'Z'}

const headerSize = 4

// Codec frames JSON records with a small header and compresses the body
type Codec struct {
	compressor compression.Compressor
}

// NewCodec creates a codec writing with algo. Any supported algorithm is
// accepted on read.
func NewCodec(algo compression.Algorithm) (*Codec, error) {
	c, err := compression.GetCompressor(algo)
	if err != nil {
		return nil, err
	}
	return &Codec{compressor: c}, nil
}

// DefaultCodec writes snappy-compressed records
func DefaultCodec() *Codec {
	return &Codec{compressor: compression.SnappyCompressor{}}
}

// EncodeModel stamps the schema version and encodes m
func (c *Codec) EncodeModel(m ModelRecord) ([]byte, error) {
	m.SchemaVersion = CurrentSchemaVersion
	return c.encode(m)
}

// DecodeModel decodes and version-checks a model record
func (c *Codec) DecodeModel(data []byte) (ModelRecord, error) {
	var m ModelRecord
	if err := c.decode(data, &m); err != nil {
		return ModelRecord{}, err
	}
	if err := checkSchema(m.SchemaVersion); err != nil {
		return ModelRecord{}, err
	}
	return m, nil
}

// EncodeSnapshot stamps the schema version and encodes s
func (c *Codec) EncodeSnapshot(s Snapshot) ([]byte, error) {
	s.SchemaVersion = CurrentSchemaVersion
	return c.encode(s)
}

// DecodeSnapshot decodes a snapshot and validates its system
func (c *Codec) DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := c.decode(data, &s); err != nil {
		return Snapshot{}, err
	}
	if err := checkSchema(s.SchemaVersion); err != nil {
		return Snapshot{}, err
	}
	if s.FIS == nil {
		return Snapshot{}, fmt.Errorf("%w: snapshot has no system", ErrCorruptRecord)
	}
	if err := s.FIS.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("stored system: %w", err)
	}
	return s, nil
}

func (c *Codec) encode(v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	packed, err := c.compressor.Compress(body)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, headerSize+len(packed))
	out = append(out, magic[0], magic[1], CurrentCodecVersion, byte(c.compressor.Algorithm()))
	return append(out, packed...), nil
}

func (c *Codec) decode(data []byte, v interface{}) error {
	if len(data) < headerSize || data[0] != magic[0] || data[1] != magic[1] {
		return ErrCorruptRecord
	}
	if data[2] != CurrentCodecVersion {
		return fmt.Errorf("%w: codec version %d", ErrVersionMismatch, data[2])
	}
	dc, err := compression.GetCompressor(compression.Algorithm(data[3]))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	body, err := dc.Decompress(data[headerSize:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return json.Unmarshal(body, v)
}

func checkSchema(version int) error {
	if version != CurrentSchemaVersion {
		return fmt.Errorf("%w: schema version %d", ErrVersionMismatch, version)
	}
	return nil
}
