package compression

import (
	"bytes"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{in: "", want: Snappy},
		{in: "snappy", want: Snappy},
		{in: " NONE ", want: None},
		{in: "zstd", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAlgorithm(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCompressorsRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte(`{"name":"low","params":[0,0.25,0.5]}`), 64)

	for _, algo := range []Algorithm{None, Snappy} {
		t.Run(algo.String(), func(t *testing.T) {
			c, err := GetCompressor(algo)
			if err != nil {
				t.Fatalf("GetCompressor failed: %v", err)
			}
			if c.Algorithm() != algo {
				t.Errorf("expected %v, got %v", algo, c.Algorithm())
			}

			packed, err := c.Compress(data)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if algo == Snappy && len(packed) >= len(data) {
				t.Errorf("expected repetitive data to shrink, %d >= %d", len(packed), len(data))
			}

			out, err := c.Decompress(packed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Error("round trip changed the payload")
			}
		})
	}
}

func TestSnappyRejectsGarbage(t *testing.T) {
	if _, err := (SnappyCompressor{}).Decompress([]byte{0xff, 0xff, 0xff, 0xff, 0x0f}); err == nil {
		t.Error("expected error for corrupt input")
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := GetCompressor(Algorithm(9)); err == nil {
		t.Error("expected error for unknown algorithm")
	}
	if Algorithm(9).String() != "algorithm(9)" {
		t.Errorf("unexpected name %s", Algorithm(9).String())
	}
}
