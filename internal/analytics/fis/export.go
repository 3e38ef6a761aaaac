package fis

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// MarshalYAML encodes the shape as a tagged {type, params} pair
func (mf MembershipFunction) MarshalYAML() (interface{}, error) {
	return mf.toWire(), nil
}

// UnmarshalYAML decodes the tagged form back into the matching variant
func (mf *MembershipFunction) UnmarshalYAML(node *yaml.Node) error {
	var w mfWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	decoded, err := w.toMF()
	if err != nil {
		return err
	}
	*mf = decoded
	return nil
}

// Format selects the export encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Export writes the system in the requested encoding
func Export(w io.Writer, f *FIS, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to encode fis as yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to encode fis as json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// Import reads a system written by Export and validates it
func Import(r io.Reader, format Format) (*FIS, error) {
	var f FIS
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode fis yaml: %w", err)
		}
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode fis json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported import format %q", format)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}
