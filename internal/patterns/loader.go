package patterns

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes a PatternSet from YAML. Unknown keys are rejected so that a
// misspelled category does not silently leave a list empty.
func Load(r io.Reader) (PatternSet, error) {
	var p PatternSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return PatternSet{}, fmt.Errorf("decode patterns: empty document")
		}
		return PatternSet{}, fmt.Errorf("decode patterns: %w", err)
	}
	return p, nil
}

// LoadFile reads a YAML pattern file. An empty path yields Default().
func LoadFile(path string) (PatternSet, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return PatternSet{}, fmt.Errorf("open patterns file: %w", err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return PatternSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Dump writes p as YAML.
func Dump(w io.Writer, p PatternSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}
	return enc.Close()
}
