package spec

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

func Decode(r io.Reader) (*Spec, error) {
	s := &Spec{}
	if err := yaml.NewDecoder(r).Decode(s); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("specification is empty")
		}
		return nil, fmt.Errorf("failed to parse specification: %w", err)
	}
	return s, nil
}

// Encode writes s with its original key order.
func Encode(w io.Writer, s *Spec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode specification: %w", err)
	}
	return enc.Close()
}

func Load(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open specification %s: %w", path, err)
	}
	defer f.Close()

	s, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Save(path string, s *Spec) error {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write specification %s: %w", path, err)
	}
	return nil
}
