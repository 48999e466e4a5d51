package schema

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a schema definition file.
//
//	blocks:
//	  - name: meta-fields/metadata-block
//	    renderer: list
//	    fields:
//	      - key: _meta_fields_book_author
//	        label: Book author
//	        storage: meta
//	        type: text
type File struct {
	Blocks []Block `yaml:"blocks"`
}

// Load decodes block definitions from r and registers them.
func Load(r io.Reader, reg *Registry) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("invalid schema file: %w", err)
	}

	for _, b := range f.Blocks {
		if err := reg.RegisterBlock(b); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a YAML schema file into the registry.
func LoadFile(path string, reg *Registry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()
	return Load(f, reg)
}
