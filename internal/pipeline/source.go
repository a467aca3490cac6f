package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dgallion1/docrank/internal/config"
)

// Source opens the raw bytes of a named document.
type Source interface {
	Open(name string) (io.ReadCloser, error)
}

// DirSource reads documents from a directory.
type DirSource string

func (d DirSource) Open(name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(string(d), filepath.Base(name)))
}

// MemorySource serves uploaded documents.
type MemorySource map[string][]byte

func (m MemorySource) Open(name string) (io.ReadCloser, error) {
	data, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// documentSubdir holds the documents when present under the input directory.
const documentSubdir = "PDFs"

// DocumentDir returns inputDir/PDFs when that directory exists, else inputDir.
func DocumentDir(inputDir string) string {
	sub := filepath.Join(inputDir, documentSubdir)
	if fi, err := os.Stat(sub); err == nil && fi.IsDir() {
		return sub
	}
	return inputDir
}

// LoadBatchInput resolves the batch input directory and its descriptor.
func LoadBatchInput(cfg config.Config) (*Descriptor, Source, error) {
	fi, err := os.Stat(cfg.InputDir)
	if err != nil {
		return nil, nil, &InputError{Path: cfg.InputDir, Err: err}
	}
	if !fi.IsDir() {
		return nil, nil, &InputError{Path: cfg.InputDir, Err: fmt.Errorf("not a directory")}
	}
	desc, err := LoadDescriptor(filepath.Join(cfg.InputDir, cfg.DescriptorName))
	if err != nil {
		return nil, nil, err
	}
	return desc, DirSource(DocumentDir(cfg.InputDir)), nil
}
