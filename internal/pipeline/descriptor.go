package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Descriptor lists the documents of a run and who they are ranked for.
type Descriptor struct {
	ChallengeInfo json.RawMessage `json:"challenge_info,omitempty"`
	Documents     []DocumentRef   `json:"documents"`
	Persona       Persona         `json:"persona"`
	JobToBeDone   JobToBeDone     `json:"job_to_be_done"`
}

type DocumentRef struct {
	Filename string `json:"filename"`
	Title    string `json:"title,omitempty"`
}

type Persona struct {
	Role string `json:"role"`
}

type JobToBeDone struct {
	Task string `json:"task"`
}

// Filenames returns the document names in input order.
func (d *Descriptor) Filenames() []string {
	names := make([]string, len(d.Documents))
	for i, ref := range d.Documents {
		names[i] = ref.Filename
	}
	return names
}

// LoadDescriptor reads and validates the descriptor at path.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return ParseDescriptor(data, path)
}

// ParseDescriptor decodes and validates descriptor JSON. path names the
// source in errors.
func ParseDescriptor(data []byte, path string) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &InputError{Path: path, Err: fmt.Errorf("malformed descriptor: %w", err)}
	}
	if err := d.Validate(); err != nil {
		return nil, &InputError{Path: path, Err: err}
	}
	return &d, nil
}

// Validate checks required fields. Filenames must be plain names without
// directories and may not repeat.
func (d *Descriptor) Validate() error {
	if strings.TrimSpace(d.Persona.Role) == "" {
		return errors.New("persona.role is required")
	}
	if strings.TrimSpace(d.JobToBeDone.Task) == "" {
		return errors.New("job_to_be_done.task is required")
	}
	seen := make(map[string]bool, len(d.Documents))
	for i, ref := range d.Documents {
		name := ref.Filename
		switch {
		case strings.TrimSpace(name) == "":
			return fmt.Errorf("documents[%d].filename is required", i)
		case name != filepath.Base(name) || name == "." || name == "..":
			return fmt.Errorf("documents[%d].filename %q must not contain a path", i, name)
		case seen[name]:
			return fmt.Errorf("documents[%d].filename %q is listed twice", i, name)
		}
		seen[name] = true
	}
	return nil
}
