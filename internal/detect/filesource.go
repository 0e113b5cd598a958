package detect

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/loomkit/loom/internal/model"
)

// sourceEntry is one artifact's inputs in a design source file.
type sourceEntry struct {
	Tokens       map[string]string `yaml:"tokens"`
	Requirements map[string]string `yaml:"requirements"`
}

// FileSource is a DesignSourceClient backed by a YAML file mapping
// artifact names to their token and requirement sets:
//
//	Button:
//	  tokens:
//	    colors.primary: "#3B82F6"
//	  requirements:
//	    props.variant: primary
//
// The file is re-read on every Fetch so edits show up without a restart.
// Suited to CLI use and tests; a deployment against a live design tool
// supplies its own client.
type FileSource struct {
	path string
	mu   sync.Mutex
}

// NewFileSource creates a file-backed design source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch implements DesignSourceClient.
func (s *FileSource) Fetch(_ context.Context, artifact *model.Artifact) (model.TokenSet, model.RequirementSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("read design source %s: %w", s.path, err)
	}

	var entries map[string]sourceEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, nil, fmt.Errorf("parse design source %s: %w", s.path, err)
	}

	entry, ok := entries[artifact.Name]
	if !ok {
		return nil, nil, fmt.Errorf("design source has no entry for artifact %q", artifact.Name)
	}

	return model.TokenSet(entry.Tokens), model.RequirementSet(entry.Requirements), nil
}
