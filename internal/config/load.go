package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zacczakk/workflows/internal/models"
)

// Error is a configuration validation failure pointing at the offending
// document path (e.g. "workflows.daily-sync.schedule").
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "config: " + e.Reason
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Reason)
}

// Load reads and validates the workflow document at path. The document is
// read fresh on every command invocation and never written back.
func Load(path string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	return Validate(tree)
}
