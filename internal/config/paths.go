package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zacczakk/workflows/internal/models"
)

// Paths carries the process-wide filesystem context resolved once at
// startup: the install root, the invoking user, and the directory launchd
// reads agent plists from. Passing it explicitly keeps the reconciler and
// status reporter testable with synthetic roots.
type Paths struct {
	Root         string
	Home         string
	UID          int
	LaunchAgents string
	ConfigFile   string
}

// ResolvePaths determines the install root from WF_ROOT, falling back to
// the parent of the executable's directory (the binary lives in {root}/bin).
func ResolvePaths() (Paths, error) {
	root := os.Getenv("WF_ROOT")
	if root == "" {
		exe, err := os.Executable()
		if err != nil {
			return Paths{}, fmt.Errorf("resolve executable path: %w", err)
		}
		root = filepath.Dir(filepath.Dir(exe))
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve home directory: %w", err)
	}

	cfgFile := os.Getenv("WF_CONFIG")
	if cfgFile == "" {
		cfgFile = filepath.Join(root, "workflows.yaml")
	}

	return Paths{
		Root:         root,
		Home:         home,
		UID:          os.Getuid(),
		LaunchAgents: filepath.Join(home, "Library", "LaunchAgents"),
		ConfigFile:   cfgFile,
	}, nil
}

// Resolve turns a config-relative path into an absolute one under Root.
// Absolute paths pass through untouched.
func (p Paths) Resolve(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(p.Root, rel)
}

// Binary is the path launchd invokes to re-enter this tool.
func (p Paths) Binary() string {
	return filepath.Join(p.Root, "bin", "wf")
}

// EnsureDirs creates the artifact directories a config refers to.
func (p Paths) EnsureDirs(cfg *models.Config) error {
	for _, dir := range []string{cfg.Meta.PlistDir, cfg.Meta.LogDir, cfg.Meta.StateDir} {
		if err := os.MkdirAll(p.Resolve(dir), 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
