// Package state persists per-workflow run history. Each workflow owns one
// JSON record in the state directory, written atomically so a crash mid-write
// never corrupts other workflows' records.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zacczakk/workflows/internal/models"
)

// maxHistory bounds the per-workflow run ring; oldest entries are evicted.
const maxHistory = 10

type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Read returns the recorded state for a workflow, or nil if it never ran.
// An unreadable or unparseable record also yields nil: corrupt state means
// "no history", never a failure.
func (s *Store) Read(name string) *models.RunState {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil
	}
	var st models.RunState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil
	}
	return &st
}

// Apply is the pure state transition: the new entry becomes the head of the
// history ring and the failure streak increments on non-zero exit or resets
// on success.
func Apply(prev *models.RunState, entry models.RunEntry) models.RunState {
	failures := 0
	if entry.ExitCode != 0 {
		if prev != nil {
			failures = prev.ConsecutiveFailures
		}
		failures++
	}

	history := make([]models.RunEntry, 0, maxHistory)
	history = append(history, entry)
	if prev != nil {
		history = append(history, prev.History...)
	}
	if len(history) > maxHistory {
		history = history[:maxHistory]
	}

	return models.RunState{
		LastRun:             entry.StartedAt,
		LastExitCode:        entry.ExitCode,
		LastDurationMs:      entry.DurationMs,
		ConsecutiveFailures: failures,
		History:             history,
	}
}

// Record reads the previous state, applies the new entry and persists the
// result atomically.
func (s *Store) Record(name string, entry models.RunEntry) (*models.RunState, error) {
	next := Apply(s.Read(name), entry)
	if err := s.write(name, next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *Store) write(name string, st models.RunState) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	data = append(data, '\n')

	// Write-then-rename keeps the previous record intact if we crash here.
	path := s.path(name)
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
