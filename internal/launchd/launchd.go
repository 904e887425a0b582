// Package launchd talks to the macOS calendar scheduler. The Scheduler
// interface is the capability surface; Launchctl is the real implementation
// so tests can substitute a fake without touching the OS.
package launchd

import (
	"fmt"
	"os/exec"
	"strings"
)

// Scheduler registers and deregisters calendar jobs keyed by label.
type Scheduler interface {
	// List returns the set of currently registered labels. It is read fresh
	// on every reconciliation decision; failures here are fatal to the
	// caller because no diff can be computed without ground truth.
	List() (map[string]bool, error)
	Register(label, descriptorPath string) error
	Deregister(label string) error
}

// Launchctl drives the per-user launchd domain (gui/<uid>).
type Launchctl struct {
	UID int
}

func (l *Launchctl) domain() string {
	return fmt.Sprintf("gui/%d", l.UID)
}

func (l *Launchctl) List() (map[string]bool, error) {
	out, err := exec.Command("launchctl", "list").Output()
	if err != nil {
		return nil, fmt.Errorf("launchctl list: %w", err)
	}
	return parseList(string(out)), nil
}

// parseList extracts labels from `launchctl list` output. Lines are
// "PID\tStatus\tLabel" with a header row.
func parseList(out string) map[string]bool {
	labels := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || fields[2] == "Label" {
			continue
		}
		labels[fields[2]] = true
	}
	return labels
}

func (l *Launchctl) Register(label, descriptorPath string) error {
	cmd := exec.Command("launchctl", "bootstrap", l.domain(), descriptorPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("launchctl bootstrap %s: %w: %s", label, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (l *Launchctl) Deregister(label string) error {
	cmd := exec.Command("launchctl", "bootout", l.domain()+"/"+label)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("launchctl bootout %s: %w: %s", label, err, strings.TrimSpace(string(out)))
	}
	return nil
}
