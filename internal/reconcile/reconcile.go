// Package reconcile keeps the configured workflow set, the launchd
// registration state, and the power wake schedule consistent. Every
// operation is idempotent: re-running without intervening changes produces
// the same end state and no spurious errors.
package reconcile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/zacczakk/workflows/internal/config"
	"github.com/zacczakk/workflows/internal/launchd"
	"github.com/zacczakk/workflows/internal/models"
	"github.com/zacczakk/workflows/internal/power"
	"github.com/zacczakk/workflows/internal/schedule"
)

type Reconciler struct {
	cfg       *models.Config
	paths     config.Paths
	scheduler launchd.Scheduler
	wake      power.WakeService
	log       zerolog.Logger
}

func New(cfg *models.Config, paths config.Paths, scheduler launchd.Scheduler, wake power.WakeService, log zerolog.Logger) *Reconciler {
	return &Reconciler{cfg: cfg, paths: paths, scheduler: scheduler, wake: wake, log: log}
}

// InstallResult reports per-workflow registration outcomes of one install.
type InstallResult struct {
	Succeeded []string
	Failed    []string
}

// Install registers every enabled workflow: descriptor regenerated and
// persisted, then deregister-then-register against launchd. A single
// workflow's failure never aborts the batch. The wake schedule is recomputed
// from the whole enabled set afterwards.
func (r *Reconciler) Install() (*InstallResult, error) {
	if err := r.paths.EnsureDirs(r.cfg); err != nil {
		return nil, err
	}

	res := &InstallResult{}
	for _, name := range r.cfg.Names() {
		wf := r.cfg.Workflows[name]
		if !wf.Enabled {
			continue
		}

		label := r.cfg.Label(name)
		agentPath, err := r.writeDescriptor(wf)
		if err != nil {
			r.log.Error().Err(err).Str("workflow", name).Msg("descriptor write failed")
			res.Failed = append(res.Failed, name)
			continue
		}

		// Not-loaded failures here are expected and swallowed.
		if err := r.scheduler.Deregister(label); err != nil {
			r.log.Debug().Err(err).Str("label", label).Msg("deregister before register")
		}
		if err := r.scheduler.Register(label, agentPath); err != nil {
			r.log.Warn().Err(err).Str("workflow", name).Msg("registration failed")
			res.Failed = append(res.Failed, name)
			continue
		}
		res.Succeeded = append(res.Succeeded, name)
	}

	r.applyWake("")
	return res, nil
}

// Outcome classifies what uninstalling one workflow actually removed.
type Outcome string

const (
	OutcomeRemoved           Outcome = "removed"
	OutcomeRemovedInactive   Outcome = "removed (was not loaded)"
	OutcomeStoppedNoArtifact Outcome = "stopped (no artifact)"
	OutcomeAlreadyAbsent     Outcome = "already absent"
)

type UninstallResult struct {
	Name    string
	Outcome Outcome
}

// Uninstall deregisters every workflow regardless of enabled state and
// removes its descriptor artifacts. The registration snapshot is read fresh;
// failure to read it is fatal since outcomes cannot be classified blind.
// The wake schedule is cleared unconditionally at the end.
func (r *Reconciler) Uninstall() ([]UninstallResult, error) {
	snapshot, err := r.scheduler.List()
	if err != nil {
		return nil, fmt.Errorf("read registered workflows: %w", err)
	}

	results := make([]UninstallResult, 0, len(r.cfg.Workflows))
	for _, name := range r.cfg.Names() {
		label := r.cfg.Label(name)
		agentPath := r.agentPlistPath(label)

		registered := snapshot[label]
		artifact := fileExists(agentPath)

		if err := r.scheduler.Deregister(label); err != nil && registered {
			r.log.Warn().Err(err).Str("workflow", name).Msg("deregister failed")
		}
		if artifact {
			if err := os.Remove(agentPath); err != nil {
				r.log.Warn().Err(err).Str("workflow", name).Msg("artifact removal failed")
			}
		}
		// Local plist copy is a derived artifact; clean it up quietly.
		os.Remove(r.localPlistPath(label))

		var outcome Outcome
		switch {
		case registered && artifact:
			outcome = OutcomeRemoved
		case artifact:
			outcome = OutcomeRemovedInactive
		case registered:
			outcome = OutcomeStoppedNoArtifact
		default:
			outcome = OutcomeAlreadyAbsent
		}
		results = append(results, UninstallResult{Name: name, Outcome: outcome})
	}

	if err := r.wake.ClearWake(); err != nil {
		r.log.Warn().Err(err).Msg("failed to clear scheduled wake")
	} else {
		r.log.Info().Msg("cleared scheduled wake")
	}
	return results, nil
}

// Enable loads a single workflow into launchd, generating its descriptor
// first if none exists, then recomputes the wake schedule over the full
// enabled set.
func (r *Reconciler) Enable(name string) error {
	wf, ok := r.cfg.Workflows[name]
	if !ok {
		return fmt.Errorf("unknown workflow: %s", name)
	}

	label := r.cfg.Label(name)
	agentPath := r.agentPlistPath(label)
	if !fileExists(agentPath) {
		if err := r.paths.EnsureDirs(r.cfg); err != nil {
			return err
		}
		if _, err := r.writeDescriptor(wf); err != nil {
			return err
		}
	}

	if err := r.scheduler.Deregister(label); err != nil {
		r.log.Debug().Err(err).Str("label", label).Msg("deregister before register")
	}
	if err := r.scheduler.Register(label, agentPath); err != nil {
		return fmt.Errorf("enable %s: %w", name, err)
	}

	r.applyWake("")
	return nil
}

// Disable unloads a single workflow from launchd. Its descriptor stays in
// place so a later enable is cheap. The wake schedule is recomputed
// excluding this workflow by name, since the config on disk may still mark
// it enabled.
func (r *Reconciler) Disable(name string) error {
	if _, ok := r.cfg.Workflows[name]; !ok {
		return fmt.Errorf("unknown workflow: %s", name)
	}

	label := r.cfg.Label(name)
	if err := r.scheduler.Deregister(label); err != nil {
		r.log.Warn().Err(err).Str("workflow", name).Msg("deregister failed (may not have been loaded)")
	}

	r.applyWake(name)
	return nil
}

// applyWake points the power service at the earliest enabled start time, or
// clears the wake when nothing qualifies. Wake failures are warnings:
// registration is the primary outcome and has already been decided.
func (r *Reconciler) applyWake(exclude string) {
	minute, ok := schedule.EarliestWakeMinute(r.cfg.Workflows, exclude)
	if !ok {
		if err := r.wake.ClearWake(); err != nil {
			r.log.Warn().Err(err).Msg("failed to clear scheduled wake")
		} else {
			r.log.Info().Msg("cleared scheduled wake")
		}
		return
	}

	at := schedule.WakeTime(minute)
	if err := r.wake.SetRepeatingWake(at); err != nil {
		r.log.Warn().Err(err).Str("time", at).Msg("failed to set scheduled wake")
	} else {
		r.log.Info().Str("time", at).Msg("scheduled wake daily")
	}
}

func (r *Reconciler) agentPlistPath(label string) string {
	return filepath.Join(r.paths.LaunchAgents, label+".plist")
}

func (r *Reconciler) localPlistPath(label string) string {
	return filepath.Join(r.paths.Resolve(r.cfg.Meta.PlistDir), label+".plist")
}

// writeDescriptor persists a workflow's plist to the local artifact dir and
// to LaunchAgents, returning the path launchd reads from.
func (r *Reconciler) writeDescriptor(wf models.Workflow) (string, error) {
	d := launchd.BuildDescriptor(r.cfg, r.paths, wf)
	plist := []byte(d.Plist())

	if err := os.MkdirAll(r.paths.LaunchAgents, 0755); err != nil {
		return "", fmt.Errorf("create LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(r.localPlistPath(d.Label), plist, 0644); err != nil {
		return "", fmt.Errorf("write plist artifact: %w", err)
	}
	agentPath := r.agentPlistPath(d.Label)
	if err := os.WriteFile(agentPath, plist, 0644); err != nil {
		return "", fmt.Errorf("write LaunchAgents plist: %w", err)
	}
	return agentPath, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
