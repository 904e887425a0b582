// Package runner executes a single workflow payload and records the outcome.
package runner

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/zacczakk/workflows/internal/config"
	"github.com/zacczakk/workflows/internal/models"
	"github.com/zacczakk/workflows/internal/state"
)

type Runner struct {
	cfg   *models.Config
	paths config.Paths
	store *state.Store
	log   zerolog.Logger
}

func New(cfg *models.Config, paths config.Paths, store *state.Store, log zerolog.Logger) *Runner {
	return &Runner{cfg: cfg, paths: paths, store: store, log: log}
}

// Run executes the named workflow synchronously and returns its exit code.
// An error is returned only for failures that happen before the payload
// process starts; those leave no run record behind.
func (r *Runner) Run(name string) (int, error) {
	wf, ok := r.cfg.Workflows[name]
	if !ok {
		return 0, fmt.Errorf("unknown workflow %q", name)
	}

	payload := r.paths.Resolve(wf.PayloadRef())
	if _, err := os.Stat(payload); err != nil {
		return 0, fmt.Errorf("workflow %q payload %s: %w", name, payload, err)
	}

	// The configured timeout is advisory: it lands in the descriptor's
	// TimeOut key for launchd to enforce. Runs started here are never
	// cancelled mid-flight.
	cmd, err := r.command(wf, payload)
	if err != nil {
		return 0, err
	}
	cmd.Dir = r.paths.Root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	r.log.Info().Str("workflow", name).Str("kind", string(wf.Kind)).Msg("starting workflow")

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start workflow %q: %w", name, err)
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(started)

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if exitCode == -1 {
		// Killed by an external signal; surface a nonzero code.
		exitCode = 1
	}

	entry := models.RunEntry{
		StartedAt:  started.UTC(),
		ExitCode:   exitCode,
		DurationMs: elapsed.Milliseconds(),
	}
	if _, err := r.store.Record(name, entry); err != nil {
		r.log.Warn().Err(err).Str("workflow", name).Msg("failed to record run")
	}

	if waitErr != nil {
		r.log.Warn().Str("workflow", name).Int("exit", exitCode).
			Dur("elapsed", elapsed).Msg("workflow failed")
	} else {
		r.log.Info().Str("workflow", name).Dur("elapsed", elapsed).Msg("workflow finished")
	}
	return exitCode, nil
}

func (r *Runner) command(wf models.Workflow, payload string) (*exec.Cmd, error) {
	switch wf.Kind {
	case models.KindAgent:
		prompt, err := os.ReadFile(payload)
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", payload, err)
		}
		args := []string{
			"-p", string(prompt),
			"--dangerously-skip-permissions",
		}
		return exec.Command("claude", args...), nil
	case models.KindScript:
		return exec.Command(payload), nil
	default:
		return nil, fmt.Errorf("workflow %q has unsupported kind %q", wf.Name, wf.Kind)
	}
}
