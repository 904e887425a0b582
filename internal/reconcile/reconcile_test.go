package reconcile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zacczakk/workflows/internal/config"
	"github.com/zacczakk/workflows/internal/models"
)

type fakeScheduler struct {
	labels      map[string]bool
	listErr     error
	registerErr map[string]error

	registerCalls   []string
	deregisterCalls []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{labels: map[string]bool{}, registerErr: map[string]error{}}
}

func (f *fakeScheduler) List() (map[string]bool, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	snapshot := make(map[string]bool, len(f.labels))
	for label := range f.labels {
		snapshot[label] = true
	}
	return snapshot, nil
}

func (f *fakeScheduler) Register(label, descriptorPath string) error {
	f.registerCalls = append(f.registerCalls, label)
	if err := f.registerErr[label]; err != nil {
		return err
	}
	f.labels[label] = true
	return nil
}

func (f *fakeScheduler) Deregister(label string) error {
	f.deregisterCalls = append(f.deregisterCalls, label)
	if !f.labels[label] {
		return errors.New("Boot-out failed: 5: Input/output error")
	}
	delete(f.labels, label)
	return nil
}

type fakeWake struct {
	sets     []string
	clears   int
	setErr   error
	clearErr error
}

func (f *fakeWake) SetRepeatingWake(timeOfDay string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets = append(f.sets, timeOfDay)
	return nil
}

func (f *fakeWake) ClearWake() error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.clears++
	return nil
}

func (f *fakeWake) CurrentWake() (string, bool) {
	if len(f.sets) == 0 {
		return "", false
	}
	return f.sets[len(f.sets)-1], true
}

func intp(v int) *int { return &v }

func testSetup(t *testing.T) (*models.Config, config.Paths) {
	t.Helper()
	root := t.TempDir()
	cfg := &models.Config{
		Meta: models.Meta{
			LabelPrefix: "com.zacczakk.wf",
			LogDir:      "logs",
			PlistDir:    "plists",
			StateDir:    "state",
		},
		Workflows: map[string]models.Workflow{
			"daily-sync": {
				Name: "daily-sync", Kind: models.KindAgent,
				PromptRef: "prompts/daily-sync.md", Description: "Sync", Enabled: true,
				Schedule: models.Schedule{Hour: intp(6), Minute: intp(30)},
			},
			"weekly-report": {
				Name: "weekly-report", Kind: models.KindScript,
				ScriptRef: "scripts/report.sh", Description: "Report", Enabled: true,
				Schedule: models.Schedule{Hour: intp(8), Minute: intp(0), Weekdays: []int{1}},
			},
			"paused": {
				Name: "paused", Kind: models.KindScript,
				ScriptRef: "scripts/paused.sh", Description: "Paused", Enabled: false,
				Schedule: models.Schedule{Hour: intp(3), Minute: intp(0)},
			},
		},
	}
	paths := config.Paths{
		Root:         root,
		Home:         filepath.Join(root, "home"),
		UID:          501,
		LaunchAgents: filepath.Join(root, "LaunchAgents"),
	}
	return cfg, paths
}

func TestInstall_RegistersEnabledOnly(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	wake := &fakeWake{}
	r := New(cfg, paths, sched, wake, zerolog.Nop())

	res, err := r.Install()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"daily-sync", "weekly-report"}, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.True(t, sched.labels["com.zacczakk.wf.daily-sync"])
	assert.True(t, sched.labels["com.zacczakk.wf.weekly-report"])
	assert.False(t, sched.labels["com.zacczakk.wf.paused"])

	// Descriptor written to both the local artifact dir and LaunchAgents.
	assert.FileExists(t, filepath.Join(paths.Root, "plists", "com.zacczakk.wf.daily-sync.plist"))
	assert.FileExists(t, filepath.Join(paths.LaunchAgents, "com.zacczakk.wf.daily-sync.plist"))

	// Wake follows the earliest enabled start; disabled 03:00 is ignored.
	require.Len(t, wake.sets, 1)
	assert.Equal(t, "06:30:00", wake.sets[0])
}

func TestInstall_EmptyConfig(t *testing.T) {
	cfg, paths := testSetup(t)
	cfg.Workflows = map[string]models.Workflow{}
	sched := newFakeScheduler()
	wake := &fakeWake{}

	res, err := New(cfg, paths, sched, wake, zerolog.Nop()).Install()
	require.NoError(t, err)

	assert.Empty(t, res.Succeeded)
	assert.Empty(t, res.Failed)
	assert.Empty(t, sched.registerCalls)
	assert.Equal(t, 1, wake.clears)
}

func TestInstall_PartialFailureContinues(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	sched.registerErr["com.zacczakk.wf.daily-sync"] = errors.New("bootstrap failed")
	wake := &fakeWake{}

	res, err := New(cfg, paths, sched, wake, zerolog.Nop()).Install()
	require.NoError(t, err)

	assert.Equal(t, []string{"daily-sync"}, res.Failed)
	assert.Equal(t, []string{"weekly-report"}, res.Succeeded)
	// Wake still derives from the whole enabled set.
	require.Len(t, wake.sets, 1)
	assert.Equal(t, "06:30:00", wake.sets[0])
}

func TestInstall_Idempotent(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	wake := &fakeWake{}
	r := New(cfg, paths, sched, wake, zerolog.Nop())

	first, err := r.Install()
	require.NoError(t, err)
	second, err := r.Install()
	require.NoError(t, err)

	assert.Equal(t, first.Succeeded, second.Succeeded)
	assert.Empty(t, second.Failed)
	assert.Equal(t, []string{"06:30:00", "06:30:00"}, wake.sets)
}

func TestInstall_WakeFailureIsNonFatal(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	wake := &fakeWake{setErr: errors.New("pmset: operation not permitted")}

	res, err := New(cfg, paths, sched, wake, zerolog.Nop()).Install()
	require.NoError(t, err)
	assert.Len(t, res.Succeeded, 2)
}

func TestUninstall_Outcomes(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	wake := &fakeWake{}
	r := New(cfg, paths, sched, wake, zerolog.Nop())

	_, err := r.Install()
	require.NoError(t, err)

	// daily-sync: registered + artifact. weekly-report: drop the artifact so
	// only the registration remains. paused: neither.
	require.NoError(t, os.Remove(filepath.Join(paths.LaunchAgents, "com.zacczakk.wf.weekly-report.plist")))

	results, err := r.Uninstall()
	require.NoError(t, err)

	byName := map[string]Outcome{}
	for _, res := range results {
		byName[res.Name] = res.Outcome
	}
	assert.Equal(t, OutcomeRemoved, byName["daily-sync"])
	assert.Equal(t, OutcomeStoppedNoArtifact, byName["weekly-report"])
	assert.Equal(t, OutcomeAlreadyAbsent, byName["paused"])

	assert.Empty(t, sched.labels)
	assert.NoFileExists(t, filepath.Join(paths.LaunchAgents, "com.zacczakk.wf.daily-sync.plist"))
	assert.Equal(t, 1, wake.clears)
}

func TestUninstall_RemovedInactive(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	r := New(cfg, paths, sched, &fakeWake{}, zerolog.Nop())

	_, err := r.Install()
	require.NoError(t, err)
	// Simulate launchd losing the registration while the artifact remains.
	delete(sched.labels, "com.zacczakk.wf.daily-sync")

	results, err := r.Uninstall()
	require.NoError(t, err)
	for _, res := range results {
		if res.Name == "daily-sync" {
			assert.Equal(t, OutcomeRemovedInactive, res.Outcome)
		}
	}
}

func TestUninstall_TwiceIsAlreadyAbsent(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	wake := &fakeWake{}
	r := New(cfg, paths, sched, wake, zerolog.Nop())

	_, err := r.Install()
	require.NoError(t, err)
	_, err = r.Uninstall()
	require.NoError(t, err)

	results, err := r.Uninstall()
	require.NoError(t, err)
	for _, res := range results {
		assert.Equal(t, OutcomeAlreadyAbsent, res.Outcome, res.Name)
	}
	assert.Equal(t, 2, wake.clears)
}

func TestUninstall_ListFailureIsFatal(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	sched.listErr = errors.New("launchctl list: exit status 1")

	_, err := New(cfg, paths, sched, &fakeWake{}, zerolog.Nop()).Uninstall()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read registered workflows")
}

func TestEnable_GeneratesMissingArtifact(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	wake := &fakeWake{}
	r := New(cfg, paths, sched, wake, zerolog.Nop())

	require.NoError(t, r.Enable("daily-sync"))

	assert.FileExists(t, filepath.Join(paths.LaunchAgents, "com.zacczakk.wf.daily-sync.plist"))
	assert.True(t, sched.labels["com.zacczakk.wf.daily-sync"])
	require.Len(t, wake.sets, 1)
	assert.Equal(t, "06:30:00", wake.sets[0])
}

func TestEnable_UnknownWorkflow(t *testing.T) {
	cfg, paths := testSetup(t)
	err := New(cfg, paths, newFakeScheduler(), &fakeWake{}, zerolog.Nop()).Enable("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown workflow")
}

func TestEnable_RegisterFailure(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	sched.registerErr["com.zacczakk.wf.daily-sync"] = errors.New("bootstrap failed")

	err := New(cfg, paths, sched, &fakeWake{}, zerolog.Nop()).Enable("daily-sync")
	require.Error(t, err)
}

func TestDisable_ExcludesWorkflowFromWake(t *testing.T) {
	cfg, paths := testSetup(t)
	sched := newFakeScheduler()
	wake := &fakeWake{}
	r := New(cfg, paths, sched, wake, zerolog.Nop())

	_, err := r.Install()
	require.NoError(t, err)

	require.NoError(t, r.Disable("daily-sync"))

	assert.False(t, sched.labels["com.zacczakk.wf.daily-sync"])
	// Artifact deliberately left in place for a cheap re-enable.
	assert.FileExists(t, filepath.Join(paths.LaunchAgents, "com.zacczakk.wf.daily-sync.plist"))
	// 06:30 install wake, then 08:00 once daily-sync is excluded.
	assert.Equal(t, []string{"06:30:00", "08:00:00"}, wake.sets)
}

func TestDisable_LastEnabledClearsWake(t *testing.T) {
	cfg, paths := testSetup(t)
	delete(cfg.Workflows, "weekly-report")
	sched := newFakeScheduler()
	wake := &fakeWake{}
	r := New(cfg, paths, sched, wake, zerolog.Nop())

	require.NoError(t, r.Disable("daily-sync"))
	assert.Equal(t, 1, wake.clears)
}

func TestDisable_NotLoadedIsTolerated(t *testing.T) {
	cfg, paths := testSetup(t)
	err := New(cfg, paths, newFakeScheduler(), &fakeWake{}, zerolog.Nop()).Disable("daily-sync")
	require.NoError(t, err)
}
