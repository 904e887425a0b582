// Package status derives a read-only health view from config, the live
// registration snapshot, and recorded run state.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zacczakk/workflows/internal/models"
	"github.com/zacczakk/workflows/internal/schedule"
	"github.com/zacczakk/workflows/internal/state"
)

type Health string

const (
	Healthy Health = "healthy"
	Warn    Health = "warn"
)

// Item is one workflow's consistency signal plus its latest run summary.
type Item struct {
	Name        string
	Description string
	Schedule    models.Schedule
	Enabled     bool
	Registered  bool
	Health      Health
	Note        string
	State       *models.RunState
}

// Collect combines the three inputs into per-workflow items, sorted by name.
func Collect(cfg *models.Config, snapshot map[string]bool, store *state.Store) []Item {
	items := make([]Item, 0, len(cfg.Workflows))
	for _, name := range cfg.Names() {
		wf := cfg.Workflows[name]
		registered := snapshot[cfg.Label(name)]

		item := Item{
			Name:        name,
			Description: wf.Description,
			Schedule:    wf.Schedule,
			Enabled:     wf.Enabled,
			Registered:  registered,
			State:       store.Read(name),
		}
		item.Health, item.Note = classify(wf.Enabled, registered)
		items = append(items, item)
	}
	return items
}

func classify(enabled, registered bool) (Health, string) {
	switch {
	case enabled && !registered:
		return Warn, "not loaded; run 'wf install'"
	case !enabled && registered:
		return Warn, "loaded but disabled; run 'wf disable'"
	default:
		return Healthy, ""
	}
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// Render formats the health view. wake is the current repeating wake
// schedule ("" when none is configured).
func Render(items []Item, wake string) string {
	var b strings.Builder
	b.WriteString("\nWorkflow status:\n\n")

	for _, item := range items {
		mark := okStyle.Render("✓")
		if item.Health == Warn {
			mark = warnStyle.Render("!")
		}

		onOff := "on "
		if !item.Enabled {
			onOff = "off"
		}
		loaded := "loaded"
		if !item.Registered {
			loaded = "not loaded"
		}

		fmt.Fprintf(&b, "  %s %s  %-35s %-11s %-20s %s\n",
			mark, onOff, item.Name, loaded,
			schedule.Describe(item.Schedule), summarize(item.State))
		if item.Note != "" {
			fmt.Fprintf(&b, "         %s\n", warnStyle.Render(item.Note))
		}
	}

	b.WriteString("\n")
	if wake != "" {
		b.WriteString(dimStyle.Render("  scheduled wake: "+wake) + "\n")
	} else {
		b.WriteString(warnStyle.Render("  no scheduled wake configured; workflows may miss while asleep") + "\n")
	}
	return b.String()
}

func summarize(st *models.RunState) string {
	if st == nil {
		return dimStyle.Render("never ran")
	}

	last := fmt.Sprintf("%s in %s", RelativeTime(st.LastRun), FormatDuration(st.LastDurationMs))
	if st.LastExitCode != 0 {
		last = failStyle.Render(fmt.Sprintf("exit %d %s", st.LastExitCode, last))
	} else {
		last = dimStyle.Render(last)
	}
	if st.ConsecutiveFailures > 1 {
		last += " " + failStyle.Render(fmt.Sprintf("(%d consecutive failures)", st.ConsecutiveFailures))
	}
	return last
}

// RelativeTime renders how long ago t was, coarsely.
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		return "just now"
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// FormatDuration renders a millisecond duration as 42s / 3m20s / 1h05m.
func FormatDuration(ms int64) string {
	seconds := ms / 1000
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes, secs := seconds/60, seconds%60
	if minutes < 60 {
		if secs > 0 {
			return fmt.Sprintf("%dm%ds", minutes, secs)
		}
		return fmt.Sprintf("%dm", minutes)
	}
	hours, mins := minutes/60, minutes%60
	if mins > 0 {
		return fmt.Sprintf("%dh%02dm", hours, mins)
	}
	return fmt.Sprintf("%dh", hours)
}
