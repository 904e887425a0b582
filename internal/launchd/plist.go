package launchd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zacczakk/workflows/internal/config"
	"github.com/zacczakk/workflows/internal/models"
	"github.com/zacczakk/workflows/internal/schedule"
)

// Descriptor is the fully-derived launchd job definition for one workflow.
// It is regenerable from config alone and never hand-edited.
type Descriptor struct {
	Label          string
	ProgramArgs    []string
	Triggers       []models.CalendarTrigger
	StdoutPath     string
	StderrPath     string
	Env            map[string]string
	TimeoutSeconds int // 0 = omit
}

// BuildDescriptor derives a workflow's descriptor from validated config.
func BuildDescriptor(cfg *models.Config, paths config.Paths, wf models.Workflow) Descriptor {
	logDir := paths.Resolve(cfg.Meta.LogDir)
	return Descriptor{
		Label:       cfg.Label(wf.Name),
		ProgramArgs: []string{paths.Binary(), "run", wf.Name},
		Triggers:    schedule.Expand(wf.Schedule),
		StdoutPath:  filepath.Join(logDir, wf.Name+".out.log"),
		StderrPath:  filepath.Join(logDir, wf.Name+".err.log"),
		Env: map[string]string{
			"PATH":    envPath(paths.Home),
			"HOME":    paths.Home,
			"NVM_DIR": filepath.Join(paths.Home, ".nvm"),
		},
		TimeoutSeconds: cfg.Timeout(wf),
	}
}

// launchd StartCalendarInterval keys, in the order plists render them.
var triggerKeys = [...]string{"Hour", "Minute", "Month", "Day", "Weekday"}

// Plist renders the descriptor as launchd property-list XML.
func (d Descriptor) Plist() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN"
  "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>` + escapeXML(d.Label) + `</string>
    <key>ProgramArguments</key>
    <array>
`)
	for _, arg := range d.ProgramArgs {
		fmt.Fprintf(&b, "        <string>%s</string>\n", escapeXML(arg))
	}
	b.WriteString(`    </array>
    <key>StartCalendarInterval</key>
    <array>
`)
	for _, trigger := range d.Triggers {
		b.WriteString("        <dict>\n")
		for _, key := range triggerKeys {
			if v, present := trigger[key]; present {
				fmt.Fprintf(&b, "            <key>%s</key><integer>%d</integer>\n", key, v)
			}
		}
		b.WriteString("        </dict>\n")
	}
	fmt.Fprintf(&b, `    </array>
    <key>StandardOutPath</key>
    <string>%s</string>
    <key>StandardErrorPath</key>
    <string>%s</string>
    <key>EnvironmentVariables</key>
    <dict>
`, escapeXML(d.StdoutPath), escapeXML(d.StderrPath))

	envKeys := make([]string, 0, len(d.Env))
	for k := range d.Env {
		envKeys = append(envKeys, k)
	}
	sort.Strings(envKeys)
	for _, k := range envKeys {
		fmt.Fprintf(&b, "        <key>%s</key>\n        <string>%s</string>\n", escapeXML(k), escapeXML(d.Env[k]))
	}
	b.WriteString("    </dict>\n")

	if d.TimeoutSeconds > 0 {
		fmt.Fprintf(&b, "    <key>TimeOut</key>\n    <integer>%d</integer>\n", d.TimeoutSeconds)
	}

	b.WriteString("</dict>\n</plist>\n")
	return b.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}

// envPath builds the PATH launchd jobs run with. launchd agents get a bare
// environment, so the runtime-manager bin dir and the usual package-manager
// prefixes have to be spelled out.
func envPath(home string) string {
	segments := make([]string, 0, 6)
	if nodeBin := newestNodeBin(home); nodeBin != "" {
		segments = append(segments, nodeBin)
	}
	segments = append(segments,
		filepath.Join(home, ".bun", "bin"),
		"/opt/homebrew/bin",
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
	)
	return strings.Join(segments, ":")
}

// newestNodeBin locates the newest installed Node under nvm, if any.
func newestNodeBin(home string) string {
	versionsDir := filepath.Join(home, ".nvm", "versions", "node")
	entries, err := os.ReadDir(versionsDir)
	if err != nil {
		return ""
	}
	var versions []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "v") {
			versions = append(versions, e.Name())
		}
	}
	if len(versions) == 0 {
		return ""
	}
	sort.Strings(versions)
	return filepath.Join(versionsDir, versions[len(versions)-1], "bin")
}
