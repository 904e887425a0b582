package models

import "sort"

type Kind string

const (
	KindAgent  Kind = "agent"
	KindScript Kind = "script"
)

// Workflow is one named recurring task. Exactly one of PromptRef/ScriptRef
// is set, matching Kind.
type Workflow struct {
	Name           string
	Kind           Kind
	PromptRef      string
	ScriptRef      string
	Description    string
	Enabled        bool
	TimeoutSeconds int // 0 = fall back to Meta.DefaultTimeout
	Schedule       Schedule
}

// PayloadRef returns the prompt or script path for this workflow's kind.
func (w Workflow) PayloadRef() string {
	if w.Kind == KindAgent {
		return w.PromptRef
	}
	return w.ScriptRef
}

type Meta struct {
	LabelPrefix    string
	LogDir         string
	PlistDir       string
	StateDir       string
	DefaultTimeout int // seconds, 0 = none
}

type Config struct {
	Meta      Meta
	Workflows map[string]Workflow
}

// Label returns the globally-unique launchd label for a workflow name.
func (c *Config) Label(name string) string {
	return c.Meta.LabelPrefix + "." + name
}

// Timeout resolves a workflow's effective timeout in seconds (0 = none).
func (c *Config) Timeout(w Workflow) int {
	if w.TimeoutSeconds > 0 {
		return w.TimeoutSeconds
	}
	return c.Meta.DefaultTimeout
}

// Names returns workflow names in sorted order for deterministic output.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Workflows))
	for name := range c.Workflows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
