package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zacczakk/workflows/internal/models"
)

// Validate turns a parsed generic document tree into a typed Config.
// Root-level structural problems abort immediately; per-workflow problems
// are collected so every workflow gets validated in one pass.
func Validate(tree any) (*models.Config, error) {
	root, ok := tree.(map[string]any)
	if !ok {
		return nil, &Error{Path: "", Reason: "config must be a mapping"}
	}

	metaRaw, ok := root["meta"].(map[string]any)
	if !ok {
		return nil, &Error{Path: "meta", Reason: "missing or invalid"}
	}
	wfsRaw, ok := root["workflows"].(map[string]any)
	if !ok {
		return nil, &Error{Path: "workflows", Reason: "missing or invalid"}
	}

	var errs []error

	meta := models.Meta{}
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"label_prefix", &meta.LabelPrefix},
		{"log_dir", &meta.LogDir},
		{"plist_dir", &meta.PlistDir},
		{"state_dir", &meta.StateDir},
	} {
		v, err := requireString(metaRaw, f.key, "meta")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*f.dst = v
	}
	if v, err := optionalPositive(metaRaw, "default_timeout", "meta"); err != nil {
		errs = append(errs, err)
	} else {
		meta.DefaultTimeout = v
	}

	names := make([]string, 0, len(wfsRaw))
	for name := range wfsRaw {
		names = append(names, name)
	}
	sort.Strings(names)

	workflows := make(map[string]models.Workflow, len(wfsRaw))
	for _, name := range names {
		if name == "" {
			errs = append(errs, &Error{Path: "workflows", Reason: "workflow name must be non-empty"})
			continue
		}
		wf, err := validateWorkflow(name, wfsRaw[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		workflows[name] = wf
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &models.Config{Meta: meta, Workflows: workflows}, nil
}

func validateWorkflow(name string, raw any) (models.Workflow, error) {
	path := "workflows." + name
	w, ok := raw.(map[string]any)
	if !ok {
		return models.Workflow{}, &Error{Path: path, Reason: "must be a mapping"}
	}

	wf := models.Workflow{Name: name}

	kind, err := requireString(w, "kind", path)
	if err != nil {
		return models.Workflow{}, err
	}
	switch models.Kind(kind) {
	case models.KindAgent:
		wf.Kind = models.KindAgent
		if wf.PromptRef, err = requireString(w, "prompt", path); err != nil {
			return models.Workflow{}, err
		}
		if _, present := w["script"]; present {
			return models.Workflow{}, &Error{Path: path, Reason: "agent workflow must not have 'script' field"}
		}
	case models.KindScript:
		wf.Kind = models.KindScript
		if wf.ScriptRef, err = requireString(w, "script", path); err != nil {
			return models.Workflow{}, err
		}
		if _, present := w["prompt"]; present {
			return models.Workflow{}, &Error{Path: path, Reason: "script workflow must not have 'prompt' field"}
		}
	default:
		return models.Workflow{}, &Error{Path: path, Reason: fmt.Sprintf("'kind' must be 'agent' or 'script', got '%s'", kind)}
	}

	if wf.Description, err = requireString(w, "description", path); err != nil {
		return models.Workflow{}, err
	}
	if wf.Enabled, err = requireBool(w, "enabled", path); err != nil {
		return models.Workflow{}, err
	}
	if wf.TimeoutSeconds, err = optionalPositive(w, "timeout", path); err != nil {
		return models.Workflow{}, err
	}

	schedRaw, present := w["schedule"]
	if !present {
		return models.Workflow{}, &Error{Path: path, Reason: "missing 'schedule'"}
	}
	if wf.Schedule, err = validateSchedule(schedRaw, path+".schedule"); err != nil {
		return models.Workflow{}, err
	}

	return wf, nil
}

func validateSchedule(raw any, path string) (models.Schedule, error) {
	s, ok := raw.(map[string]any)
	if !ok {
		return models.Schedule{}, &Error{Path: path, Reason: "schedule must be a mapping"}
	}

	var sched models.Schedule
	var err error
	if sched.Hour, err = intInRange(s, "hour", 0, 23, path); err != nil {
		return models.Schedule{}, err
	}
	if sched.Minute, err = intInRange(s, "minute", 0, 59, path); err != nil {
		return models.Schedule{}, err
	}
	if sched.Month, err = intInRange(s, "month", 1, 12, path); err != nil {
		return models.Schedule{}, err
	}
	if sched.Day, err = intInRange(s, "day", 1, 31, path); err != nil {
		return models.Schedule{}, err
	}

	wd, present := s["weekday"]
	if !present {
		return sched, nil
	}
	switch v := wd.(type) {
	case int:
		if v < 0 || v > 6 {
			return models.Schedule{}, &Error{Path: path, Reason: "'weekday' must be 0-6"}
		}
		sched.Weekdays = []int{v}
	case []any:
		if len(v) == 0 {
			return models.Schedule{}, &Error{Path: path, Reason: "'weekday' list must be non-empty"}
		}
		days := make([]int, 0, len(v))
		for _, el := range v {
			d, ok := el.(int)
			if !ok || d < 0 || d > 6 {
				return models.Schedule{}, &Error{Path: path, Reason: "'weekday' list values must be integers 0-6"}
			}
			days = append(days, d)
		}
		sched.Weekdays = days
	default:
		return models.Schedule{}, &Error{Path: path, Reason: "'weekday' must be an integer or a list of integers"}
	}
	return sched, nil
}

func requireString(m map[string]any, key, path string) (string, error) {
	v, ok := m[key].(string)
	if !ok || v == "" {
		return "", &Error{Path: path, Reason: fmt.Sprintf("'%s' must be a non-empty string", key)}
	}
	return v, nil
}

func requireBool(m map[string]any, key, path string) (bool, error) {
	v, ok := m[key].(bool)
	if !ok {
		return false, &Error{Path: path, Reason: fmt.Sprintf("'%s' must be a boolean", key)}
	}
	return v, nil
}

func optionalPositive(m map[string]any, key, path string) (int, error) {
	raw, present := m[key]
	if !present {
		return 0, nil
	}
	v, ok := raw.(int)
	if !ok || v < 1 {
		return 0, &Error{Path: path, Reason: fmt.Sprintf("'%s' must be a positive integer (seconds)", key)}
	}
	return v, nil
}

func intInRange(m map[string]any, key string, min, max int, path string) (*int, error) {
	raw, present := m[key]
	if !present {
		return nil, nil
	}
	v, ok := raw.(int)
	if !ok || v < min || v > max {
		return nil, &Error{Path: path, Reason: fmt.Sprintf("'%s' must be an integer %d-%d", key, min, max)}
	}
	return &v, nil
}
