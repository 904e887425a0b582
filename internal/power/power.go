// Package power manages the machine's repeating wake schedule via pmset, so
// scheduled workflows still fire when the machine is asleep.
package power

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// WakeService is the capability surface of the system power scheduler.
type WakeService interface {
	// SetRepeatingWake schedules a daily wake at timeOfDay ("HH:MM:SS").
	SetRepeatingWake(timeOfDay string) error
	ClearWake() error
	// CurrentWake reports the configured repeating wake, if any.
	CurrentWake() (string, bool)
}

// Pmset shells out to pmset. Setting or clearing the repeat schedule
// requires root, hence the sudo prefix.
type Pmset struct{}

// All seven days; pmset's day-letter encoding.
const everyDay = "MTWRFSU"

func (Pmset) SetRepeatingWake(timeOfDay string) error {
	cmd := exec.Command("sudo", "pmset", "repeat", "wakeorpoweron", everyDay, timeOfDay)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pmset repeat: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (Pmset) ClearWake() error {
	cmd := exec.Command("sudo", "pmset", "repeat", "cancel")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pmset repeat cancel: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (Pmset) CurrentWake() (string, bool) {
	out, err := exec.Command("pmset", "-g", "sched").Output()
	if err != nil {
		return "", false
	}
	return parseRepeatSchedule(string(out))
}

var repeatRe = regexp.MustCompile(`Repeating power events:\s*\n\s*wakeorpoweron\s+at\s+(\d{2}:\d{2}:\d{2})\s+(\S+)`)

// parseRepeatSchedule extracts "HH:MM:SS DAYS" from `pmset -g sched` output.
func parseRepeatSchedule(out string) (string, bool) {
	m := repeatRe.FindStringSubmatch(out)
	if m == nil {
		return "", false
	}
	return m[1] + " " + m[2], true
}
