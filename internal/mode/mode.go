// Package mode defines the process-wide behavioral mode.
package mode

import (
	"fmt"
	"strings"
)

// Mode is either calm or mischievous.
type Mode string

const (
	Calm        Mode = "calm"
	Mischievous Mode = "mischievous"
)

// Parse accepts the canonical names plus the pet's menu aliases.
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "calm", "good":
		return Calm, nil
	case "mischievous", "naughty":
		return Mischievous, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

func (m Mode) String() string { return string(m) }
