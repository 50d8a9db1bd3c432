// Package messages holds the pet's lines and the cursors that pick them.
package messages

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/nidhogg/deskpet/internal/mode"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ByMode is a line with one variant per mode.
type ByMode struct {
	Calm        string `yaml:"calm"`
	Mischievous string `yaml:"mischievous"`
}

// For picks the variant for m.
func (b ByMode) For(m mode.Mode) string {
	if m == mode.Mischievous {
		return b.Mischievous
	}
	return b.Calm
}

// Reactions are the lines spoken when the primary agent changes motion state
// or the user changes something.
type Reactions struct {
	ModeCalm        string `yaml:"mode_calm"`
	ModeMischievous string `yaml:"mode_mischievous"`
	Released        ByMode `yaml:"released"`
	BorderStart     ByMode `yaml:"border_start"`
	BorderExit      ByMode `yaml:"border_exit"`
	ScatterStart    ByMode `yaml:"scatter_start"`
	ScatterProgress ByMode `yaml:"scatter_progress"`
	ScatterDone     ByMode `yaml:"scatter_done"`
	NextAnimation   ByMode `yaml:"next_animation"`
}

// Outcome groups the lines for one automation action.
type Outcome struct {
	Announce    string   `yaml:"announce"`
	Start       string   `yaml:"start"`
	Target      string   `yaml:"target"`
	Unsupported string   `yaml:"unsupported"`
	NotFound    string   `yaml:"not_found"`
	Preview     []string `yaml:"preview"`
	Success     []string `yaml:"success"`
	Failure     []string `yaml:"failure"`
}

// Catalog is every line the pet knows.
type Catalog struct {
	Speech struct {
		Calm        []string `yaml:"calm"`
		Mischievous []string `yaml:"mischievous"`
	} `yaml:"speech"`
	Clone       []string          `yaml:"clone"`
	Periods     map[string]string `yaml:"periods"`
	Greetings   map[string]ByMode `yaml:"greetings"`
	Reactions   Reactions         `yaml:"reactions"`
	Disturbance Outcome           `yaml:"disturbance"`
	Mischief    Outcome           `yaml:"mischief"`
	Clones      struct {
		Spawned  string `yaml:"spawned"`
		Recalled string `yaml:"recalled"`
	} `yaml:"clones"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("built-in message catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read message catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog and checks that every speaker has lines.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse message catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	var errs []error
	if len(c.Speech.Calm) == 0 {
		errs = append(errs, errors.New("speech.calm is empty"))
	}
	if len(c.Speech.Mischievous) == 0 {
		errs = append(errs, errors.New("speech.mischievous is empty"))
	}
	if len(c.Clone) == 0 {
		errs = append(errs, errors.New("clone is empty"))
	}
	return errors.Join(errs...)
}

// Lines returns the primary agent's scheduled lines for m.
func (c *Catalog) Lines(m mode.Mode) []string {
	if m == mode.Mischievous {
		return c.Speech.Mischievous
	}
	return c.Speech.Calm
}

// Greeting returns the hourly greeting for a period and mode, falling back to
// an empty string for unknown periods.
func (c *Catalog) Greeting(period string, m mode.Mode) string {
	return c.Greetings[period].For(m)
}

// PeriodLabel returns the display name of a period.
func (c *Catalog) PeriodLabel(period string) string {
	if l, ok := c.Periods[period]; ok {
		return l
	}
	return period
}

// Vars are placeholder values substituted into a line.
type Vars map[string]string

// Render replaces every {key} in text with its value. Unknown placeholders
// are left alone.
func Render(text string, vars Vars) string {
	if len(vars) == 0 || !strings.Contains(text, "{") {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Pick returns a uniformly random line, or "" when lines is empty.
func Pick(rng *rand.Rand, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[rng.Intn(len(lines))]
}
