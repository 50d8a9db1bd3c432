package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Display    SizeConfig       `json:"display"`
	Agent      AgentConfig      `json:"agent"`
	Sprites    SpritesConfig    `json:"sprites"`
	Messages   MessagesConfig   `json:"messages"`
	Timings    TimingsConfig    `json:"timings"`
	Redis      RedisConfig      `json:"redis"`
	Automation AutomationConfig `json:"automation"`
	Seed       int64            `json:"seed"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type SizeConfig struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type AgentConfig struct {
	Primary  SizeConfig `json:"primary"`
	Clone    SizeConfig `json:"clone"`
	CloneCap int        `json:"clone_cap"`
}

type SpritesConfig struct {
	Dir string `json:"dir"`
}

type MessagesConfig struct {
	Path string `json:"path"` // empty uses the built-in catalog
}

type RedisConfig struct {
	URL    string `json:"url"` // empty disables the event stream
	Stream string `json:"stream"`
	MaxLen int64  `json:"maxlen"`
}

type AutomationConfig struct {
	Backend string `json:"backend"` // auto, xdotool or none
}

// TimingsConfig holds every period, as Go duration strings in JSON.
type TimingsConfig struct {
	Move                Duration `json:"move"`
	SpriteSwitch        Duration `json:"sprite_switch"`
	Speech              Band     `json:"speech"`
	CloneSpeech         Band     `json:"clone_speech"`
	PollGrace           Duration `json:"poll_grace"`
	Poll                Duration `json:"poll"`
	ActDelay            Duration `json:"act_delay"`
	DisturbanceCooldown Duration `json:"disturbance_cooldown"`
	Shake               Duration `json:"shake"`
	MischiefCooldown    Duration `json:"mischief_cooldown"`
	CloneGrace          Duration `json:"clone_grace"`
	CloneManage         Duration `json:"clone_manage"`
	CloneCooldown       Duration `json:"clone_cooldown"`
	ManualDwell         Duration `json:"manual_dwell"`
	Scatter             Duration `json:"scatter"`
	Hourly              Duration `json:"hourly"`
	SystemSample        Duration `json:"system_sample"`
}

// Duration is a time.Duration written as "30s" in JSON.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Band is a jittered interval.
type Band struct {
	Min Duration `json:"min"`
	Max Duration `json:"max"`
}

// Defaults returns the stock configuration.
func Defaults() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080, LogLevel: "info"},
		Display: SizeConfig{Width: 1920, Height: 1080},
		Agent: AgentConfig{
			Primary:  SizeConfig{Width: 100, Height: 100},
			Clone:    SizeConfig{Width: 150, Height: 150},
			CloneCap: 30,
		},
		Sprites:    SpritesConfig{Dir: "sprites"},
		Redis:      RedisConfig{Stream: "deskpet:events", MaxLen: 10000},
		Automation: AutomationConfig{Backend: "auto"},
		Timings: TimingsConfig{
			Move:                Duration(50 * time.Millisecond),
			SpriteSwitch:        Duration(10 * time.Second),
			Speech:              Band{Min: Duration(15 * time.Second), Max: Duration(25 * time.Second)},
			CloneSpeech:         Band{Min: Duration(30 * time.Second), Max: Duration(60 * time.Second)},
			PollGrace:           Duration(10 * time.Second),
			Poll:                Duration(30 * time.Second),
			ActDelay:            Duration(2 * time.Second),
			DisturbanceCooldown: Duration(4 * time.Minute),
			Shake:               Duration(4 * time.Second),
			MischiefCooldown:    Duration(3 * time.Minute),
			CloneGrace:          Duration(5 * time.Second),
			CloneManage:         Duration(10 * time.Second),
			CloneCooldown:       Duration(time.Minute),
			ManualDwell:         Duration(30 * time.Second),
			Scatter:             Duration(8 * time.Second),
			Hourly:              Duration(time.Minute),
			SystemSample:        Duration(5 * time.Minute),
		},
	}
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file over the defaults and substitutes
// environment variable references. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	if err := json.Unmarshal([]byte(resolved), cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem in the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("display size %dx%d must be positive", c.Display.Width, c.Display.Height))
	}
	for name, s := range map[string]SizeConfig{"primary": c.Agent.Primary, "clone": c.Agent.Clone} {
		if s.Width <= 0 || s.Height <= 0 {
			errs = append(errs, fmt.Errorf("agent.%s size must be positive", name))
		}
		if s.Width > c.Display.Width || s.Height > c.Display.Height {
			errs = append(errs, fmt.Errorf("agent.%s is larger than the display", name))
		}
	}
	if c.Agent.CloneCap < 0 {
		errs = append(errs, errors.New("agent.clone_cap must not be negative"))
	}
	for name, b := range map[string]Band{"speech": c.Timings.Speech, "clone_speech": c.Timings.CloneSpeech} {
		if b.Min <= 0 || b.Max < b.Min {
			errs = append(errs, fmt.Errorf("timings.%s band [%s, %s] is invalid", name, b.Min.Std(), b.Max.Std()))
		}
	}
	for _, p := range c.Timings.periods() {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("timings.%s must be positive, got %s", p.name, p.value.Std()))
		}
	}
	switch c.Automation.Backend {
	case "", "auto", "xdotool", "none":
	default:
		errs = append(errs, fmt.Errorf("automation.backend %q is not auto, xdotool or none", c.Automation.Backend))
	}
	return errors.Join(errs...)
}

type namedPeriod struct {
	name  string
	value Duration
}

// periods lists every single-valued timing, in file order.
func (t TimingsConfig) periods() []namedPeriod {
	return []namedPeriod{
		{"move", t.Move},
		{"sprite_switch", t.SpriteSwitch},
		{"poll_grace", t.PollGrace},
		{"poll", t.Poll},
		{"act_delay", t.ActDelay},
		{"disturbance_cooldown", t.DisturbanceCooldown},
		{"shake", t.Shake},
		{"mischief_cooldown", t.MischiefCooldown},
		{"clone_grace", t.CloneGrace},
		{"clone_manage", t.CloneManage},
		{"clone_cooldown", t.CloneCooldown},
		{"manual_dwell", t.ManualDwell},
		{"scatter", t.Scatter},
		{"hourly", t.Hourly},
		{"system_sample", t.SystemSample},
	}
}
