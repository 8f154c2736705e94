// Package config loads the YAML configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"

	"ringos/internal/logging"
	"ringos/kernel"
)

// Config is the whole configuration file.
type Config struct {
	Kernel  kernel.Config  `yaml:"kernel"`
	Host    Host           `yaml:"host"`
	Logging logging.Config `yaml:"logging"`
	Tasks   Tasks          `yaml:"tasks"`
}

// Host configures the desktop runners. The firmware build ignores it.
type Host struct {
	Headless    bool   `yaml:"headless"`
	Hz          int    `yaml:"hz"`
	Ticks       uint64 `yaml:"ticks"`
	StepBudget  int    `yaml:"step_budget"`
	ButtonEvery uint64 `yaml:"button_every"`
	EEPROMPath  string `yaml:"eeprom_path"`
	Scale       int    `yaml:"scale"`
}

type Tasks struct {
	Toggle Toggle `yaml:"toggle"`
	RTCLog RTCLog `yaml:"rtclog"`
}

// Toggle configures the LED toggle task. A button press moves to the next period.
type Toggle struct {
	Periods []Duration `yaml:"periods"`
}

// RTCLog configures the periodic RTC log task.
type RTCLog struct {
	Interval Duration `yaml:"interval"`
	Message  string   `yaml:"message"`
	// Clock12 formats hours as 1-12 with an AM/PM marker.
	Clock12 bool `yaml:"clock12"`
	// Persist appends each line to the EEPROM log.
	Persist bool `yaml:"persist"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Kernel: kernel.Config{}.WithDefaults(),
		Host: Host{
			Hz:         60,
			StepBudget: 4,
			Scale:      2,
		},
		Logging: logging.Config{Level: "info", Console: true},
		Tasks: Tasks{
			Toggle: Toggle{Periods: []Duration{
				Duration(500 * time.Millisecond),
				Duration(250 * time.Millisecond),
				Duration(time.Second),
			}},
			RTCLog: RTCLog{
				Interval: Duration(10 * time.Second),
				Message:  "alive",
				Persist:  true,
			},
		},
	}
}

// Load reads path over the defaults. An empty path returns Default().
//
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode strictly decodes YAML data into cfg, then fills defaults and validates.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("yaml decode: %w", err)
	}
	cfg.applyDefaults()
	return cfg.Validate()
}

func (c *Config) applyDefaults() {
	def := Default()
	c.Kernel = c.Kernel.WithDefaults()
	if c.Host.Hz <= 0 {
		c.Host.Hz = def.Host.Hz
	}
	if c.Host.StepBudget <= 0 {
		c.Host.StepBudget = def.Host.StepBudget
	}
	if c.Host.Scale <= 0 {
		c.Host.Scale = def.Host.Scale
	}
	if len(c.Tasks.Toggle.Periods) == 0 {
		c.Tasks.Toggle.Periods = def.Tasks.Toggle.Periods
	}
	if c.Tasks.RTCLog.Interval <= 0 {
		c.Tasks.RTCLog.Interval = def.Tasks.RTCLog.Interval
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Kernel.MaxMessageID > 1<<15-1 {
		return fmt.Errorf("kernel.max_message_id: %d exceeds %d", c.Kernel.MaxMessageID, 1<<15-1)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	for i, p := range c.Tasks.Toggle.Periods {
		if p <= 0 {
			return fmt.Errorf("tasks.toggle.periods[%d]: must be > 0", i)
		}
	}
	return nil
}

// Duration is a time.Duration written as a Go duration string ("250ms", "10s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var raw string
	if err := n.Decode(&raw); err != nil {
		return err
	}
	v, err := ParseDurationField(fmt.Sprintf("line %d", n.Line), raw)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}
