package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/cstarorch/pkg/types"
	"gopkg.in/yaml.v3"
)

// RetryPolicy bounds the status-probe retry wrapper (§4.5 / §5).
// Generalizes original_source's per-call-site Prefect retry decorators
// into one configurable policy.
type RetryPolicy struct {
	MaxRetries      int           `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	Multiplier      float64       `yaml:"multiplier"`
}

// DefaultRetryPolicy matches spec.md §5's default: "up to 10 retries, 5s
// between attempts" (fixed delay, no backoff growth).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      10,
		InitialInterval: 5 * time.Second,
		Multiplier:      1,
	}
}

// Config is the process-wide configuration loaded once at startup:
// logging, sleep/poll durations, the retry budget, compute-environment
// defaults, and the command-template registry. Modeled on the teacher's
// flat-struct-plus-YAML WarrenResource convention rather than a generic
// key-value framework.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	SleepDuration        time.Duration `yaml:"sleep_duration"`
	LoopDelay            time.Duration `yaml:"loop_delay"`
	HealthCheckFrequency time.Duration `yaml:"health_check_frequency"`

	Retry RetryPolicy `yaml:"retry"`

	ComputeEnvironment map[string]any      `yaml:"compute_environment"`
	CommandTemplates   map[string][]string `yaml:"command_templates"`
}

// Default returns a Config with the values spec.md's §5 defaults imply
// and a minimal command-template registry covering the spec's own
// worked examples ("sleep", "roms_marbl").
func Default() Config {
	return Config{
		LogLevel:             "info",
		LogFormat:            "console",
		SleepDuration:        2 * time.Second,
		LoopDelay:            1 * time.Second,
		HealthCheckFrequency: 30 * time.Second,
		Retry:                DefaultRetryPolicy(),
		ComputeEnvironment:   map[string]any{},
		CommandTemplates: map[string][]string{
			"sleep":      {"sleep"},
			"roms_marbl": {"roms_marbl.exe"},
		},
	}
}

// Load reads a Config from a YAML document at path, filling any fields
// the document omits with Default()'s values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewValidationError("config.Load", fmt.Errorf("reading %s: %w", path, err))
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, types.NewValidationError("config.Load", fmt.Errorf("parsing %s: %w", path, err))
	}

	return &cfg, nil
}

// Executable resolves an application tag to its executable-token
// template. Returns a *types.ValidationError if the application has no
// registered template (spec.md §6: "missing entries cause Task.start to
// fail with an invalid application error").
func (c Config) Executable(application string) ([]string, error) {
	tokens, ok := c.CommandTemplates[application]
	if !ok {
		return nil, types.NewValidationError("config.Executable", fmt.Errorf("no command template registered for application %q", application))
	}
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out, nil
}
