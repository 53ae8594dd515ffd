package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

type (
	Config struct {
		Agent   AgentConfig   `yaml:"agent"`
		Gateway GatewayConfig `yaml:"gateway"`
		Logging LoggingConfig `yaml:"logging"`
		Sched   SchedConfig   `yaml:"sched"`
		Update  UpdateConfig  `yaml:"update"`
	}

	// AgentConfig describes the wrapped CLI. Path points at an explicit
	// executable and wins over Binary, which is a command name resolved
	// through PATH.
	AgentConfig struct {
		Binary      string   `yaml:"binary"`
		Path        string   `yaml:"path"`
		Model       string   `yaml:"model"`
		WorkDir     string   `yaml:"workdir"`
		TimeoutSec  int      `yaml:"timeout_sec"`
		ExtraArgs   []string `yaml:"extra_args"`
		MaxSessions int      `yaml:"max_sessions"`
	}

	GatewayConfig struct {
		Bind            string `yaml:"bind"`
		AuthToken       string `yaml:"auth_token"`
		MetricsBind     string `yaml:"metrics_bind"` // empty disables the metrics listener
		ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
		WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	}

	LoggingConfig struct {
		Level      string `yaml:"level"`  // debug, info, warn, error
		Format     string `yaml:"format"` // json, text
		Output     string `yaml:"output"` // stderr, stdout, file, both
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"` // MB
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"` // days
		Compress   bool   `yaml:"compress"`
	}

	SchedConfig struct {
		Enabled       *bool  `yaml:"enabled"`
		Store         string `yaml:"store"`
		JobTimeoutSec int    `yaml:"job_timeout_sec"`
	}

	UpdateConfig struct {
		Check *bool `yaml:"check"`
	}
)

// Executable resolves what the agent section selects: an explicit path
// beats the command name.
func (a *AgentConfig) Executable() string {
	if a.Path != "" {
		return a.Path
	}
	return a.Binary
}

// UpdateByName replaces one named section of the config, or the whole
// config for name "config".
func (c *Config) UpdateByName(name string, value any) error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "config":
		return setSection(c, name, value)
	case "agent":
		return setSection(&c.Agent, name, value)
	case "gateway":
		return setSection(&c.Gateway, name, value)
	case "logging":
		return setSection(&c.Logging, name, value)
	case "sched":
		return setSection(&c.Sched, name, value)
	case "update":
		return setSection(&c.Update, name, value)
	case "":
		return fmt.Errorf("name is required")
	default:
		return fmt.Errorf("unsupported config name: %s", name)
	}
}

// setSection copies value into dst when value is a non-nil *T.
func setSection[T any](dst *T, name string, value any) error {
	src, ok := value.(*T)
	if !ok || src == nil {
		return fmt.Errorf("name %q requires %T", name, dst)
	}
	*dst = *src
	return nil
}

// Clone deep-copies the config through a sonic round trip.
func (c *Config) Clone() (*Config, error) {
	if c == nil {
		return nil, fmt.Errorf("config is nil")
	}

	raw, err := sonic.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	var cloned Config
	if err := sonic.Unmarshal(raw, &cloned); err != nil {
		return nil, fmt.Errorf("unmarshal config clone: %w", err)
	}
	return &cloned, nil
}

// canonical marshals with sorted map keys, so equal configs always hash the
// same.
var canonical = sonic.Config{SortMapKeys: true, UseNumber: true}.Froze()

// Hash returns a short content hash of the config, used as the expectation
// token for compare-and-swap updates.
func (c *Config) Hash() string {
	raw, _ := canonical.Marshal(c)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
