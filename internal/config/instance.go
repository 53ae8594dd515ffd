package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/slipwaylabs/slipway/internal/consts"
)

// ErrConfigConflict reports a compare-and-swap update whose expected hash no
// longer matches the live config.
var ErrConfigConflict = errors.New("config conflict")

var std = &Manager{}

// Manager owns the live config of one process. Reads hand out clones, so
// callers can never mutate shared state behind the manager's back.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  *Config // nil until Load
	hash string
}

// Default returns a config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	// Validation on a zero value only fills defaults.
	_ = cfg.Validate()
	return cfg
}

// Load reads and validates the config at path. An empty path falls back to
// the previously loaded path, then to the standard location.
func (m *Manager) Load(path string) (*Config, error) {
	return m.load(path, false)
}

// LoadOrDefault behaves like Load but falls back to defaults when the file
// does not exist. The manager remembers the path either way, so a later
// Save creates the file.
func (m *Manager) LoadOrDefault(path string) (*Config, error) {
	return m.load(path, true)
}

func (m *Manager) load(path string, tolerateMissing bool) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = m.resolvePath(path)
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	cfg, err := readConfigFile(path)
	switch {
	case err == nil:
	case tolerateMissing && errors.Is(err, fs.ErrNotExist):
		cfg = Default()
	default:
		return nil, err
	}

	m.path = path
	m.cfg = cfg
	m.hash = cfg.Hash()
	return cfg.Clone()
}

func (m *Manager) resolvePath(path string) string {
	if path = strings.TrimSpace(path); path != "" {
		return path
	}
	if m.path != "" {
		return m.path
	}
	return consts.DefaultConfigPath()
}

// Get returns a clone of the loaded config.
func (m *Manager) Get() (*Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cfg == nil {
		return nil, fmt.Errorf("config is not loaded")
	}
	return m.cfg.Clone()
}

// Hash returns the hash of the current in-memory config, for use as the
// expected value of a later ApplyWithCAS.
func (m *Manager) Hash() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cfg == nil {
		return "", fmt.Errorf("config is not loaded")
	}
	return m.hash, nil
}

// Apply updates the named section in memory. The change is validated against
// a clone first, so a rejected update leaves the live config untouched.
func (m *Manager) Apply(name string, value any) error {
	return m.ApplyWithCAS(name, value, "")
}

// ApplyWithCAS is Apply guarded by a hash comparison: when expectedHash is
// non-empty and the live config has moved on, the update is rejected with
// ErrConfigConflict instead of clobbering the concurrent change.
func (m *Manager) ApplyWithCAS(name string, value any, expectedHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg == nil {
		return fmt.Errorf("config is not loaded")
	}
	expectedHash = strings.TrimSpace(expectedHash)
	if expectedHash != "" && expectedHash != m.hash {
		return fmt.Errorf("%w: expected %s, got %s", ErrConfigConflict, expectedHash, m.hash)
	}

	draft, err := m.cfg.Clone()
	if err != nil {
		return err
	}
	if err := draft.UpdateByName(name, value); err != nil {
		return err
	}
	if err := draft.Validate(); err != nil {
		return err
	}

	m.cfg = draft
	m.hash = draft.Hash()
	return nil
}

// Save writes the in-memory config back to its file.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg == nil {
		return fmt.Errorf("config is not loaded")
	}
	if m.path == "" {
		return fmt.Errorf("config path is required")
	}
	if err := writeConfigFile(m.path, m.cfg); err != nil {
		return err
	}
	m.hash = m.cfg.Hash()
	return nil
}

// Package-level wrappers over the process-wide manager.

func Load(path string) (*Config, error)          { return std.Load(path) }
func LoadOrDefault(path string) (*Config, error) { return std.LoadOrDefault(path) }
func Get() (*Config, error)                      { return std.Get() }
func Hash() (string, error)                      { return std.Hash() }
func Apply(name string, value any) error         { return std.Apply(name, value) }
func Save() error                                { return std.Save() }

func ApplyWithCAS(name string, value any, expectedHash string) error {
	return std.ApplyWithCAS(name, value, expectedHash)
}
