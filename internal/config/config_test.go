package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slipwaylabs/slipway/internal/consts"
)

func TestValidateFillsDefaults(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Agent.Binary != consts.DefaultAgentBinary {
		t.Fatalf("agent.binary = %q, want %q", cfg.Agent.Binary, consts.DefaultAgentBinary)
	}
	if cfg.Agent.TimeoutSec != defaultAgentTimeoutSec {
		t.Fatalf("agent.timeout_sec = %d, want %d", cfg.Agent.TimeoutSec, defaultAgentTimeoutSec)
	}
	if cfg.Agent.MaxSessions != defaultMaxSessions {
		t.Fatalf("agent.max_sessions = %d, want %d", cfg.Agent.MaxSessions, defaultMaxSessions)
	}
	if cfg.Gateway.Bind != defaultGatewayBind {
		t.Fatalf("gateway.bind = %q, want %q", cfg.Gateway.Bind, defaultGatewayBind)
	}
	if cfg.Gateway.WriteTimeoutSec != cfg.Agent.TimeoutSec+30 {
		t.Fatalf("gateway.write_timeout_sec = %d, want %d", cfg.Gateway.WriteTimeoutSec, cfg.Agent.TimeoutSec+30)
	}
	if cfg.Sched.Enabled == nil || !*cfg.Sched.Enabled {
		t.Fatal("sched.enabled should default to true")
	}
	if cfg.Sched.Store == "" {
		t.Fatal("sched.store should default to a path")
	}
	if cfg.Update.Check == nil || !*cfg.Update.Check {
		t.Fatal("update.check should default to true")
	}
}

func TestValidateRejectsBadBind(t *testing.T) {
	cfg := &Config{Gateway: GatewayConfig{Bind: "no-port"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bind without a port")
	}

	cfg = &Config{Gateway: GatewayConfig{MetricsBind: "10.0.0.1"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for metrics bind without a port")
	}
}

func TestValidateWriteTimeoutTracksAgentTimeout(t *testing.T) {
	cfg := &Config{Agent: AgentConfig{TimeoutSec: 1800}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Gateway.WriteTimeoutSec != 1830 {
		t.Fatalf("gateway.write_timeout_sec = %d, want 1830", cfg.Gateway.WriteTimeoutSec)
	}
}

func TestExecutablePrecedence(t *testing.T) {
	a := AgentConfig{Binary: "cursor-agent"}
	if got := a.Executable(); got != "cursor-agent" {
		t.Fatalf("Executable() = %q, want the binary name", got)
	}
	a.Path = "/opt/bin/cursor-agent"
	if got := a.Executable(); got != "/opt/bin/cursor-agent" {
		t.Fatalf("Executable() = %q, want the explicit path", got)
	}
}

func TestUpdateByName(t *testing.T) {
	cfg := Default()

	if err := cfg.UpdateByName("agent", &AgentConfig{Binary: "other-agent"}); err != nil {
		t.Fatalf("UpdateByName(agent): %v", err)
	}
	if cfg.Agent.Binary != "other-agent" {
		t.Fatalf("agent.binary = %q, want %q", cfg.Agent.Binary, "other-agent")
	}

	if err := cfg.UpdateByName("agent", "not a struct"); err == nil {
		t.Fatal("expected error for wrong value type")
	}
	if err := cfg.UpdateByName("bogus", &AgentConfig{}); err == nil {
		t.Fatal("expected error for unknown section name")
	}
	if err := cfg.UpdateByName("", &AgentConfig{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	cfg.Agent.ExtraArgs = []string{"--force"}

	clone, err := cfg.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	clone.Agent.ExtraArgs[0] = "--changed"
	clone.Agent.Model = "gpt-5"

	if cfg.Agent.ExtraArgs[0] != "--force" {
		t.Fatalf("original extra_args mutated: %v", cfg.Agent.ExtraArgs)
	}
	if cfg.Agent.Model == "gpt-5" {
		t.Fatal("original model mutated through clone")
	}
}

func TestHashChangesWithContent(t *testing.T) {
	a := Default()
	b := Default()
	if a.Hash() != b.Hash() {
		t.Fatal("identical configs should hash equal")
	}

	b.Agent.Model = "gpt-5"
	if a.Hash() == b.Hash() {
		t.Fatal("different configs should hash differently")
	}
}

func TestManagerLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	ins := &Manager{}
	cfg, err := ins.LoadOrDefault(path)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Agent.Binary != consts.DefaultAgentBinary {
		t.Fatalf("default binary = %q, want %q", cfg.Agent.Binary, consts.DefaultAgentBinary)
	}

	if err := ins.Apply("agent", &AgentConfig{Binary: "custom-agent", Model: "gpt-5"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := ins.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	ins2 := &Manager{}
	got, err := ins2.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Agent.Binary != "custom-agent" || got.Agent.Model != "gpt-5" {
		t.Fatalf("reloaded agent = %+v", got.Agent)
	}
}

func TestManagerGetBeforeLoad(t *testing.T) {
	ins := &Manager{}
	if _, err := ins.Get(); err == nil {
		t.Fatal("expected error before Load")
	}
}

func TestManagerCASConflict(t *testing.T) {
	ins := &Manager{}
	if _, err := ins.LoadOrDefault(filepath.Join(t.TempDir(), "config.yaml")); err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}

	hash, err := ins.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if err := ins.ApplyWithCAS("agent", &AgentConfig{Model: "gpt-5"}, hash); err != nil {
		t.Fatalf("ApplyWithCAS with current hash: %v", err)
	}

	// The first apply moved the hash, so the stale one must be rejected.
	err = ins.ApplyWithCAS("agent", &AgentConfig{Model: "other"}, hash)
	if !errors.Is(err, ErrConfigConflict) {
		t.Fatalf("ApplyWithCAS with stale hash: %v, want ErrConfigConflict", err)
	}
}

func TestSaveKeepsBackupOfPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	ins := &Manager{}
	if _, err := ins.LoadOrDefault(path); err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if err := ins.Save(); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	if err := ins.Apply("agent", &AgentConfig{Model: "gpt-5"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := ins.Save(); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	backups := 0
	for _, e := range entries {
		if isBackupName(e.Name()) {
			backups++
		}
	}
	if backups != 1 {
		t.Fatalf("backup files = %d, want 1", backups)
	}
}

func TestPruneBackupsKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	var names []string
	for i := 0; i < keepBackups+3; i++ {
		name := fmt.Sprintf("%s%s20260101-00000%d", path, backupInfix, i)
		if err := os.WriteFile(name, []byte("old"), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		names = append(names, name)
	}

	pruneBackups(path)

	for i, name := range names {
		_, err := os.Stat(name)
		if i < 3 && !os.IsNotExist(err) {
			t.Errorf("old backup %s survived pruning", filepath.Base(name))
		}
		if i >= 3 && err != nil {
			t.Errorf("recent backup %s was pruned: %v", filepath.Base(name), err)
		}
	}
}
