package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	lockPoll    = 50 * time.Millisecond
	lockWait    = 5 * time.Second
	lockStale   = 30 * time.Second
	keepBackups = 5

	backupInfix = ".bak-"
)

func readConfigFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// writeConfigFile persists cfg under a lock: back up the previous file if
// one exists, then swap in the new content atomically.
func writeConfigFile(path string, cfg *Config) error {
	raw, err := encodeYAML(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	release, err := lockFile(path + ".lock")
	if err != nil {
		return fmt.Errorf("lock config file: %w", err)
	}
	defer release()

	mode := os.FileMode(0o600)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
		if err := backupFile(path, mode); err != nil {
			return err
		}
		pruneBackups(path)
	} else if !os.IsNotExist(statErr) {
		return fmt.Errorf("stat config file: %w", statErr)
	}

	return writeFileAtomic(path, raw, mode)
}

func encodeYAML(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return append(bytes.TrimRight(buf.Bytes(), "\n"), '\n'), nil
}

// writeFileAtomic writes by way of a temp file in the same directory plus a
// rename, so readers never observe a half-written config.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpPath, mode)
	}
	if werr == nil {
		werr = os.Rename(tmpPath, path)
	}
	if werr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write config file: %w", werr)
	}
	return nil
}

// lockFile takes an advisory lock through O_EXCL creation of lockPath. A
// lock older than lockStale is treated as left behind by a dead process and
// broken. The returned func releases the lock.
func lockFile(lockPath string) (func(), error) {
	deadline := time.Now().Add(lockWait)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > lockStale {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("held by another process for over %s", lockWait)
		}
		time.Sleep(lockPoll)
	}
}

// backupFile copies path to path.bak-<stamp>, appending a counter when two
// saves land within the same second.
func backupFile(path string, mode os.FileMode) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config for backup: %w", err)
	}
	defer src.Close()

	stamp := time.Now().Format("20060102-150405")
	name := path + backupInfix + stamp
	for i := 1; ; i++ {
		dst, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
		if os.IsExist(err) {
			name = fmt.Sprintf("%s%s%s.%d", path, backupInfix, stamp, i)
			continue
		}
		if err != nil {
			return fmt.Errorf("create config backup: %w", err)
		}
		if _, err := io.Copy(dst, src); err != nil {
			_ = dst.Close()
			_ = os.Remove(name)
			return fmt.Errorf("copy config backup: %w", err)
		}
		if err := dst.Close(); err != nil {
			_ = os.Remove(name)
			return fmt.Errorf("close config backup: %w", err)
		}
		return nil
	}
}

// pruneBackups drops the oldest backups beyond keepBackups. The bak- stamp
// sorts lexically in age order.
func pruneBackups(path string) {
	files, err := filepath.Glob(path + backupInfix + "*")
	if err != nil || len(files) <= keepBackups {
		return
	}
	sort.Strings(files)
	for _, f := range files[:len(files)-keepBackups] {
		_ = os.Remove(f)
	}
}

func isBackupName(name string) bool {
	return strings.Contains(name, backupInfix)
}
