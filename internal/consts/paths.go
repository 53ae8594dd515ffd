package consts

import (
	"os"
	"path/filepath"
)

const (
	SlipwayDirName = ".slipway"
	ConfigFileName = "config.yaml"
	JobsFileName   = "jobs.json"
	LogFileName    = "slipway.log"

	// DefaultAgentBinary is the CLI slipway drives unless configured
	// otherwise.
	DefaultAgentBinary = "cursor-agent"
)

// Environment variables recognized for locating the agent CLI. Both are
// consulted before falling back to PATH lookup, and both are named in the
// not-found remediation hint.
const (
	EnvAgentPath = "SLIPWAY_AGENT_PATH"
	EnvAgentHome = "SLIPWAY_AGENT_HOME"
)

func SlipwayHomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, SlipwayDirName)
}

func DefaultConfigPath() string {
	return filepath.Join(SlipwayHomeDir(), ConfigFileName)
}

func DefaultJobsPath() string {
	return filepath.Join(SlipwayHomeDir(), JobsFileName)
}

func DefaultLogPath() string {
	return filepath.Join(SlipwayHomeDir(), "logs", LogFileName)
}
