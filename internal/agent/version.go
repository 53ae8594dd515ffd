package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/slipwaylabs/slipway/internal/pkg/utils"
	"github.com/slipwaylabs/slipway/internal/runner"
)

const versionProbeTimeout = 10 * time.Second

// Version probes the CLI with --version and returns the parsed version
// string. The CLI ships calendar versions (year.month.day-build), which
// parse as semver with a prerelease component.
func (a *Agent) Version(ctx context.Context) (string, error) {
	rr, err := a.exec.Run(ctx, &runner.RunRequest{
		Command: a.Binary(),
		Args:    []string{"--version"},
		Timeout: versionProbeTimeout,
	})
	if err != nil {
		return "", err
	}
	if rr.ExitCode != 0 {
		return "", fmt.Errorf("version probe exited %d: %s",
			rr.ExitCode, utils.Truncate80(strings.TrimSpace(rr.Stderr)))
	}

	v := parseVersionOutput(rr.Stdout)
	if v == "" {
		return "", fmt.Errorf("no version in probe output: %s",
			utils.Truncate80(strings.TrimSpace(rr.Stdout)))
	}
	return v, nil
}

// parseVersionOutput finds the first semver-parseable token, tolerating a
// leading "v" and surrounding banner text.
func parseVersionOutput(out string) string {
	for _, field := range strings.Fields(out) {
		field = strings.TrimPrefix(field, "v")
		if ver, err := semver.NewVersion(field); err == nil {
			return ver.Original()
		}
	}
	return ""
}
