package updater

import (
	"context"
	"time"

	"github.com/slipwaylabs/slipway/internal/pkg/logs"
)

const defaultCheckInterval = 6 * time.Hour

// StartCheckLoop periodically checks for a newer release and logs when one
// appears. It never downloads anything; installing stays behind
// `slipway update`. Pass interval <= 0 to use the default.
func StartCheckLoop(ctx context.Context, u *Updater, interval time.Duration) {
	if interval <= 0 {
		interval = defaultCheckInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	checkOnce(ctx, u)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkOnce(ctx, u)
		}
	}
}

func checkOnce(ctx context.Context, u *Updater) {
	release, err := u.Check(ctx)
	if err != nil {
		logs.CtxDebug(ctx, "update check failed: %v", err)
		return
	}
	if release == nil {
		logs.CtxDebug(ctx, "update check: already up to date")
		return
	}
	logs.CtxInfo(ctx, "slipway %s is available (running %s), run `slipway update` to install",
		release.TagName, u.currentVersion)
}
