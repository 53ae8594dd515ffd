// Package updater checks GitHub releases for a newer slipway build and can
// swap the running binary in place.
package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/bytedance/sonic"

	"github.com/slipwaylabs/slipway"
	"github.com/slipwaylabs/slipway/internal/pkg/logs"
)

const (
	releaseAPI     = "https://api.github.com/repos/slipwaylabs/slipway/releases/latest"
	checksumsAsset = "checksums.txt"
)

// Release is the slice of the GitHub release object the updater reads.
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

func (r *Release) asset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Updater talks to the GitHub releases API for the slipway repo.
type Updater struct {
	currentVersion string
	api            string
	client         *http.Client
}

// New creates an Updater pinned to the current build version.
func New() *Updater {
	return &Updater{
		currentVersion: slipway.VERSION,
		api:            releaseAPI,
		client:         &http.Client{},
	}
}

// Check fetches the latest release and returns it if it is newer than the
// running build. A nil release with a nil error means already up to date.
func (u *Updater) Check(ctx context.Context) (*Release, error) {
	if u.currentVersion == "" || u.currentVersion == "n/a" {
		return nil, fmt.Errorf("current version unknown (built without -ldflags); cannot check for updates")
	}
	local, err := semver.NewVersion(u.currentVersion)
	if err != nil {
		return nil, fmt.Errorf("parse local version %q: %w", u.currentVersion, err)
	}

	release, err := u.latestRelease(ctx)
	if err != nil {
		return nil, err
	}
	remote, err := semver.NewVersion(release.TagName)
	if err != nil {
		return nil, fmt.Errorf("parse remote version %q: %w", release.TagName, err)
	}

	if !remote.GreaterThan(local) {
		return nil, nil
	}
	return release, nil
}

func (u *Updater) latestRelease(ctx context.Context) (*Release, error) {
	body, err := u.get(ctx, u.api, "application/vnd.github+json")
	if err != nil {
		return nil, fmt.Errorf("fetch latest release: %w", err)
	}

	var release Release
	if err := sonic.Unmarshal(body, &release); err != nil {
		return nil, fmt.Errorf("decode release: %w", err)
	}
	return &release, nil
}

// Download fetches the release archive for the current platform into
// targetDir, verifies its checksum when the release publishes one, and
// returns the path of the extracted binary.
func (u *Updater) Download(ctx context.Context, release *Release, targetDir string) (string, error) {
	name := archiveName(release.TagName)
	archive, ok := release.asset(name)
	if !ok {
		return "", fmt.Errorf("release %s has no asset for %s/%s", release.TagName, runtime.GOOS, runtime.GOARCH)
	}

	want := u.expectedChecksum(ctx, release, name)

	archivePath := filepath.Join(targetDir, name)
	if err := u.fetchToFile(ctx, archive.BrowserDownloadURL, archivePath); err != nil {
		return "", fmt.Errorf("download archive: %w", err)
	}

	if want != "" {
		got, err := fileSHA256(archivePath)
		if err != nil {
			return "", fmt.Errorf("compute checksum: %w", err)
		}
		if got != want {
			_ = os.Remove(archivePath)
			return "", fmt.Errorf("checksum mismatch: expected %s, got %s", want, got)
		}
	}

	binaryPath, err := extractBinary(archivePath, targetDir)
	if err != nil {
		return "", fmt.Errorf("extract binary: %w", err)
	}
	_ = os.Remove(archivePath)
	return binaryPath, nil
}

// expectedChecksum returns the published sha256 for name, or "" when the
// release carries no checksums or they cannot be fetched. Verification is
// best effort, a missing checksums file does not block the update.
func (u *Updater) expectedChecksum(ctx context.Context, release *Release, name string) string {
	sums, ok := release.asset(checksumsAsset)
	if !ok {
		return ""
	}
	body, err := u.get(ctx, sums.BrowserDownloadURL, "")
	if err != nil {
		logs.CtxWarn(ctx, "fetch checksums failed, skipping verification: %v", err)
		return ""
	}
	want, err := lookupChecksum(body, name)
	if err != nil {
		logs.CtxWarn(ctx, "read checksums failed, skipping verification: %v", err)
		return ""
	}
	return want
}

// Apply replaces the current binary with the one at newBinaryPath. The old
// binary is parked next to it until the swap succeeds, and moved back if it
// does not.
func (u *Updater) Apply(newBinaryPath string) error {
	current, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate current executable: %w", err)
	}
	if current, err = filepath.EvalSymlinks(current); err != nil {
		return fmt.Errorf("resolve executable symlinks: %w", err)
	}

	parked := current + ".bak"
	_ = os.Remove(parked) // leftover from an earlier attempt

	if err := os.Rename(current, parked); err != nil {
		return fmt.Errorf("park current binary: %w", err)
	}
	if err := os.Rename(newBinaryPath, current); err != nil {
		if backErr := os.Rename(parked, current); backErr != nil {
			return fmt.Errorf("install failed (%v) and restoring the old binary also failed (%v)", err, backErr)
		}
		return fmt.Errorf("install new binary (old one restored): %w", err)
	}

	if err := os.Chmod(current, 0o755); err != nil {
		logs.Warn("chmod new binary: %v", err)
	}
	_ = os.Remove(parked)
	return nil
}

func archiveName(tag string) string {
	return fmt.Sprintf("slipway_%s_%s_%s.tar.gz", tag, runtime.GOOS, runtime.GOARCH)
}

// get performs a GET and returns the whole body of a 200 response.
func (u *Updater) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// fetchToFile streams a GET response into destPath.
func (u *Updater) fetchToFile(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
