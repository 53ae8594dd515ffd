package runner

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/slipwaylabs/slipway/internal/consts"
)

// resolvedInvocation is the concrete program and argument vector for one
// request after optional wrapper redirection. Computed once per invocation,
// never stored.
type resolvedInvocation struct {
	program string
	argv    []string
}

// Windows installs of the agent CLI place a wrapper script on PATH next to a
// "versions" directory; each versioned subdirectory bundles its own
// interpreter and entry script.
const (
	versionsDirName = "versions"
	interpreterName = "node.exe"
	entryScriptName = "index.js"
)

var wrapperSuffixes = []string{".cmd", ".bat"}

// versionDirPattern matches install directories named
// <year>.<month>.<day>-<hex build id>, e.g. 2025.4.9-1ab2c3d.
var versionDirPattern = regexp.MustCompile(`^\d{4}\.\d{1,2}\.\d{1,2}-[0-9a-f]+$`)

func hasWrapperSuffix(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range wrapperSuffixes {
		if ext == s {
			return true
		}
	}
	return false
}

// looksLikeAgentWrapper reports whether a command may be the agent's wrapper
// script rather than a real executable: the bare agent name, or any path
// with a wrapper suffix.
func looksLikeAgentWrapper(command string) bool {
	base := filepath.Base(command)
	return base == consts.DefaultAgentBinary || hasWrapperSuffix(base)
}

// latestVersionDir returns the lexicographically greatest version-named
// subdirectory of dir. The install layout does not zero-pad months or days,
// so string order tracks date order only when digit widths agree. Any
// listing failure reports no result.
func latestVersionDir(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	best := ""
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if !versionDirPattern.MatchString(name) {
			continue
		}
		if name > best {
			best = name
		}
	}
	if best == "" {
		return "", false
	}
	return filepath.Join(dir, best), true
}

// redirectFromRoot builds the redirected invocation for an install root (the
// directory holding "versions"): the latest version's bundled interpreter
// with its entry script prepended to the caller's arguments. Absence of any
// piece yields no redirection.
func redirectFromRoot(root string, args []string) (resolvedInvocation, bool) {
	vdir, ok := latestVersionDir(filepath.Join(root, versionsDirName))
	if !ok {
		return resolvedInvocation{}, false
	}
	interp := filepath.Join(vdir, interpreterName)
	entry := filepath.Join(vdir, entryScriptName)
	if _, err := os.Stat(interp); err != nil {
		return resolvedInvocation{}, false
	}
	if _, err := os.Stat(entry); err != nil {
		return resolvedInvocation{}, false
	}
	return resolvedInvocation{
		program: interp,
		argv:    append([]string{entry}, args...),
	}, true
}

// joinCommandLine renders a command and its arguments as a single
// interpreter command string, quoting parts containing whitespace.
func joinCommandLine(command string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, p := range append([]string{command}, args...) {
		if p == "" || strings.ContainsAny(p, " \t") {
			p = `"` + p + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
