//go:build windows

package runner

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/slipwaylabs/slipway/internal/consts"
)

// resolveInvocation computes the actual program and argv for a request.
// Wrapper scripts cannot be spawned directly on Windows, so agent-looking
// commands are redirected to the bundled interpreter of the latest installed
// version, or failing that, run through the command interpreter. Resolution
// is best-effort: every failure inside it degrades to direct invocation, not
// to an error.
func resolveInvocation(command string, args []string) resolvedInvocation {
	if !looksLikeAgentWrapper(command) {
		return resolvedInvocation{program: command, argv: args}
	}

	if home := os.Getenv(consts.EnvAgentHome); home != "" {
		if red, ok := redirectFromRoot(home, args); ok {
			return red
		}
	}

	wrapper := command
	if filepath.Base(command) == command && !hasWrapperSuffix(command) {
		// Bare agent name: locate the wrapper script on PATH first.
		p, err := exec.LookPath(command)
		if err != nil {
			return shellFallback(command, args)
		}
		if !hasWrapperSuffix(p) {
			// The name resolves to a real executable, no indirection needed.
			return resolvedInvocation{program: command, argv: args}
		}
		wrapper = p
	}
	if red, ok := redirectFromRoot(filepath.Dir(wrapper), args); ok {
		return red
	}

	return shellFallback(command, args)
}

// shellFallback runs the wrapper through the command interpreter named by
// COMSPEC (cmd.exe when unset). /d suppresses AutoRun commands, /s keeps
// quote handling predictable, /c executes the joined command string.
func shellFallback(command string, args []string) resolvedInvocation {
	interp := os.Getenv("COMSPEC")
	if interp == "" {
		interp = "cmd.exe"
	}
	return resolvedInvocation{
		program: interp,
		argv:    []string{"/d", "/s", "/c", joinCommandLine(command, args)},
	}
}
