//go:build !windows

package runner

// resolveInvocation is the identity outside Windows: wrapper-script
// indirection only exists in the Windows install layout.
func resolveInvocation(command string, args []string) resolvedInvocation {
	return resolvedInvocation{program: command, argv: args}
}
