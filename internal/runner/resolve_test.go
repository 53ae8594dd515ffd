package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slipwaylabs/slipway/internal/consts"
)

// writeVersionTree builds root/versions/<name>/ with the bundled interpreter
// and entry script, returning the version directory path.
func writeVersionTree(t *testing.T, root, name string) string {
	t.Helper()
	vdir := filepath.Join(root, versionsDirName, name)
	if err := os.MkdirAll(vdir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", vdir, err)
	}
	for _, f := range []string{interpreterName, entryScriptName} {
		if err := os.WriteFile(filepath.Join(vdir, f), []byte("stub"), 0o755); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	return vdir
}

func TestLatestVersionDirLexicographicOrder(t *testing.T) {
	root := t.TempDir()
	versions := filepath.Join(root, versionsDirName)
	for _, name := range []string{"2024.1.2-abc123", "2024.10.1-def456"} {
		if err := os.MkdirAll(filepath.Join(versions, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}

	got, ok := latestVersionDir(versions)
	if !ok {
		t.Fatal("expected a latest version directory")
	}
	// String order picks 2024.10.1 even though 2024.1.2 is chronologically
	// earlier; the selection is lexicographic on purpose.
	if filepath.Base(got) != "2024.10.1-def456" {
		t.Fatalf("expected 2024.10.1-def456, got %q", filepath.Base(got))
	}
}

func TestLatestVersionDirIgnoresNonMatchingEntries(t *testing.T) {
	root := t.TempDir()
	versions := filepath.Join(root, versionsDirName)
	if err := os.MkdirAll(filepath.Join(versions, "2025.3.14-7a1b2c"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"latest", "v2025.3.15-aa", "2025.3-aa", "2025.03.14", "25.3.14-aa"} {
		if err := os.MkdirAll(filepath.Join(versions, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	// A matching NAME that is a plain file must be skipped too.
	if err := os.WriteFile(filepath.Join(versions, "2025.3.15-9d8c7b"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, ok := latestVersionDir(versions)
	if !ok {
		t.Fatal("expected a latest version directory")
	}
	if filepath.Base(got) != "2025.3.14-7a1b2c" {
		t.Fatalf("expected 2025.3.14-7a1b2c, got %q", filepath.Base(got))
	}
}

func TestLatestVersionDirAbsentOrUnreadable(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		if _, ok := latestVersionDir(filepath.Join(t.TempDir(), "nope")); ok {
			t.Fatal("expected no result for a missing directory")
		}
	})

	t.Run("listing failure", func(t *testing.T) {
		// A regular file makes ReadDir fail the same way a permission
		// error would; the failure must stay internal.
		file := filepath.Join(t.TempDir(), "versions")
		if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, ok := latestVersionDir(file); ok {
			t.Fatal("expected no result when listing fails")
		}
	})

	t.Run("no matching entries", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, "not-a-version"), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if _, ok := latestVersionDir(dir); ok {
			t.Fatal("expected no result without version-named entries")
		}
	})
}

func TestRedirectFromRoot(t *testing.T) {
	root := t.TempDir()
	writeVersionTree(t, root, "2025.1.2-0aa111")
	vdir := writeVersionTree(t, root, "2025.1.30-bb2222")

	inv, ok := redirectFromRoot(root, []string{"-p", "hello"})
	if !ok {
		t.Fatal("expected a redirected invocation")
	}
	if inv.program != filepath.Join(vdir, interpreterName) {
		t.Fatalf("unexpected interpreter: %q", inv.program)
	}
	if len(inv.argv) != 3 || inv.argv[0] != filepath.Join(vdir, entryScriptName) {
		t.Fatalf("entry script not prepended: %+v", inv.argv)
	}
	if inv.argv[1] != "-p" || inv.argv[2] != "hello" {
		t.Fatalf("caller arguments mangled: %+v", inv.argv)
	}
}

func TestRedirectFromRootRequiresBundledFiles(t *testing.T) {
	root := t.TempDir()
	vdir := writeVersionTree(t, root, "2025.6.7-cc3333")
	if err := os.Remove(filepath.Join(vdir, interpreterName)); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, ok := redirectFromRoot(root, nil); ok {
		t.Fatal("expected no redirection without the bundled interpreter")
	}
}

func TestHasWrapperSuffix(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"cursor-agent.cmd", true},
		{"cursor-agent.bat", true},
		{"CURSOR-AGENT.CMD", true},
		{filepath.Join("some", "dir", "tool.cmd"), true},
		{"cursor-agent", false},
		{"tool.exe", false},
		{"tool.cmd.txt", false},
	}
	for _, c := range cases {
		if got := hasWrapperSuffix(c.path); got != c.want {
			t.Fatalf("hasWrapperSuffix(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestLooksLikeAgentWrapper(t *testing.T) {
	cases := []struct {
		command string
		want    bool
	}{
		{consts.DefaultAgentBinary, true},
		{consts.DefaultAgentBinary + ".cmd", true},
		{filepath.Join("bin", consts.DefaultAgentBinary), true},
		{filepath.Join("bin", "anything.bat"), true},
		{"sh", false},
		{filepath.Join("bin", "other-tool"), false},
	}
	for _, c := range cases {
		if got := looksLikeAgentWrapper(c.command); got != c.want {
			t.Fatalf("looksLikeAgentWrapper(%q) = %v, want %v", c.command, got, c.want)
		}
	}
}

func TestJoinCommandLine(t *testing.T) {
	got := joinCommandLine("cursor-agent.cmd", []string{"-p", "two words", ""})
	want := `cursor-agent.cmd -p "two words" ""`
	if got != want {
		t.Fatalf("joinCommandLine = %q, want %q", got, want)
	}

	if got := joinCommandLine("tool", nil); got != "tool" {
		t.Fatalf("joinCommandLine without args = %q", got)
	}
	if !strings.Contains(joinCommandLine(`C:\Program Files\tool.cmd`, nil), `"`) {
		t.Fatal("path with spaces must be quoted")
	}
}
