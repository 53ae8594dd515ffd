package agent

import (
	"context"
	"reflect"
	"testing"

	"github.com/slipwaylabs/slipway/internal/runner"
)

func TestVersion(t *testing.T) {
	fake := &fakeExecutor{runRes: &runner.RunResult{Stdout: "2025.1.30-bb2222\n"}}
	a := New(Options{}, fake)

	v, err := a.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v != "2025.1.30-bb2222" {
		t.Fatalf("Version() = %q, want %q", v, "2025.1.30-bb2222")
	}

	req := fake.last()
	if !reflect.DeepEqual(req.Args, []string{"--version"}) {
		t.Fatalf("probe args = %v, want [--version]", req.Args)
	}
	if req.Timeout != versionProbeTimeout {
		t.Fatalf("probe timeout = %v, want %v", req.Timeout, versionProbeTimeout)
	}
}

func TestVersionNonZeroExit(t *testing.T) {
	fake := &fakeExecutor{runRes: &runner.RunResult{ExitCode: 127, Stderr: "not installed"}}
	a := New(Options{}, fake)

	if _, err := a.Version(context.Background()); err == nil {
		t.Fatal("expected error for non-zero probe exit")
	}
}

func TestVersionUnparseableOutput(t *testing.T) {
	fake := &fakeExecutor{runRes: &runner.RunResult{Stdout: "command not recognized"}}
	a := New(Options{}, fake)

	if _, err := a.Version(context.Background()); err == nil {
		t.Fatal("expected error when no version is present")
	}
}

func TestParseVersionOutput(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{name: "bare version", out: "2025.1.30-bb2222", want: "2025.1.30-bb2222"},
		{name: "leading v", out: "v1.2.3", want: "1.2.3"},
		{name: "banner text", out: "cursor-agent version v2025.1.30-bb2222", want: "2025.1.30-bb2222"},
		{name: "trailing newline", out: "0.9.1\n", want: "0.9.1"},
		{name: "no version", out: "usage: agent [flags]", want: ""},
		{name: "empty", out: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseVersionOutput(tt.out); got != tt.want {
				t.Fatalf("parseVersionOutput(%q) = %q, want %q", tt.out, got, tt.want)
			}
		})
	}
}
