package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/slipwaylabs/slipway/internal/agent"
	"github.com/slipwaylabs/slipway/internal/config"
	"github.com/slipwaylabs/slipway/internal/consts"
	"github.com/slipwaylabs/slipway/internal/pkg/utils"
)

var initHwd = &InitRunner{}

type InitRunner struct {
	scanner *bufio.Scanner
}

func (r *InitRunner) cmd() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "Interactive setup wizard for first-time configuration",
		Action: r.run,
	}
}

// ── style helpers ──────────────────────────────────────────────────

var (
	cBanner  = color.New(color.FgCyan, color.Bold)
	cStep    = color.New(color.FgCyan, color.Bold)
	cWarn    = color.New(color.FgYellow)
	cSuccess = color.New(color.FgGreen)
	cError   = color.New(color.FgRed)
	cPrompt  = color.New(color.FgWhite, color.Bold)
	cDim     = color.New(color.FgHiBlack)
)

// ── main flow ──────────────────────────────────────────────────────

func (r *InitRunner) run(ctx context.Context, cmd *cli.Command) error {
	r.scanner = bufio.NewScanner(os.Stdin)

	cfgPath := configPath(cmd)
	if _, err := os.Stat(cfgPath); err == nil {
		cWarn.Printf("  Config already exists at %s\n", cfgPath)
		if !r.confirm("  Overwrite existing config?", false) {
			fmt.Println("  Aborted.")
			return nil
		}
		fmt.Println()
	}

	r.printWelcome()

	binary := r.stepAgent(ctx)
	model := r.stepModel()
	bind, token := r.stepAPI()

	return r.stepConfirm(cfgPath, binary, model, bind, token)
}

// ── welcome ────────────────────────────────────────────────────────

func (r *InitRunner) printWelcome() {
	fmt.Println()
	cBanner.Println("  ███████╗██╗     ██╗██████╗ ██╗    ██╗ █████╗ ██╗   ██╗")
	cBanner.Println("  ██╔════╝██║     ██║██╔══██╗██║    ██║██╔══██╗╚██╗ ██╔╝")
	cBanner.Println("  ███████╗██║     ██║██████╔╝██║ █╗ ██║███████║ ╚████╔╝ ")
	cBanner.Println("  ╚════██║██║     ██║██╔═══╝ ██║███╗██║██╔══██║  ╚██╔╝  ")
	cBanner.Println("  ███████║███████╗██║██║     ╚███╔███╔╝██║  ██║   ██║   ")
	cBanner.Println("  ╚══════╝╚══════╝╚═╝╚═╝      ╚══╝╚══╝ ╚═╝  ╚═╝   ╚═╝   ")
	cDim.Println("  Serve your local coding agent over HTTP and MCP")
	fmt.Println()
}

// ── step 1: agent binary ───────────────────────────────────────────

func (r *InitRunner) stepAgent(ctx context.Context) string {
	r.printStepHeader("Step 1", "Agent CLI")

	cDim.Println("  The command slipway wraps. It must already be installed")
	cDim.Println("  and logged in; slipway only drives it.")
	fmt.Println()

	binary := r.promptDefault("  Agent command", consts.DefaultAgentBinary)
	fmt.Println()

	r.probeAgent(ctx, binary)
	fmt.Println()
	return binary
}

func (r *InitRunner) probeAgent(ctx context.Context, binary string) {
	ag := agent.New(agent.Options{Binary: binary}, nil)
	defer ag.Close()

	v, err := ag.Version(ctx)
	if err != nil {
		cWarn.Printf("  ⚠ Could not run %q: %v\n", binary, err)
		cWarn.Printf("    Install it, or set %s to its location.\n", consts.EnvAgentPath)
		return
	}
	if v == "" {
		cSuccess.Printf("  ✓ Found %s\n", binary)
		return
	}
	cSuccess.Printf("  ✓ Found %s %s\n", binary, v)
}

// ── step 2: model ──────────────────────────────────────────────────

func (r *InitRunner) stepModel() string {
	r.printStepHeader("Step 2", "Model")

	cDim.Println("  Default model passed to the agent. Leave empty to let the")
	cDim.Println("  agent pick; API requests can override it per call.")
	fmt.Println()

	model := r.promptDefault("  Model", "")
	fmt.Println()

	if model == "" {
		cSuccess.Println("  ✓ Model: agent default")
	} else {
		cSuccess.Printf("  ✓ Model: %s\n", model)
	}
	fmt.Println()
	return model
}

// ── step 3: http api ───────────────────────────────────────────────

func (r *InitRunner) stepAPI() (string, string) {
	r.printStepHeader("Step 3", "HTTP API")

	bind := r.promptDefault("  Listen address", "127.0.0.1:8787")
	fmt.Println()

	token := ""
	if r.confirm("  Generate an API auth token?", true) {
		token = utils.RandStr(32)
		fmt.Println()
		cSuccess.Println("  ✓ Auth token generated. Clients authenticate with:")
		cDim.Printf("    Authorization: Bearer %s\n", token)
	} else {
		fmt.Println()
		host, _, err := splitBindHost(bind)
		if err == nil && !utils.IsPrivateHost(host) {
			cWarn.Printf("  ⚠ No auth token while listening on %s: anyone who\n", bind)
			cWarn.Println("    can reach this port can drive your agent.")
		} else {
			cDim.Println("  No auth token. The API trusts everything that connects.")
		}
	}
	fmt.Println()
	return bind, token
}

// ── step 4: review & write ─────────────────────────────────────────

func (r *InitRunner) stepConfirm(cfgPath, binary, model, bind, token string) error {
	r.printStepHeader("Step 4", "Review")

	cDim.Printf("  Home directory:  %s\n", consts.SlipwayHomeDir())
	cDim.Printf("  Config file:     %s\n", cfgPath)
	fmt.Println()
	cDim.Printf("  Agent:       %s\n", binary)
	if model != "" {
		cDim.Printf("  Model:       %s\n", model)
	}
	cDim.Printf("  Listen:      %s\n", bind)
	cDim.Printf("  Auth token:  %s\n", describeToken(token))
	fmt.Println()

	if !r.confirm("  Write config?", true) {
		fmt.Println("  Aborted.")
		return nil
	}
	fmt.Println()

	cfg := &config.Config{
		Agent: config.AgentConfig{
			Model: model,
		},
		Gateway: config.GatewayConfig{
			Bind:      bind,
			AuthToken: token,
		},
		Logging: config.LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			File:       consts.DefaultLogPath(),
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     3,
		},
	}
	// An explicit path goes in agent.path so it wins over PATH lookup.
	if strings.ContainsRune(binary, os.PathSeparator) {
		cfg.Agent.Path = binary
	} else {
		cfg.Agent.Binary = binary
	}

	if err := writeConfig(cfgPath, cfg); err != nil {
		cError.Printf("  ✗ Failed to write config: %v\n", err)
		return err
	}
	cSuccess.Printf("  ✓ Created %s\n", cfgPath)

	fmt.Println()
	cSuccess.Println("  All set! Run \"slipway serve\" to start.")
	fmt.Println()
	return nil
}

func describeToken(token string) string {
	if token == "" {
		return "none"
	}
	return "set (" + utils.Truncate(token, 8) + ")"
}

func writeConfig(path string, cfg *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if _, err := config.LoadOrDefault(path); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Apply("config", cfg); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	return config.Save()
}

func splitBindHost(bind string) (string, string, error) {
	i := strings.LastIndex(bind, ":")
	if i < 0 {
		return "", "", fmt.Errorf("missing port in %q", bind)
	}
	return bind[:i], bind[i+1:], nil
}

// ── input helpers ──────────────────────────────────────────────────

func (r *InitRunner) promptDefault(label string, defaultVal string) string {
	if defaultVal != "" {
		cPrompt.Printf("%s ", label)
		cDim.Printf("[%s]", defaultVal)
		cPrompt.Print(" > ")
	} else {
		cPrompt.Printf("%s > ", label)
	}

	if r.scanner.Scan() {
		val := strings.TrimSpace(r.scanner.Text())
		if val != "" {
			return val
		}
	}
	return defaultVal
}

func (r *InitRunner) confirm(label string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	cPrompt.Printf("%s %s > ", label, hint)
	if r.scanner.Scan() {
		val := strings.ToLower(strings.TrimSpace(r.scanner.Text()))
		if val == "" {
			return defaultYes
		}
		return val == "y" || val == "yes"
	}
	return defaultYes
}

func (r *InitRunner) printStepHeader(step string, title string) {
	cStep.Printf("═══ %s: %s ═══\n\n", step, title)
}
