// Package main implements the rulez CLI: the stdin/stdout JSON hook entry
// point every supported assistant platform invokes, plus a handful of
// operator-facing subcommands for working with a policy file directly.
//
// # File Index
//
//   - main.go         - entry point, rootCmd, global flags, init()
//   - cmd_hook.go     - hookCmd and its per-platform aliases (gemini/copilot/opencode)
//   - cmd_validate.go - validateCmd: load+validate a policy file, report errors
//   - cmd_explain.go  - explainCmd: dry-run a policy file against a sample event
//   - cmd_stubs.go    - install/doctor/logs: out-of-scope placeholders (spec §1)
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter/claudecode"
	_ "github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter/copilot"
	_ "github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter/gemini"
	_ "github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter/opencode"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/logging"
)

var (
	verbose    bool
	noAudit    bool
	hookTimeout time.Duration

	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "rulez",
	Short: "RuleZ - a local, fail-closed policy engine for AI coding assistant hooks",
	Long: `RuleZ mediates between AI coding assistants (Claude Code, Gemini CLI,
GitHub Copilot CLI, OpenCode) and the tools they invoke, enforcing a
YAML-authored policy over every tool call, prompt, and lifecycle event each
platform's hook protocol exposes.

Invoke "rulez hook" (or "rulez gemini|copilot|opencode hook") from inside a
platform's hook configuration; see "rulez hook --help" for the stdin/stdout
JSON contract, or "rulez validate"
to check a policy file without running anything.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level diagnostic logging (stderr)")
	rootCmd.PersistentFlags().BoolVar(&noAudit, "no-audit", false, "Disable the decision audit log for this invocation")
	rootCmd.PersistentFlags().DurationVar(&hookTimeout, "script-timeout", 0, "Override the policy's script_timeout_default for this invocation (a rule's own timeout still takes precedence)")

	rootCmd.AddCommand(
		hookCmd,
		geminiCmd,
		copilotCmd,
		opencodeCmd,
		validateCmd,
		explainCmd,
		installCmd,
		doctorCmd,
		logsCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
