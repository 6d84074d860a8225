package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/audit"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/pipeline"
)

var platformFlag string

// hookCmd is the generic dispatch entry point; --platform selects the
// adapter (spec §4.9 step 3). The per-platform commands below (gemini,
// copilot, opencode hook) are the same dispatch with the platform
// pre-selected, matching how each assistant's own hook configuration would
// invoke this binary.
var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Evaluate one hook event read from stdin and write the platform response to stdout",
	Long: `Reads a single JSON hook payload from stdin, evaluates it against the
effective policy (project .claude/hooks.yaml, falling back to the user-global
one), and writes the platform-native JSON response to stdout.

Exit code 0 means allow, 1 means malformed input, 2 means a rule blocked
the action (spec §6.5). A policy file that fails to load is replaced by an
empty policy for the invocation, and the failure is noted in the audit log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHookAndExit(cmd, platformFlag, os.Stdin, os.Stdout, os.Stderr)
	},
}

var geminiCmd = &cobra.Command{
	Use:   "gemini",
	Short: "Gemini CLI hook commands",
}

var copilotCmd = &cobra.Command{
	Use:   "copilot",
	Short: "GitHub Copilot CLI hook commands",
}

var opencodeCmd = &cobra.Command{
	Use:   "opencode",
	Short: "OpenCode hook commands",
}

func init() {
	hookCmd.Flags().StringVar(&platformFlag, "platform", "claudecode", "Platform adapter to use (claudecode, gemini, copilot, opencode)")

	geminiCmd.AddCommand(&cobra.Command{
		Use:   "hook",
		Short: "Evaluate one Gemini CLI hook event read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookAndExit(cmd, "gemini", os.Stdin, os.Stdout, os.Stderr)
		},
	})
	copilotCmd.AddCommand(&cobra.Command{
		Use:   "hook",
		Short: "Evaluate one GitHub Copilot CLI hook event read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookAndExit(cmd, "copilot", os.Stdin, os.Stdout, os.Stderr)
		},
	})
	opencodeCmd.AddCommand(&cobra.Command{
		Use:   "hook",
		Short: "Evaluate one OpenCode hook event read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHookAndExit(cmd, "opencode", os.Stdin, os.Stdout, os.Stderr)
		},
	})
}

// runHookAndExit reads raw from in, runs the pipeline, writes its output to
// out (or the error to errOut), and terminates the process with the
// pipeline's chosen exit code (spec §6.5). It is a thin wrapper around
// executeHook so the process-ending behavior lives in exactly one place;
// tests exercise executeHook directly and never observe an os.Exit call.
func runHookAndExit(cmd *cobra.Command, platform string, in io.Reader, out, errOut io.Writer) error {
	result, runErr := executeHook(cmd.Context(), platform, in)
	if runErr != nil {
		fmt.Fprintln(errOut, runErr)
		os.Exit(1)
	}
	if result.Err != nil {
		fmt.Fprintln(errOut, result.Err)
		os.Exit(result.ExitCode)
	}
	out.Write(result.Output)
	os.Exit(result.ExitCode)
	return nil
}

// executeHook contains the testable body of every hook entry point: read
// stdin, open (or skip) the audit log, and run the pipeline once.
func executeHook(ctx context.Context, platform string, in io.Reader) (pipeline.Result, error) {
	raw, err := io.ReadAll(in)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("read stdin: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("getwd: %w", err)
	}

	var auditWriter *audit.Writer
	if !noAudit {
		if path := audit.DefaultPath(); path != "" {
			auditWriter, err = audit.Open(path)
			if err != nil {
				logger.Warnw("could not open audit log; continuing without one", "path", path, "error", err)
			} else {
				defer auditWriter.Close()
			}
		}
	}

	result := pipeline.Run(ctx, pipeline.Options{
		PlatformName:  platform,
		Raw:           raw,
		Cwd:           cwd,
		ScriptTimeout: hookTimeout,
		Audit:         auditWriter,
		Logger:        logger,
	})
	return result, nil
}
