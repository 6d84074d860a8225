package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// install, doctor, and logs are deliberately out of core scope (spec §1's
// "deliberately out of scope" list: no installer, no interactive doctor
// flow, no log viewer/rotation). They remain as registered subcommands so
// `rulez --help` documents the boundary instead of a bare "unknown command"
// error, and so a future contributor has an obvious place to add them.

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "(out of scope) install RuleZ hook wiring into a platform's own config",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("rulez install is out of scope for this engine; wire hooks.yaml and the per-platform hook invocation manually")
		return nil
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "(out of scope) diagnose a broken RuleZ/platform integration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("rulez doctor is out of scope; use 'rulez validate' to check a policy file directly")
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "(out of scope) view or rotate the decision audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("rulez logs is out of scope; read the JSON-Lines audit log directly from ${HOME}/.claude/logs/rulez.log")
		return nil
	},
}
