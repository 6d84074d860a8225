package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Load and validate a policy file without evaluating any events",
	Long: `Loads the policy file at path (or the effective project/user hooks.yaml
when no path is given) and reports any structural or compilation error:
duplicate rule names, invalid regexes, unparseable CEL expressions, bad
field_types kinds, and mutually exclusive action combinations (spec §6.3).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			path = policy.Resolve(cwd)
		}

		if path == "" {
			fmt.Println("no policy file found; an empty policy is valid (allows everything)")
			return nil
		}

		cfg, err := policy.Load(path)
		if err != nil {
			return fmt.Errorf("policy invalid: %w", err)
		}

		fmt.Printf("%s: valid, %d rule(s)\n", path, len(cfg.Rules))
		return nil
	},
}
