package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/action"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/match"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/policy"
)

var explainDryRun bool

var explainCmd = &cobra.Command{
	Use:   "explain <policy-file> <event-file>",
	Short: "Show which rules in a policy file match a sample canonical event",
	Long: `Loads policy-file and a canonical event JSON document from event-file (the
same shape internal/event.Event serializes to, not a platform-native
payload), then reports every enabled rule considered, whether it matched,
and — unless --dry-run is set — the resulting action contribution and final
decision. --dry-run stops after matching: no inline_script/run/context
subprocess is ever executed.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := policy.Load(args[0])
		if err != nil {
			return fmt.Errorf("policy invalid: %w", err)
		}

		raw, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read event file: %w", err)
		}
		var evt event.Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return fmt.Errorf("parse event file: %w", err)
		}

		rules := make([]*policy.Rule, len(cfg.Rules))
		copy(rules, cfg.Rules)
		sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority > rules[j].Priority })

		resp := event.Response{Decision: event.Allow}
		scriptTimeout := cfg.Settings.ScriptTimeoutDefault.Std()

		for _, r := range rules {
			if !r.IsEnabled() {
				fmt.Printf("- %s: disabled\n", r.Name)
				continue
			}
			if r.Event != "" && r.Event != string(evt.EventType) {
				fmt.Printf("- %s: skipped (event filter %q != %q)\n", r.Name, r.Event, evt.EventType)
				continue
			}

			matched := match.Matches(cfg, r, &evt)
			fmt.Printf("- %s (priority %d, mode %s): matched=%v\n", r.Name, r.Priority, r.EffectiveMode(), matched)
			if !matched || explainDryRun {
				continue
			}

			contrib := action.Execute(cmd.Context(), cfg, r, &evt, scriptTimeout)
			contrib = action.ApplyMode(r.EffectiveMode(), cfg.Settings.FailOpen, contrib)
			resp.Merge(event.Response{
				Decision:          decisionFor(contrib.Block),
				Reason:            contrib.Reason,
				Context:           contrib.Context,
				ToolInputOverride: contrib.ToolInputOverride,
				SystemMessage:     contrib.SystemMessage,
			})
		}

		if explainDryRun {
			fmt.Println("\n(dry run: no action was executed)")
			return nil
		}

		fmt.Printf("\nfinal decision: %s\n", resp.Decision)
		if resp.Reason != "" {
			fmt.Printf("reason: %s\n", resp.Reason)
		}
		if resp.Context != "" {
			fmt.Printf("context:\n%s\n", resp.Context)
		}
		return nil
	},
}

func decisionFor(blocked bool) event.Decision {
	if blocked {
		return event.Block
	}
	return event.Allow
}

func init() {
	explainCmd.Flags().BoolVar(&explainDryRun, "dry-run", false, "Report matches only; never execute inline_script/run/context actions")
}
