package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jmercier/leadpilot/internal/agent"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one full orchestration pass (decide, chain, lead pipeline)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		run, pres, err := app.brain.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		if run == nil {
			cmd.Println("Brain decided to wait; nothing to do.")
			return nil
		}

		cmd.Printf("Run %s: %s\n", run.RunID, run.Status)
		names := make([]agent.Name, 0, len(run.Results))
		for name := range run.Results {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
		for _, name := range names {
			res := run.Results[name]
			line := fmt.Sprintf("  %-22s %s", name, res.Status)
			if res.Err != "" {
				line += " (" + res.Err + ")"
			}
			cmd.Println(line)
		}
		if run.ChainBroken {
			cmd.Println("Chain broken.")
		}
		if run.RequiresHuman {
			cmd.Println("Human review required; see `leadpilot debug reports`.")
		}

		if pres != nil {
			cmd.Printf("Campaign %s pipeline: %s\n", pres.CampaignID, pres.Status)
			for _, ph := range pres.Phases {
				cmd.Printf("  %-16s %s %v\n", ph.Phase, ph.Status, ph.Metrics)
			}
			if pres.Error != "" {
				cmd.Printf("  stopped: %s\n", pres.Error)
			}
		}
		return nil
	},
}
