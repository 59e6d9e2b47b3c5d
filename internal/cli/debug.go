package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/jmercier/leadpilot/internal/debugger"
)

var debugAgentFilter string

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Inspect failure history and recurring issue patterns",
}

var debugPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show recurring issue patterns and their resolution counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		patterns, err := debugger.NewHistory(app.store).Patterns()
		if err != nil {
			return err
		}
		if len(patterns) == 0 {
			cmd.Println("No issue patterns recorded.")
			return nil
		}

		sorted := make([]*debugger.IssuePattern, 0, len(patterns))
		for _, p := range patterns {
			sorted = append(sorted, p)
		}
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Occurrences > sorted[j].Occurrences
		})
		for _, p := range sorted {
			cmd.Printf("%4dx  %-22s resolved %d/%d  last %s\n    %s\n",
				p.Occurrences, p.Agent,
				p.SuccessfulResolutions, p.TotalResolutions,
				p.LastOccurrence.Format("2006-01-02 15:04"),
				p.ErrorSignature)
		}
		return nil
	},
}

var debugReportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show recent failure reports for an agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if debugAgentFilter == "" {
			return cmd.Help()
		}
		reports, err := app.database.GetRecentFailures(debugAgentFilter, 20)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			cmd.Println("No failure reports.")
			return nil
		}
		for _, r := range reports {
			outcome := "escalated"
			if r.Resolved {
				outcome = "auto-resolved"
			}
			cmd.Printf("%s  %-16s %-8s %-12s %s\n    %s\n",
				r.Timestamp, r.Category, r.Criticality, outcome, r.Action, r.Error)
		}
		return nil
	},
}

func init() {
	debugReportsCmd.Flags().StringVarP(&debugAgentFilter, "agent", "a", "", "agent name, e.g. StrategyAgent")
	debugCmd.AddCommand(debugPatternsCmd)
	debugCmd.AddCommand(debugReportsCmd)
}
