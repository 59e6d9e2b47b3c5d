package cli

import (
	"github.com/spf13/cobra"

	"github.com/jmercier/leadpilot/internal/analytics"
)

var analyticsSince string

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Query pipeline performance analytics",
}

var analyticsDurationsCmd = &cobra.Command{
	Use:   "agent-durations",
	Short: "Average and percentile run durations per agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		rows, err := analytics.QueryAgentDurations(app.database, analyticsSince)
		if err != nil {
			return err
		}
		cmd.Printf("%-22s %6s %8s %8s %8s\n", "AGENT", "RUNS", "AVG(s)", "P50(s)", "P95(s)")
		for _, r := range rows {
			cmd.Printf("%-22s %6d %8.1f %8.1f %8.1f\n", r.Agent, r.Count, r.Avg, r.P50, r.P95)
		}
		return nil
	},
}

var analyticsFailureRatesCmd = &cobra.Command{
	Use:   "failure-rates",
	Short: "Failure, retry, and auto-resolution rates per agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		rows, err := analytics.QueryFailureRates(app.database, analyticsSince)
		if err != nil {
			return err
		}
		cmd.Printf("%-22s %6s %8s %8s %10s\n", "AGENT", "RUNS", "FAIL%", "RETRY%", "RESOLVED%")
		for _, r := range rows {
			cmd.Printf("%-22s %6d %8.1f %8.1f %10.1f\n", r.Agent, r.Total, r.FailRate, r.RetryRate, r.AutoResolved)
		}
		return nil
	},
}

var analyticsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Failure categories and their outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		rows, err := analytics.QueryFailureCategories(app.database, analyticsSince)
		if err != nil {
			return err
		}
		cmd.Printf("%-18s %6s %10s %10s %-22s\n", "CATEGORY", "TOTAL", "RESOLVED%", "HUMAN%", "TOP AGENT")
		for _, r := range rows {
			cmd.Printf("%-18s %6d %10.1f %10.1f %-22s\n", r.Category, r.Total, r.Resolved, r.Escalated, r.TopAgent)
		}
		return nil
	},
}

var analyticsThroughputCmd = &cobra.Command{
	Use:   "throughput",
	Short: "Run outcomes per week",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		rows, err := analytics.QueryRunThroughput(app.database, analyticsSince)
		if err != nil {
			return err
		}
		cmd.Printf("%-10s %8s %10s %8s %10s\n", "WEEK", "STARTED", "COMPLETED", "BROKEN", "ESCALATED")
		for _, r := range rows {
			cmd.Printf("%-10s %8d %10d %8d %10d\n", r.Period, r.Started, r.Completed, r.ChainBroken, r.Escalated)
		}
		return nil
	},
}

var analyticsRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Full event timeline for one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		events, err := analytics.QueryRunDetail(app.database, args[0])
		if err != nil {
			return err
		}
		for _, e := range events {
			cmd.Printf("%s  %-8s %-22s %s %s\n", e.Timestamp, e.Type, e.Agent, e.Event, e.Detail)
		}
		return nil
	},
}

func init() {
	analyticsCmd.PersistentFlags().StringVar(&analyticsSince, "since", "", "only include events at or after this timestamp")
	analyticsCmd.AddCommand(analyticsDurationsCmd)
	analyticsCmd.AddCommand(analyticsFailureRatesCmd)
	analyticsCmd.AddCommand(analyticsCategoriesCmd)
	analyticsCmd.AddCommand(analyticsThroughputCmd)
	analyticsCmd.AddCommand(analyticsRunCmd)
}
