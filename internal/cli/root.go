package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "leadpilot",
	Short: "leadpilot is an agent-chain marketing automation pipeline",
	Long: `leadpilot orchestrates a chain of marketing agents: an oracle-backed
brain decides what to do, a strategy/planning/starter chain opens campaigns,
and a five-phase lead pipeline scrapes, cleans, classifies, exports, and
contacts prospects. Failures go through a debugger that retries once with a
substituted default before escalating to a human.

All state is stored in ~/.leadpilot/ (SQLite for run logs, JSON for documents).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(debugCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
