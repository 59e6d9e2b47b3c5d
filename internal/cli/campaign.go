package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Inspect and drive campaigns",
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		campaigns, err := app.repo.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(campaigns) == 0 {
			cmd.Println("No campaigns yet.")
			return nil
		}
		for _, c := range campaigns {
			cmd.Printf("%s  %-10s %-24s leads=%d hot=%d contacted=%d\n",
				c.ID, c.Status, c.Niche, c.TotalLeads, c.HotLeads, c.Contacted)
		}
		return nil
	},
}

var campaignShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one campaign as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		c, ok, err := app.repo.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("campaign %s not found", args[0])
		}
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	},
}

var campaignPipelineCmd = &cobra.Command{
	Use:   "pipeline <id>",
	Short: "Run the five-phase lead pipeline on an existing campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		c, ok, err := app.repo.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("campaign %s not found", args[0])
		}

		res, err := app.pipeline.Run(cmd.Context(), uuid.NewString(), c)
		if err != nil {
			return err
		}
		cmd.Printf("Pipeline: %s\n", res.Status)
		for _, ph := range res.Phases {
			cmd.Printf("  %-16s %s %v\n", ph.Phase, ph.Status, ph.Metrics)
		}
		if res.Error != "" {
			cmd.Printf("  stopped: %s\n", res.Error)
		}
		return nil
	},
}

func init() {
	campaignCmd.AddCommand(campaignListCmd)
	campaignCmd.AddCommand(campaignShowCmd)
	campaignCmd.AddCommand(campaignPipelineCmd)
}
