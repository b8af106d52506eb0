package cmd

import (
	"fmt"

	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/spf13/cobra"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show, or change the plan behind, the weekly attempt quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		planName, _ := cmd.Flags().GetString("plan")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		if planName != "" {
			plan, err := quota.ParsePlan(planName)
			if err != nil {
				return err
			}
			if err := e.exams.SetPlan(ctx, e.userID, plan); err != nil {
				return err
			}
		}

		q, err := e.exams.Quota(ctx, e.userID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "User:      %s\n", q.UserID)
		fmt.Fprintf(out, "Plan:      %s\n", q.Plan)
		fmt.Fprintf(out, "Attempts:  %d of %d used, %d remaining\n", q.Used, q.Allowed, q.Remaining)
		if !q.ResetsAt.IsZero() {
			fmt.Fprintf(out, "Next slot: %s\n", q.ResetsAt.Local().Format("Mon Jan 2 15:04"))
		}
		return nil
	},
}

func init() {
	quotaCmd.Flags().String("plan", "", "Switch to plan: free or premium")
}
