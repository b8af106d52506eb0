package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner data",
	Long: `Delete the learner's sessions, results, attempts and flashcard reviews.
The simulado catalog and the learner's plan are kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		out := cmd.OutOrStdout()
		if !yes {
			fmt.Fprintf(out, "Delete all progress for %s? [y/N] ", e.userID)
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(out, "Aborted.")
				return nil
			}
		}

		if err := e.store.ResetUser(cmd.Context(), e.userID); err != nil {
			return fmt.Errorf("reset %s: %w", e.userID, err)
		}
		fmt.Fprintf(out, "Progress for %s deleted.\n", e.userID)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}
