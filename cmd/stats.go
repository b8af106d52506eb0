package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show exam and flashcard statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		results, err := e.exams.History(ctx, e.userID, 0)
		if err != nil {
			return err
		}
		q, err := e.exams.Quota(ctx, e.userID)
		if err != nil {
			return err
		}
		cards, err := e.cards.Stats(ctx, e.userID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Exams for %s\n", e.userID)
		fmt.Fprintf(out, "Results:         %d\n", len(results))
		if len(results) > 0 {
			var passed, best, sum int
			for _, r := range results {
				if r.Passed {
					passed++
				}
				best = max(best, r.Score)
				sum += r.Score
			}
			fmt.Fprintf(out, "Passed:          %d\n", passed)
			fmt.Fprintf(out, "Best score:      %d%%\n", best)
			fmt.Fprintf(out, "Average score:   %.1f%%\n", float64(sum)/float64(len(results)))
		}
		fmt.Fprintf(out, "Attempts left:   %d of %d (%s plan)\n", q.Remaining, q.Allowed, q.Plan)

		fmt.Fprintln(out, "\nFlashcards")
		printCardStats(cmd, cards)
		return nil
	},
}
