package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/belmiro-kunga/certquest/internal/spacedrep"
	"github.com/belmiro-kunga/certquest/internal/store"
	"github.com/spf13/cobra"
)

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Review flashcards with spaced repetition",
}

var cardsReviewCmd = &cobra.Command{
	Use:   "review <card-id> <quality>",
	Short: "Record a review with recall quality 0-5",
	Long: `Record a review of a flashcard.

Quality grades recall from 0 (blackout) to 5 (perfect). Grades below 3
count as a failure and send the card back to learning.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		rs, err := e.cards.Review(cmd.Context(), e.userID, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, next review in %d days (%s), ease %.2f\n",
			rs.CardID, rs.Status, rs.IntervalDays, rs.NextDueAt.Local().Format("Mon Jan 2"), rs.EaseFactor)
		return nil
	},
}

var cardsDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List cards due for review, most overdue first",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		due, err := e.cards.Due(cmd.Context(), e.userID)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(due) == 0 {
			fmt.Fprintln(out, "Nothing due. Come back later.")
			return nil
		}

		now := time.Now()
		// Header.
		fmt.Fprintf(out, "%-30s  %-10s  %8s  %8s  %s\n", "Card", "Status", "Interval", "Overdue", "Urgency")
		fmt.Fprintln(out, strings.Repeat("─", 75))
		for _, rs := range due {
			fmt.Fprintf(out, "%-30s  %-10s  %7dd  %7.1fd  %s\n",
				truncate(rs.CardID, 30), rs.Status, rs.IntervalDays, rs.OverdueDays(now), rs.Urgency(now))
		}
		fmt.Fprintf(out, "\n%d cards due\n", len(due))
		return nil
	},
}

var cardsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize flashcard progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := e.cards.Stats(cmd.Context(), e.userID)
		if err != nil {
			return err
		}
		printCardStats(cmd, st)
		return nil
	},
}

var cardsHistoryCmd = &cobra.Command{
	Use:   "history <card-id>",
	Short: "Print a card's review trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.cards.History(cmd.Context(), e.userID, args[0], store.QueryOpts{})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No reviews found.")
			return nil
		}
		for _, ev := range events {
			fmt.Fprintf(out, "%s  q=%d  %s -> %s  %dd\n",
				ev.Timestamp.Local().Format("2006-01-02 15:04"), ev.Quality, ev.FromStatus, ev.ToStatus, ev.IntervalDays)
		}
		return nil
	},
}

func init() {
	cardsCmd.AddCommand(cardsReviewCmd)
	cardsCmd.AddCommand(cardsDueCmd)
	cardsCmd.AddCommand(cardsStatsCmd)
	cardsCmd.AddCommand(cardsHistoryCmd)
}

func printCardStats(cmd *cobra.Command, st spacedrep.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cards:           %d\n", st.Cards)
	for _, s := range spacedrep.AllStatuses {
		fmt.Fprintf(out, "  %-14s %d\n", s, st.ByStatus[s])
	}
	fmt.Fprintf(out, "Reviews:         %d (%d perfect)\n", st.TotalReviews, st.PerfectReviews)
	fmt.Fprintf(out, "Average quality: %.2f\n", st.AverageQuality)
	fmt.Fprintf(out, "Average ease:    %.2f\n", st.AverageEase)
}
