package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/belmiro-kunga/certquest/internal/store"
	"github.com/belmiro-kunga/certquest/internal/ui/layout"
	"github.com/spf13/cobra"
)

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Take simulados and inspect past sessions",
}

var examTakeCmd = &cobra.Command{
	Use:   "take <simulado-id>",
	Short: "Open a simulado in the terminal UI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkCanStart(cmd, args[0]); err != nil {
			return err
		}
		return runApp(cmd, args[0])
	},
}

var examStartCmd = &cobra.Command{
	Use:   "start <simulado-id>",
	Short: "Start a session without the terminal UI",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		sess, err := e.exams.Start(cmd.Context(), e.userID, args[0])
		if err != nil {
			return explain(err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session %s started\n", sess.ID())
		fmt.Fprintf(out, "%d questions, deadline %s\n", sess.QuestionCount(), sess.Deadline().Local().Format(time.Kitchen))
		return nil
	},
}

var examAnswerCmd = &cobra.Command{
	Use:   "answer <session-id> <question-id> <alternative-id>",
	Short: "Record an answer in a running session",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.exams.Answer(cmd.Context(), e.userID, args[0], args[1], args[2]); err != nil {
			return err
		}
		st, err := e.exams.Tick(cmd.Context(), e.userID, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded. %s left.\n", formatSeconds(st.RemainingSeconds))
		return nil
	},
}

var examSubmitCmd = &cobra.Command{
	Use:   "submit <session-id>",
	Short: "Submit a session and print its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		res, err := e.exams.Submit(cmd.Context(), e.userID, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Score: %d%% (%d/%d correct)\n", res.Score, res.CorrectAnswers, res.TotalQuestions)
		fmt.Fprintf(out, "Result: %s\n", passLabel(res.Passed))
		fmt.Fprintf(out, "Time: %s\n", formatSeconds(int(res.Elapsed/time.Second)))
		if res.GraceSubmit {
			fmt.Fprintln(out, "Submitted after the time ran out.")
		}
		return nil
	},
}

var examHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List submitted results, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		results, err := e.exams.History(cmd.Context(), e.userID, limit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No results yet.")
			return nil
		}

		// Header.
		fmt.Fprintf(out, "%-16s  %-20s  %5s  %7s  %-10s  %8s  %s\n",
			"Completed", "Simulado", "Score", "Correct", "Result", "Time", "Session")
		fmt.Fprintln(out, strings.Repeat("─", 110))

		for _, r := range results {
			result := passLabel(r.Passed)
			if r.GraceSubmit {
				result += "*"
			}
			fmt.Fprintf(out, "%-16s  %-20s  %4d%%  %3d/%-3d  %-10s  %8s  %s\n",
				r.CompletedAt.Local().Format("2006-01-02 15:04"),
				truncate(r.SimuladoID, 20), r.Score, r.CorrectAnswers, r.TotalQuestions,
				result, formatSeconds(int(r.Elapsed/time.Second)), r.SessionID)
		}

		fmt.Fprintf(out, "\n%d results (* submitted after time ran out)\n", len(results))
		return nil
	},
}

var examEventsCmd = &cobra.Command{
	Use:   "events <session-id>",
	Short: "Print a session's audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		events, err := e.exams.Events(cmd.Context(), e.userID, args[0], store.QueryOpts{Limit: limit})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No events found.")
			return nil
		}

		// Header.
		fmt.Fprintf(out, "%-5s  %-19s  %-7s  %-12s  %-14s  %-8s  %s\n",
			"Seq", "Timestamp", "Action", "State", "Answer", "Left", "Detail")
		fmt.Fprintln(out, strings.Repeat("─", 90))

		for _, ev := range events {
			answer := ""
			if ev.QuestionID != "" {
				answer = ev.QuestionID + "=" + ev.AlternativeID
			}
			fmt.Fprintf(out, "%-5d  %-19s  %-7s  %-12s  %-14s  %-8s  %s\n",
				ev.Sequence, ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
				ev.Action, ev.State, truncate(answer, 14), formatSeconds(ev.RemainingSecs), ev.Detail)
		}
		return nil
	},
}

func init() {
	examHistoryCmd.Flags().Int("limit", 20, "Maximum number of results to show")
	examEventsCmd.Flags().Int("limit", 0, "Maximum number of events to show (0 = all)")

	examCmd.AddCommand(examTakeCmd)
	examCmd.AddCommand(examStartCmd)
	examCmd.AddCommand(examAnswerCmd)
	examCmd.AddCommand(examSubmitCmd)
	examCmd.AddCommand(examHistoryCmd)
	examCmd.AddCommand(examEventsCmd)
}

// checkCanStart fails early, before the UI opens, when a new session on
// simuladoID would be refused for lack of attempts.
func checkCanStart(cmd *cobra.Command, simuladoID string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	running, err := e.exams.ActiveSessions(ctx, e.userID)
	if err != nil {
		return err
	}
	for _, s := range running {
		if s.SimuladoID() == simuladoID {
			return nil
		}
	}
	if _, err := e.exams.Simulado(ctx, simuladoID); err != nil {
		return err
	}
	q, err := e.exams.Quota(ctx, e.userID)
	if err != nil {
		return err
	}
	if q.Remaining <= 0 {
		return explain(&quota.ExceededError{UserID: e.userID, Used: q.Used, Allowed: q.Allowed, ResetsAt: q.ResetsAt})
	}
	return nil
}

func passLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "not passed"
}

func formatSeconds(secs int) string {
	return layout.FormatClock(secs)
}
