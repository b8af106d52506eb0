package cmd

import (
	"fmt"
	"strings"

	"github.com/belmiro-kunga/certquest/internal/catalog"
	"github.com/spf13/cobra"
)

var simuladoCmd = &cobra.Command{
	Use:     "simulado",
	Aliases: []string{"sim"},
	Short:   "Manage the simulado catalog",
}

var simuladoImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import simulados from a catalog JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := catalog.LoadFile(args[0])
		if err != nil {
			return err
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		n, err := e.exams.Import(cmd.Context(), doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d simulados (catalog %s)\n", n, doc.Version)
		return nil
	},
}

var simuladoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List simulados",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		sims, err := e.exams.Simulados(cmd.Context(), all)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(sims) == 0 {
			fmt.Fprintln(out, "No simulados found. Import a catalog with: certquest simulado import <file>")
			return nil
		}

		// Header.
		fmt.Fprintf(out, "%-20s  %-36s  %9s  %7s  %-12s  %s\n",
			"ID", "Title", "Questions", "Minutes", "Difficulty", "Active")
		fmt.Fprintln(out, strings.Repeat("─", 100))

		for _, s := range sims {
			active := "yes"
			if !s.Active {
				active = "no"
			}
			fmt.Fprintf(out, "%-20s  %-36s  %9d  %7d  %-12s  %s\n",
				s.ID, truncate(s.Title, 36), s.QuestionCount, s.DurationMinutes, s.Difficulty, active)
		}

		fmt.Fprintf(out, "\n%d simulados\n", len(sims))
		return nil
	},
}

var simuladoShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a simulado's questions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answers, _ := cmd.Flags().GetBool("answers")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		sim, err := e.exams.Simulado(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", sim.Title, sim.ID)
		fmt.Fprintf(out, "%d questions, %d minutes, %s\n", len(sim.Questions), sim.DurationMinutes, sim.Difficulty)
		if !sim.Active {
			fmt.Fprintln(out, "inactive")
		}

		for i, q := range sim.Questions {
			fmt.Fprintf(out, "\n%d. %s\n", i+1, q.Prompt)
			correct := q.CorrectAlternativeID()
			for _, a := range q.Alternatives {
				mark := " "
				if answers && a.ID == correct {
					mark = "*"
				}
				fmt.Fprintf(out, "   %s %s) %s\n", mark, a.ID, a.Text)
			}
			if answers && q.Explanation != "" {
				fmt.Fprintf(out, "     %s\n", q.Explanation)
			}
		}
		return nil
	},
}

func init() {
	simuladoListCmd.Flags().Bool("all", false, "Include inactive simulados")
	simuladoShowCmd.Flags().Bool("answers", false, "Mark correct alternatives and show explanations")

	simuladoCmd.AddCommand(simuladoImportCmd)
	simuladoCmd.AddCommand(simuladoListCmd)
	simuladoCmd.AddCommand(simuladoShowCmd)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
