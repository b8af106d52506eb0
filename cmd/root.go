package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/belmiro-kunga/certquest/internal/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "certquest",
	Short: "Timed certification mock exams and flashcard reviews",
	Long: `certquest runs timed mock exams (simulados) with a weekly attempt quota
and schedules flashcard reviews with spaced repetition.

Run without a subcommand to open the terminal UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		return loadEnvFile(envFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd, "")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides CERTQUEST_DB env var)")
	rootCmd.PersistentFlags().String("user", "", "Learner id (overrides CERTQUEST_USER env var)")
	rootCmd.PersistentFlags().String("env-file", ".env", "File of CERTQUEST_* settings to load; variables already set win")

	rootCmd.AddCommand(simuladoCmd)
	rootCmd.AddCommand(examCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(quotaCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then CERTQUEST_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// resolveUser returns the learner id from --user, then CERTQUEST_USER,
// then "local".
func resolveUser(cmd *cobra.Command) string {
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		return u
	}
	if u := os.Getenv("CERTQUEST_USER"); u != "" {
		return u
	}
	return "local"
}

// loadEnvFile loads CERTQUEST_* settings from path. A missing file is not
// an error; variables already present in the environment are kept.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
