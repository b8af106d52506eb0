package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/belmiro-kunga/certquest/internal/app"
	"github.com/belmiro-kunga/certquest/internal/practice"
	"github.com/belmiro-kunga/certquest/internal/quota"
	"github.com/belmiro-kunga/certquest/internal/store"
	"github.com/spf13/cobra"
)

// env holds what every command needs once the store is open.
type env struct {
	store  *store.Store
	exams  *practice.ExamService
	cards  *practice.CardService
	userID string
}

func (e *env) Close() error {
	return e.store.Close()
}

// openEnv resolves configuration, opens the store and builds the services.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg := practice.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &env{
		store:  st,
		exams:  practice.NewExamService(st, cfg),
		cards:  practice.NewCardService(st, cfg),
		userID: resolveUser(cmd),
	}, nil
}

// runApp opens the store, builds dependencies, and launches the TUI.
// A non-empty simuladoID opens that exam straight away.
func runApp(cmd *cobra.Command, simuladoID string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	return app.Run(app.Options{
		Exams:      e.exams,
		Cards:      e.cards,
		UserID:     e.userID,
		SimuladoID: simuladoID,
	})
}

// explain rewrites errors a learner can act on into plain messages.
func explain(err error) error {
	var qe *quota.ExceededError
	if errors.As(err, &qe) {
		return fmt.Errorf("no exam attempts left this week (%d of %d used); next attempt available %s",
			qe.Used, qe.Allowed, qe.ResetsAt.Local().Format(time.RFC1123))
	}
	return err
}
