package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"telequiz/internal/config"
	filestore "telequiz/internal/infra/file"
	pgstore "telequiz/internal/infra/postgres"
)

// NewImportLegacyCmd copies questions and user statistics from the legacy
// JSON files into Postgres. Meant as a one-time migration step; the source
// files are left untouched.
func NewImportLegacyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import-legacy",
		Short: "Copy legacy JSON data into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportLegacy(cmd.Context(), *configPath)
		},
	}
}

func runImportLegacy(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	questionsFile := cfg.Data.QuestionsFile
	if questionsFile == "" {
		questionsFile = defaultQuestionsFile
	}
	statsFile := cfg.Data.StatsFile
	if statsFile == "" {
		statsFile = defaultStatsFile
	}

	fileQuestions, err := filestore.NewQuestionRepository(questionsFile)
	if err != nil {
		return err
	}
	fileStats, err := filestore.NewStatsRepository(statsFile)
	if err != nil {
		return err
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	pgQuestions := pgstore.NewQuestionRepository(db)
	pgStats := pgstore.NewStatsRepository(db)

	questions, err := fileQuestions.List(ctx)
	if err != nil {
		return err
	}
	for _, q := range questions {
		q.ID = 0 // let the database assign ids
		if _, err := pgQuestions.Insert(ctx, q); err != nil {
			return fmt.Errorf("import question %q: %w", q.Text, err)
		}
	}

	users, err := fileStats.All(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if err := pgStats.Save(ctx, u); err != nil {
			return fmt.Errorf("import stats for user %d: %w", u.UserID, err)
		}
	}

	fmt.Printf("imported %d questions and %d users\n", len(questions), len(users))
	return nil
}
