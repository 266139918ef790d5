package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"telequiz/internal/app"
	"telequiz/internal/config"
)

// NewQuestionsCmd groups the question administration subcommands.
func NewQuestionsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Manage the stored question list",
	}
	cmd.AddCommand(newQuestionsAddCmd(configPath))
	cmd.AddCommand(newQuestionsListCmd(configPath))
	cmd.AddCommand(newQuestionsDeleteCmd(configPath))
	cmd.AddCommand(newQuestionsImportCmd(configPath))
	cmd.AddCommand(newQuestionsSweepCmd(configPath))
	cmd.AddCommand(newQuestionsClearCmd(configPath))
	return cmd
}

func newQuestionsAddCmd(configPath *string) *cobra.Command {
	var category string
	var correct int
	cmd := &cobra.Command{
		Use:   "add <text> <opt1> <opt2> <opt3> <opt4>",
		Short: "Add a single question",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openQuestionStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if correct < 1 || correct > 4 {
				return fmt.Errorf("--correct must be between 1 and 4")
			}
			id, err := store.Add(cmd.Context(), args[0], args[1:5], correct-1, category, false)
			if err != nil {
				return err
			}
			fmt.Printf("added question %d\n", id)
			return nil
		},
	}
	cmd.Flags().IntVar(&correct, "correct", 1, "1-based index of the correct option")
	cmd.Flags().StringVar(&category, "category", "", "optional category tag")
	return cmd
}

func newQuestionsListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print all stored questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openQuestionStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, q := range store.All() {
				fmt.Printf("%d\t%s\t%s\n", q.ID, q.Category, q.Text)
			}
			fmt.Printf("%d questions\n", store.Len())
			return nil
		},
	}
}

func newQuestionsDeleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a question by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid question id %q", args[0])
			}

			store, cleanup, err := openQuestionStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := store.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("question %d not found", id)
			}
			fmt.Printf("deleted question %d\n", id)
			return nil
		},
	}
}

func newQuestionsImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import a JSON array of questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var items []app.BatchItem
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			store, cleanup, err := openQuestionStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := store.AddBatch(cmd.Context(), items)
			if err != nil {
				return err
			}
			fmt.Printf("added %d, duplicates %d, invalid format %d, invalid options %d\n",
				report.Added, report.Rejected.Duplicates,
				report.Rejected.InvalidFormat, report.Rejected.InvalidOptions)
			for _, e := range report.Errors {
				fmt.Println("  " + e)
			}
			return nil
		},
	}
}

func newQuestionsSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove structurally invalid questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cleanup, err := openQuestionStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := store.SweepInvalid(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d invalid questions, %d remain\n", removed, store.Len())
			return nil
		},
	}
}

func newQuestionsClearCmd(configPath *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored question",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			store, cleanup, err := openQuestionStore(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := store.ClearAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d questions\n", removed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	return cmd
}

func openQuestionStore(ctx context.Context, configPath string) (*app.QuestionStore, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, nil, err
	}

	var bunDB *bun.DB
	cleanup := func() { logger.Sync() }
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB = bun.NewDB(sqldb, pgdialect.New())
		cleanup = func() {
			bunDB.Close()
			logger.Sync()
		}
	}

	repo, _, err := buildRepositories(cfg, bunDB)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	store, err := app.NewQuestionStore(ctx, repo, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}
