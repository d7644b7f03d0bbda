package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dan9191/lease-service/internal/config"
	"github.com/Dan9191/lease-service/internal/database"
	"github.com/Dan9191/lease-service/internal/repository"
	"github.com/Dan9191/lease-service/internal/service"
	"github.com/Dan9191/lease-service/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func setup() (*config.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := database.Open(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, db, nil
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the rent engine once and print the summary",
		Long: "Run the rent engine once and print the summary.\n\n" +
			"The schema must exist first: run `rentctl migrate` before the first run or API start.",
		RunE: func(cmd *cobra.Command, args []string) error {
			leaseID, _ := cmd.Flags().GetString("lease")
			historicalOnly, _ := cmd.Flags().GetBool("historical-only")
			asOfFlag, _ := cmd.Flags().GetString("as-of")

			cfg, logger, db, err := setup()
			if err != nil {
				return err
			}
			sqlDB, _ := db.DB()
			defer sqlDB.Close()
			if err := repository.CheckSchema(db); err != nil {
				return err
			}

			opts := service.RunOptions{LeaseID: leaseID, HistoricalOnly: historicalOnly}
			if asOfFlag != "" {
				asOf, err := utils.ParseDate(asOfFlag, cfg.Location)
				if err != nil {
					return fmt.Errorf("invalid --as-of %q: %v", asOfFlag, err)
				}
				opts.AsOf = asOf
			}

			reconciler, err := repository.NewReconciler(db, cfg.ReconcileProcedure)
			if err != nil {
				return err
			}
			svc := service.NewService(repository.NewRepository(db), reconciler, logger, cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
			defer cancel()

			summary, runErr := svc.RunRentEngine(ctx, opts)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(summary); err != nil {
				return err
			}
			return runErr
		},
	}

	cmd.Flags().String("lease", "", "Process a single lease by id")
	cmd.Flags().Bool("historical-only", false, "Only backfill months before the current one")
	cmd.Flags().String("as-of", "", "Reference date (YYYY-MM-DD), defaults to today")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the rent engine tables",
		Long: "Create or update the rent engine tables and the unique indexes its writes depend on.\n" +
			"Run this before starting the API or the first `rentctl run`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, db, err := setup()
			if err != nil {
				return err
			}
			sqlDB, _ := db.DB()
			defer sqlDB.Close()

			if err := repository.AutoMigrate(db); err != nil {
				return err
			}
			logger.Info("Schema is up to date")
			return nil
		},
	}
}
