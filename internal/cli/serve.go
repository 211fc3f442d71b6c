package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/vortex-hue/forgeai/internal/agent"
	"github.com/vortex-hue/forgeai/internal/jobs"
	"github.com/vortex-hue/forgeai/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion and agent workers",
		Long:  "Run database migrations and start the background workers that ingest documents and execute agent tasks",
		RunE:  runServe,
	}

	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	return withApp(ctx, func(ctx context.Context, a *app) error {
		if a.cfg.SentryDSN != "" {
			shutdownTelemetry, err := telemetry.Init(telemetry.Config{
				DSN:              a.cfg.SentryDSN,
				Environment:      a.cfg.SentryEnvironment,
				TracesSampleRate: a.cfg.SentrySampleRate,
			})
			if err != nil {
				log.Printf("telemetry init failed (continuing without tracing): %v", err)
			} else {
				defer shutdownTelemetry()
			}
		}

		if a.s3 != nil {
			if err := a.s3.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("failed to ensure document bucket: %w", err)
			}
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(a.cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		orchestrator := agent.NewOrchestrator(a.llmClient, a.taskRepo, a.logRepo, agent.ToolDeps{
			Searcher: a.searchSvc,
		})

		ingestWorker := jobs.NewWorker("ingest",
			jobs.NewIngestWorker(a.docRepo, a.ingestSvc), a.cfg.WorkerPollInterval)
		taskWorker := jobs.NewWorker("task",
			jobs.NewTaskWorker(a.taskRepo, a.agentRepo, orchestrator, a.cfg.AgentTimeout), a.cfg.WorkerPollInterval)

		go ingestWorker.Start(ctx)
		go taskWorker.Start(ctx)
		log.Println("workers started")

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("shutting down...")

		ingestWorker.Stop()
		taskWorker.Stop()

		log.Println("workers exited")
		return nil
	})
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else {
		log.Printf("migrations: database at version %d", version)
	}

	return nil
}
