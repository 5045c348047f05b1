package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/deskflow-io/deskflow-ce/internal/ai"
	"github.com/deskflow-io/deskflow-ce/internal/api"
	"github.com/deskflow-io/deskflow-ce/internal/config"
	"github.com/deskflow-io/deskflow-ce/internal/database"
	"github.com/deskflow-io/deskflow-ce/internal/notifications"
	"github.com/deskflow-io/deskflow-ce/internal/repository"
	"github.com/deskflow-io/deskflow-ce/internal/runner"
	"github.com/deskflow-io/deskflow-ce/internal/runner/tasks"
	"github.com/deskflow-io/deskflow-ce/internal/scraper"
	"github.com/deskflow-io/deskflow-ce/internal/service"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "deskflow",
		Short: "Deskflow CE support ticketing server",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	root.AddCommand(serveCmd(), migrateCmd(), seedCmd(), repairCmd(), runTaskCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("Fatal: %v", err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background task runner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()
			return serve(cfg, db)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()
			log.Println("Migrations applied")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the built-in knowledge base articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			knowledge := service.NewKnowledgeService(repository.NewSQLKnowledgeRepository(db), nil)
			inserted, err := knowledge.SeedDemoContent(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("Seeded %d documents", inserted)
			return nil
		},
	}
}

func repairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Run one dangling-reference repair pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			integrity := service.NewIntegrityService(
				repository.NewSQLTicketRepository(db),
				repository.NewSQLMessageRepository(db),
				repository.NewSQLTicketViewRepository(db),
				repository.NewSQLUserRepository(db),
			)
			report, err := integrity.CleanupInvalidTicketReferences(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("Repair complete: %d updated, %d deleted", report.UpdatedTickets, report.DeletedTickets)
			return nil
		},
	}
}

func runTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-task <name>",
		Short: "Run one registered background task immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := setup()
			if err != nil {
				return err
			}
			defer db.Close()

			registry := taskRegistry(cfg, db)
			task, ok := registry.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown task %q, registered tasks: %s",
					args[0], strings.Join(registry.Names(), ", "))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), task.Timeout())
			defer cancel()
			if err := task.Run(ctx); err != nil {
				return err
			}
			log.Printf("Task %s completed", task.Name())
			return nil
		},
	}
}

// taskRegistry builds the background task registry. serve schedules all of
// these on cron; run-task executes one of them immediately.
func taskRegistry(cfg *config.Config, db *sqlx.DB) *runner.TaskRegistry {
	integrity := service.NewIntegrityService(
		repository.NewSQLTicketRepository(db),
		repository.NewSQLMessageRepository(db),
		repository.NewSQLTicketViewRepository(db),
		repository.NewSQLUserRepository(db),
	)

	registry := runner.NewTaskRegistry()
	registry.Register(tasks.NewIntegrityRepairTask(integrity, cfg.Ticket.IntegritySchedule))
	return registry
}

// setup loads configuration, connects to the database and applies the schema.
func setup() (*config.Config, *sqlx.DB, error) {
	if err := config.Load(configPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return cfg, db, nil
}

func serve(cfg *config.Config, db *sqlx.DB) error {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticketRepo := repository.NewSQLTicketRepository(db)
	messageRepo := repository.NewSQLMessageRepository(db)
	userRepo := repository.NewSQLUserRepository(db)
	viewRepo := repository.NewSQLTicketViewRepository(db)
	knowledgeRepo := repository.NewSQLKnowledgeRepository(db)

	taskRunner := runner.NewRunner(ctx, runner.NewTaskRegistry())

	email := notifications.NewSMTPProvider(&cfg.Email)

	var llm ai.LLMClient
	if cfg.AI.APIKey != "" {
		llm = ai.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.RequestTimeout)
	}

	var sc scraper.Scraper
	if cfg.Firecrawl.APIKey != "" {
		sc = scraper.NewFirecrawlClient(cfg.Firecrawl)
	}

	ticketSvc := service.NewTicketService(ticketRepo, messageRepo, userRepo, viewRepo, email, taskRunner, cfg.Ticket)
	relevanceSvc := service.NewRelevanceService(knowledgeRepo, llm, cfg.AI)
	aiSvc := service.NewAIService(ticketSvc, relevanceSvc, llm, cfg.AI)
	ticketSvc.SetAnalyzer(aiSvc)
	knowledgeSvc := service.NewKnowledgeService(knowledgeRepo, sc)
	integritySvc := service.NewIntegrityService(ticketRepo, messageRepo, viewRepo, userRepo)

	taskRunner.Registry().Register(tasks.NewIntegrityRepairTask(integritySvc, cfg.Ticket.IntegritySchedule))
	if err := taskRunner.Start(); err != nil {
		return err
	}

	handlers := api.NewHandlers(ticketSvc, aiSvc, relevanceSvc, knowledgeSvc, integritySvc, userRepo)
	router := api.NewRouter(handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Printf("Received %s, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	cancel()
	taskRunner.Stop()
	return nil
}
