package main

import (
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"budgetledger/collections"
	"budgetledger/commands"
	"budgetledger/config"
	"budgetledger/handlers"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(config.PathFromEnv())
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	level := zap.NewAtomicLevelAt(cfg.Level())
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = level
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	app := pocketbase.New()

	var verbose bool
	app.RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cobra.OnInitialize(func() {
		if verbose {
			level.SetLevel(zap.DebugLevel)
		}
	})
	app.RootCmd.AddCommand(commands.NewReconcileCommand(cfg, logger))

	// Create collections and seed data on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		if err := collections.Setup(app, logger); err != nil {
			return err
		}
		if cfg.SeedDemo {
			if err := collections.Seed(app, logger); err != nil {
				logger.Warn("seed data failed", zap.Error(err))
			}
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.BindFunc(handlers.RequestLogger(logger))

		// ── Stateless reconciliation ─────────────────────────────
		se.Router.POST("/api/estimates/reconcile", handlers.HandleEstimateReconcile(cfg, logger))
		se.Router.POST("/api/estimates/reconcile/json", handlers.HandleEstimateReconcileJSON(cfg, logger))
		se.Router.GET("/api/estimates/template", handlers.HandleEstimateTemplate(logger))

		// ── Projects ─────────────────────────────────────────────
		se.Router.GET("/api/projects", handlers.HandleProjectList(app, logger))
		se.Router.POST("/api/projects", handlers.HandleProjectCreate(app, logger))

		// ── Project budget ledger ────────────────────────────────
		se.Router.POST("/api/projects/{projectId}/budget/import", handlers.HandleBudgetImport(app, cfg, logger))
		se.Router.GET("/api/projects/{projectId}/budget", handlers.HandleBudgetView(app, logger))
		se.Router.DELETE("/api/projects/{projectId}/budget/imports/{importId}", handlers.HandleBudgetImportDelete(app, logger))
		se.Router.GET("/api/projects/{projectId}/budget/export/excel", handlers.HandleBudgetExportExcel(app, logger))
		se.Router.GET("/api/projects/{projectId}/budget/export/pdf", handlers.HandleBudgetExportPDF(app, cfg, logger))

		se.Router.GET("/healthz", func(e *core.RequestEvent) error {
			return e.JSON(http.StatusOK, map[string]string{"status": "ok"})
		})

		return se.Next()
	})

	if err := app.Start(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
