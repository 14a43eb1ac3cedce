package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"budgetledger/config"
	"budgetledger/services"
)

type budgetImportResponse struct {
	ImportID string `json:"import_id"`
	services.Result
}

type budgetViewResponse struct {
	Project projectJSON             `json:"project"`
	Imports []services.BudgetImport `json:"imports"`
	Rows    []services.BudgetLine   `json:"rows"`
	Summary services.Summary        `json:"summary"`
	Stats   services.ImportStats    `json:"stats"`
}

// HandleBudgetImport reconciles an uploaded estimate and commits it to the
// project's budget ledger.
func HandleBudgetImport(app *pocketbase.PocketBase, cfg *config.Config, logger *zap.Logger) func(*core.RequestEvent) error {
	reconciler := cfg.Reconciler()
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		if _, err := services.FindProject(app, projectID); err != nil {
			return respondError(e, logger, "budget_import", err)
		}

		fileName, sheets, err := parseUpload(e, cfg.MaxUploadBytes(), cfg.ParseOptions())
		if err != nil {
			return respondError(e, logger, "budget_import", err)
		}

		res, err := reconciler.Reconcile(sheets)
		if err != nil {
			return respondError(e, logger, "budget_import", err)
		}

		importID, err := services.CommitBudgetImport(app, projectID, fileName, res)
		if err != nil {
			return respondError(e, logger, "budget_import", err)
		}

		logger.Info("budget import committed",
			zap.String("project", projectID),
			zap.String("import", importID),
			zap.String("file", fileName),
			zap.Int("rows", res.Stats.TotalRows),
			zap.Float64("grand_total", res.Summary.GrandTotal),
		)
		return e.JSON(http.StatusCreated, budgetImportResponse{ImportID: importID, Result: res})
	}
}

// HandleBudgetView returns every stored line of a project with its totals.
func HandleBudgetView(app *pocketbase.PocketBase, logger *zap.Logger) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		project, err := services.FindProject(app, projectID)
		if err != nil {
			return respondError(e, logger, "budget_view", err)
		}

		lines, err := services.LoadBudgetLines(app, projectID)
		if err != nil {
			return respondError(e, logger, "budget_view", err)
		}
		imports, err := services.ListBudgetImports(app, projectID)
		if err != nil {
			return respondError(e, logger, "budget_view", err)
		}

		return e.JSON(http.StatusOK, budgetViewResponse{
			Project: projectFromRecord(project),
			Imports: imports,
			Rows:    lines,
			Summary: services.BuildSummary(lines),
			Stats:   services.BuildImportStats(lines),
		})
	}
}

// HandleBudgetImportDelete removes one import and its lines.
func HandleBudgetImportDelete(app *pocketbase.PocketBase, logger *zap.Logger) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")
		importID := e.Request.PathValue("importId")

		if err := services.DeleteBudgetImport(app, projectID, importID); err != nil {
			return respondError(e, logger, "budget_import_delete", err)
		}

		logger.Info("budget import deleted", zap.String("project", projectID), zap.String("import", importID))
		return e.NoContent(http.StatusNoContent)
	}
}
