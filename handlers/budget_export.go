package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"budgetledger/config"
	"budgetledger/services"
)

// buildBudgetExportData loads a project's budget lines into an ExportData.
func buildBudgetExportData(app *pocketbase.PocketBase, projectID string) (services.ExportData, error) {
	project, err := services.FindProject(app, projectID)
	if err != nil {
		return services.ExportData{}, err
	}

	lines, err := services.LoadBudgetLines(app, projectID)
	if err != nil {
		return services.ExportData{}, err
	}

	return services.BuildExportData(
		"実行予算書",
		project.GetString("name"),
		project.GetString("client_name"),
		time.Now().Format("2006-01-02"),
		lines,
	), nil
}

// sanitizeFilename removes characters that are unsafe for filenames.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "-")
	s = strings.ReplaceAll(s, "\"", "")
	return s
}

// attachment sets download headers. The plain filename carries only the
// project ID; filename* carries the project name for clients that decode it.
func attachment(e *core.RequestEvent, contentType, projectID, projectName, ext string) {
	date := time.Now().Format("20060102")
	plain := fmt.Sprintf("budget_%s_%s.%s", sanitizeFilename(projectID), date, ext)
	named := fmt.Sprintf("実行予算_%s_%s.%s", sanitizeFilename(projectName), date, ext)

	e.Response.Header().Set("Content-Type", contentType)
	e.Response.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, plain, url.PathEscape(named)))
}

// HandleBudgetExportExcel returns a handler that generates and downloads the
// project's budget as an Excel file.
func HandleBudgetExportExcel(app *pocketbase.PocketBase, logger *zap.Logger) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")

		data, err := buildBudgetExportData(app, projectID)
		if err != nil {
			return respondError(e, logger, "export_excel", err)
		}

		xlsxBytes, err := services.GenerateExcel(data)
		if err != nil {
			return respondError(e, logger, "export_excel", fmt.Errorf("generate: %w", err))
		}

		attachment(e, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", projectID, data.ProjectName, "xlsx")
		e.Response.WriteHeader(http.StatusOK)
		_, err = e.Response.Write(xlsxBytes)
		return err
	}
}

// HandleBudgetExportPDF returns a handler that generates and downloads the
// project's budget summary as a PDF file.
func HandleBudgetExportPDF(app *pocketbase.PocketBase, cfg *config.Config, logger *zap.Logger) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		projectID := e.Request.PathValue("projectId")

		data, err := buildBudgetExportData(app, projectID)
		if err != nil {
			return respondError(e, logger, "export_pdf", err)
		}

		pdfBytes, err := services.GeneratePDF(data, services.PDFOptions{FontPath: cfg.PDFFont})
		if err != nil {
			return respondError(e, logger, "export_pdf", fmt.Errorf("generate: %w", err))
		}

		attachment(e, "application/pdf", projectID, data.ProjectName, "pdf")
		e.Response.WriteHeader(http.StatusOK)
		_, err = e.Response.Write(pdfBytes)
		return err
	}
}
