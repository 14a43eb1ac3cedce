package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"budgetledger/config"
	"budgetledger/services"
)

// HandleEstimateReconcile parses an uploaded estimate and returns the
// reconciled lines without storing anything.
func HandleEstimateReconcile(cfg *config.Config, logger *zap.Logger) func(*core.RequestEvent) error {
	reconciler := cfg.Reconciler()
	return func(e *core.RequestEvent) error {
		fileName, sheets, err := parseUpload(e, cfg.MaxUploadBytes(), cfg.ParseOptions())
		if err != nil {
			return respondError(e, logger, "estimate_reconcile", err)
		}

		res, err := reconciler.Reconcile(sheets)
		if err != nil {
			return respondError(e, logger, "estimate_reconcile", err)
		}

		logger.Info("estimate reconciled",
			zap.String("file", fileName),
			zap.Int("rows", res.Stats.TotalRows),
			zap.Int("mismatches", res.Stats.MismatchRows),
		)
		return e.JSON(http.StatusOK, res)
	}
}

// HandleEstimateReconcileJSON reconciles rows posted as JSON, either as
// {"sheets": [...]} or as a bare array of rows.
func HandleEstimateReconcileJSON(cfg *config.Config, logger *zap.Logger) func(*core.RequestEvent) error {
	reconciler := cfg.Reconciler()
	return func(e *core.RequestEvent) error {
		body := http.MaxBytesReader(e.Response, e.Request.Body, cfg.MaxUploadBytes())
		sheets, err := services.DecodeSheets(body)
		if err != nil {
			return respondError(e, logger, "estimate_reconcile_json", err)
		}

		res, err := reconciler.Reconcile(sheets)
		if err != nil {
			return respondError(e, logger, "estimate_reconcile_json", err)
		}
		return e.JSON(http.StatusOK, res)
	}
}

// HandleEstimateTemplate downloads a blank estimate workbook whose header row
// the reconcile endpoints recognise.
func HandleEstimateTemplate(logger *zap.Logger) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		xlsxBytes, err := services.GenerateEstimateTemplate()
		if err != nil {
			return respondError(e, logger, "estimate_template", err)
		}

		e.Response.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		e.Response.Header().Set("Content-Disposition", `attachment; filename="estimate_template.xlsx"`)
		e.Response.WriteHeader(http.StatusOK)
		_, err = e.Response.Write(xlsxBytes)
		return err
	}
}
