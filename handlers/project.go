package handlers

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"budgetledger/collections"
)

type projectJSON struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ClientName string    `json:"client_name"`
	Location   string    `json:"location"`
	Status     string    `json:"status"`
	Created    time.Time `json:"created"`
}

type projectInput struct {
	Name       string `json:"name" form:"name"`
	ClientName string `json:"client_name" form:"client_name"`
	Location   string `json:"location" form:"location"`
	Status     string `json:"status" form:"status"`
}

func projectFromRecord(r *core.Record) projectJSON {
	return projectJSON{
		ID:         r.Id,
		Name:       r.GetString("name"),
		ClientName: r.GetString("client_name"),
		Location:   r.GetString("location"),
		Status:     r.GetString("status"),
		Created:    r.GetDateTime("created").Time(),
	}
}

// HandleProjectList returns all projects ordered by name.
func HandleProjectList(app *pocketbase.PocketBase, logger *zap.Logger) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		records, err := app.FindRecordsByFilter("projects", "id != ''", "name", 0, 0)
		if err != nil {
			return respondError(e, logger, "project_list", err)
		}

		projects := make([]projectJSON, 0, len(records))
		for _, r := range records {
			projects = append(projects, projectFromRecord(r))
		}
		return e.JSON(http.StatusOK, map[string]any{"projects": projects})
	}
}

// HandleProjectCreate validates and stores a new project.
func HandleProjectCreate(app *pocketbase.PocketBase, logger *zap.Logger) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		var in projectInput
		if err := e.BindBody(&in); err != nil {
			return ErrorJSON(e, http.StatusBadRequest, "Invalid request body")
		}

		name := strings.TrimSpace(in.Name)
		status := strings.TrimSpace(in.Status)
		if status == "" {
			status = "active"
		}

		fieldErrors := make(map[string]string)
		if name == "" {
			fieldErrors["name"] = "Project name is required"
		}
		if !slices.Contains(collections.ProjectStatuses, status) {
			fieldErrors["status"] = "Status must be one of " + strings.Join(collections.ProjectStatuses, ", ")
		}
		if name != "" {
			existing, _ := app.FindRecordsByFilter(
				"projects",
				"name = {:name}",
				"", 1, 0,
				map[string]any{"name": name},
			)
			if len(existing) > 0 {
				fieldErrors["name"] = "A project with this name already exists"
			}
		}
		if len(fieldErrors) > 0 {
			return e.JSON(http.StatusBadRequest, map[string]any{
				"error":  "Please fix the errors below",
				"fields": fieldErrors,
			})
		}

		projectsCol, err := app.FindCollectionByNameOrId("projects")
		if err != nil {
			return respondError(e, logger, "project_create", err)
		}

		record := core.NewRecord(projectsCol)
		record.Set("name", name)
		record.Set("client_name", strings.TrimSpace(in.ClientName))
		record.Set("location", strings.TrimSpace(in.Location))
		record.Set("status", status)

		if err := app.Save(record); err != nil {
			return respondError(e, logger, "project_create", err)
		}

		logger.Info("project created", zap.String("project", record.Id), zap.String("name", name))
		return e.JSON(http.StatusCreated, projectFromRecord(record))
	}
}
