package collections

import (
	"fmt"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"
)

// ProjectStatuses are the allowed values of projects.status.
var ProjectStatuses = []string{"active", "completed", "archived"}

// LineCategories are the allowed values of budget_lines.category and must
// match services.Categories.
var LineCategories = []string{"labor", "subcontract", "material", "machine", "expense"}

// Setup programmatically creates/ensures the projects, estimate_imports and
// budget_lines collections exist.
func Setup(app *pocketbase.PocketBase, logger *zap.Logger) error {
	projects, err := ensureCollection(app, logger, "projects", func(c *core.Collection) {
		c.Fields.Add(&core.TextField{Name: "name", Required: true, Max: 200})
		c.Fields.Add(&core.TextField{Name: "client_name", Required: false})
		c.Fields.Add(&core.TextField{Name: "location", Required: false})
		c.Fields.Add(&core.SelectField{
			Name:      "status",
			Required:  true,
			Values:    ProjectStatuses,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
	if err != nil {
		return err
	}

	imports, err := ensureCollection(app, logger, "estimate_imports", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.TextField{Name: "file_name", Required: true})
		c.Fields.Add(&core.NumberField{Name: "import_no", OnlyInt: true})
		c.Fields.Add(&core.NumberField{Name: "sheet_count", OnlyInt: true})
		c.Fields.Add(&core.NumberField{Name: "row_count", OnlyInt: true})
		c.Fields.Add(&core.NumberField{Name: "empty_rows", OnlyInt: true})
		c.Fields.Add(&core.NumberField{Name: "mismatch_rows", OnlyInt: true})
		c.Fields.Add(&core.NumberField{Name: "grand_total"})
		c.Fields.Add(&core.AutodateField{Name: "created", OnCreate: true})
		c.Fields.Add(&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true})
	})
	if err != nil {
		return err
	}

	_, err = ensureCollection(app, logger, "budget_lines", func(c *core.Collection) {
		c.Fields.Add(&core.RelationField{
			Name:          "project",
			Required:      true,
			CollectionId:  projects.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		c.Fields.Add(&core.RelationField{
			Name:          "estimate_import",
			Required:      true,
			CollectionId:  imports.Id,
			CascadeDelete: true,
			MaxSelect:     1,
		})
		// Numbers are not Required: pocketbase treats zero as blank.
		c.Fields.Add(&core.NumberField{Name: "sort_order", OnlyInt: true})
		c.Fields.Add(&core.TextField{Name: "sheet_name"})
		c.Fields.Add(&core.NumberField{Name: "row_no", OnlyInt: true})
		c.Fields.Add(&core.TextField{Name: "name"})
		c.Fields.Add(&core.TextField{Name: "breakdown"})
		c.Fields.Add(&core.NumberField{Name: "quantity"})
		c.Fields.Add(&core.TextField{Name: "unit"})
		c.Fields.Add(&core.NumberField{Name: "unit_price"})
		c.Fields.Add(&core.NumberField{Name: "amount"})
		c.Fields.Add(&core.TextField{Name: "note"})
		c.Fields.Add(&core.SelectField{
			Name:      "category",
			Required:  true,
			Values:    LineCategories,
			MaxSelect: 1,
		})
		c.Fields.Add(&core.TextField{Name: "derived"})
		c.Fields.Add(&core.TextField{Name: "missing"})
		c.Fields.Add(&core.BoolField{Name: "amount_mismatch"})
		c.AddIndex("idx_budget_lines_project", false, "project, estimate_import, sort_order", "")
	})
	return err
}

// ensureCollection checks if a collection already exists by name. If it does,
// the existing collection is returned. Otherwise a new base collection is
// created, the addFields callback is invoked to populate its fields, and the
// collection is saved.
func ensureCollection(app *pocketbase.PocketBase, logger *zap.Logger, name string, addFields func(*core.Collection)) (*core.Collection, error) {
	existing, err := app.FindCollectionByNameOrId(name)
	if err == nil && existing != nil {
		logger.Debug("collection already exists", zap.String("collection", name))
		return existing, nil
	}

	collection := core.NewBaseCollection(name)
	addFields(collection)

	if err := app.Save(collection); err != nil {
		return nil, fmt.Errorf("create collection %q: %w", name, err)
	}

	logger.Info("collection created", zap.String("collection", name), zap.String("id", collection.Id))
	return collection, nil
}
