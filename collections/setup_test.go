package collections_test

import (
	"slices"
	"testing"

	"budgetledger/collections"
	"budgetledger/services"
	"budgetledger/testhelpers"

	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// expectedCollections is the full list of collections that Setup() must create.
var expectedCollections = []string{
	"projects",
	"estimate_imports",
	"budget_lines",
}

func TestSetup_AllCollectionsExist(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q not found after Setup(): %v", name, err)
			continue
		}
		if col.Name != name {
			t.Errorf("expected collection name %q, got %q", name, col.Name)
		}
	}
}

func TestSetup_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t) // Setup() already called once via NewTestApp

	// Collect IDs from first run
	ids := make(map[string]string)
	for _, name := range expectedCollections {
		col, _ := app.FindCollectionByNameOrId(name)
		ids[name] = col.Id
	}

	// Run Setup() again
	if err := collections.Setup(app, zap.NewNop()); err != nil {
		t.Fatalf("second Setup() failed: %v", err)
	}

	// IDs should not change
	for _, name := range expectedCollections {
		col, err := app.FindCollectionByNameOrId(name)
		if err != nil {
			t.Errorf("collection %q missing after second Setup(): %v", name, err)
			continue
		}
		if col.Id != ids[name] {
			t.Errorf("collection %q id changed after second Setup(): %s -> %s", name, ids[name], col.Id)
		}
	}
}

func TestSetup_ProjectsFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("projects")

	for _, f := range []string{"name", "client_name", "location", "status", "created", "updated"} {
		if col.Fields.GetByName(f) == nil {
			t.Errorf("projects: missing field %q", f)
		}
	}

	statusField := col.Fields.GetByName("status")
	if sf, ok := statusField.(*core.SelectField); ok {
		if !slices.Equal(sf.Values, []string{"active", "completed", "archived"}) {
			t.Errorf("unexpected status values: %v", sf.Values)
		}
	} else {
		t.Errorf("status field is not a SelectField")
	}
}

func TestSetup_EstimateImportsFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("estimate_imports")

	fields := []string{"project", "file_name", "import_no", "sheet_count", "row_count", "empty_rows", "mismatch_rows", "grand_total", "created"}
	for _, f := range fields {
		if col.Fields.GetByName(f) == nil {
			t.Errorf("estimate_imports: missing field %q", f)
		}
	}

	projectField := col.Fields.GetByName("project")
	if rf, ok := projectField.(*core.RelationField); ok {
		if !rf.CascadeDelete {
			t.Error("estimate_imports.project: expected CascadeDelete=true")
		}
		if rf.MaxSelect != 1 {
			t.Errorf("estimate_imports.project: expected MaxSelect=1, got %d", rf.MaxSelect)
		}
	} else {
		t.Errorf("estimate_imports.project is not a RelationField")
	}
}

func TestSetup_BudgetLinesFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	col, _ := app.FindCollectionByNameOrId("budget_lines")

	fields := []string{
		"project", "estimate_import", "sort_order", "sheet_name", "row_no", "name",
		"breakdown", "quantity", "unit", "unit_price", "amount", "note",
		"category", "derived", "missing", "amount_mismatch",
	}
	for _, f := range fields {
		if col.Fields.GetByName(f) == nil {
			t.Errorf("budget_lines: missing field %q", f)
		}
	}

	for _, rel := range []string{"project", "estimate_import"} {
		if rf, ok := col.Fields.GetByName(rel).(*core.RelationField); ok {
			if !rf.CascadeDelete {
				t.Errorf("budget_lines.%s: expected CascadeDelete=true", rel)
			}
		} else {
			t.Errorf("budget_lines.%s is not a RelationField", rel)
		}
	}

	// Numeric fields must accept zero and negative values.
	for _, f := range []string{"quantity", "unit_price", "amount"} {
		if nf, ok := col.Fields.GetByName(f).(*core.NumberField); ok {
			if nf.Required {
				t.Errorf("budget_lines.%s must not be required", f)
			}
			if nf.Min != nil {
				t.Errorf("budget_lines.%s must not have a minimum", f)
			}
		}
	}
}

func TestSetup_CategoryValuesMatchServices(t *testing.T) {
	var want []string
	for _, c := range services.Categories() {
		want = append(want, string(c))
	}
	if !slices.Equal(collections.LineCategories, want) {
		t.Errorf("LineCategories = %v, services.Categories = %v", collections.LineCategories, want)
	}
}

func TestSetup_LogsExistingCollections(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	obsCore, logs := observer.New(zapcore.DebugLevel)
	if err := collections.Setup(app, zap.New(obsCore)); err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}

	entries := logs.FilterMessage("collection already exists").All()
	if len(entries) != len(expectedCollections) {
		t.Fatalf("expected %d log entries, got %d", len(expectedCollections), len(entries))
	}
	for i, name := range expectedCollections {
		if got := entries[i].ContextMap()["collection"]; got != name {
			t.Errorf("entry %d collection = %v, want %q", i, got, name)
		}
	}
	if n := logs.FilterMessage("collection created").Len(); n != 0 {
		t.Errorf("expected no collections created on rerun, got %d", n)
	}
}
