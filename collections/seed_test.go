package collections_test

import (
	"testing"

	"budgetledger/collections"
	"budgetledger/services"
	"budgetledger/testhelpers"

	"go.uber.org/zap"
)

func TestSeed_CreatesData(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app, zap.NewNop()); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	projectsCol, _ := app.FindCollectionByNameOrId("projects")
	projects, err := app.FindAllRecords(projectsCol)
	if err != nil {
		t.Fatalf("query projects error: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	if projects[0].GetString("name") != "サンプル改修工事" {
		t.Errorf("project name = %q, want %q", projects[0].GetString("name"), "サンプル改修工事")
	}

	imports, err := services.ListBudgetImports(app, projects[0].Id)
	if err != nil {
		t.Fatalf("ListBudgetImports: %v", err)
	}
	if len(imports) != 1 {
		t.Fatalf("expected 1 import, got %d", len(imports))
	}
	if imports[0].GrandTotal != 2825600 {
		t.Errorf("grand_total = %v, want 2825600", imports[0].GrandTotal)
	}

	lines, err := services.LoadBudgetLines(app, projects[0].Id)
	if err != nil {
		t.Fatalf("LoadBudgetLines: %v", err)
	}
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}
	summary := services.BuildSummary(lines)
	if summary.GrandTotal != imports[0].GrandTotal {
		t.Errorf("line total %v does not match import total %v", summary.GrandTotal, imports[0].GrandTotal)
	}
}

// TestSeed_LinesMatchReconciler checks that the seeded data is what the
// reconciler itself would produce for the same rows.
func TestSeed_LinesMatchReconciler(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	if err := collections.Seed(app, zap.NewNop()); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	projectsCol, _ := app.FindCollectionByNameOrId("projects")
	projects, _ := app.FindAllRecords(projectsCol)
	lines, err := services.LoadBudgetLines(app, projects[0].Id)
	if err != nil {
		t.Fatalf("LoadBudgetLines: %v", err)
	}

	r := services.NewReconciler(nil, services.DefaultReconcileOptions())
	for _, l := range lines {
		raw := l.ToRawRow()
		for _, d := range l.Derived {
			switch d {
			case services.DerivedQuantity:
				raw.Quantity = nil
			case services.DerivedUnitPrice:
				raw.UnitPrice = nil
			case services.DerivedAmount:
				raw.Amount = nil
			}
		}

		got := r.ReconcileRow(raw)
		if got.Category != l.Category {
			t.Errorf("%s: category = %s, seeded %s", l.Name, got.Category, l.Category)
		}
		if !equalPtr(got.Quantity, l.Quantity) || !equalPtr(got.UnitPrice, l.UnitPrice) || !equalPtr(got.Amount, l.Amount) {
			t.Errorf("%s: reconciled numbers differ from seed", l.Name)
		}
		if len(got.Derived) != len(l.Derived) {
			t.Errorf("%s: derived = %v, seeded %v", l.Name, got.Derived, l.Derived)
		}
	}
}

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func TestSeed_Idempotent(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	if err := collections.Seed(app, zap.NewNop()); err != nil {
		t.Fatalf("first Seed() error: %v", err)
	}
	if err := collections.Seed(app, zap.NewNop()); err != nil {
		t.Fatalf("second Seed() error: %v", err)
	}

	projectsCol, _ := app.FindCollectionByNameOrId("projects")
	projects, _ := app.FindAllRecords(projectsCol)
	if len(projects) != 1 {
		t.Errorf("expected 1 project after idempotent seed, got %d", len(projects))
	}

	linesCol, _ := app.FindCollectionByNameOrId("budget_lines")
	lines, _ := app.FindAllRecords(linesCol)
	if len(lines) != 7 {
		t.Errorf("expected 7 budget lines after idempotent seed, got %d", len(lines))
	}
}

func TestSeed_SkipsWhenDataExists(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	testhelpers.CreateTestProject(t, app, "Existing Project")

	if err := collections.Seed(app, zap.NewNop()); err != nil {
		t.Fatalf("Seed() error: %v", err)
	}

	projectsCol, _ := app.FindCollectionByNameOrId("projects")
	projects, _ := app.FindAllRecords(projectsCol)
	if len(projects) != 1 {
		t.Errorf("expected 1 project (pre-existing only), got %d", len(projects))
	}
	if projects[0].GetString("name") != "Existing Project" {
		t.Errorf("expected pre-existing project, got %q", projects[0].GetString("name"))
	}
}
