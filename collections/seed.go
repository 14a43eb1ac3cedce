package collections

import (
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"
)

// ── Definition structs ───────────────────────────────────────────────────

type lineDef struct {
	sheetName string
	rowNo     int
	name      string
	breakdown string
	quantity  *float64
	unit      string
	unitPrice *float64
	amount    *float64
	category  string
	derived   []string
}

func num(v float64) *float64 { return &v }

// demoLines is an already reconciled estimate: every derived value below is
// what the reconciler produces for the same sheet.
var demoLines = []lineDef{
	{"内訳明細書", 4, "生コンクリート", "18-8-20 BB", num(42.5), "m3", num(16800), num(714000), "material", []string{"amount"}},
	{"内訳明細書", 5, "鉄筋 D13", "SD295A", num(3.2), "t", num(128000), num(409600), "material", nil},
	{"内訳明細書", 6, "型枠工事 外注", "", num(1), "式", num(850000), num(850000), "subcontract", []string{"unit_price"}},
	{"内訳明細書", 7, "普通作業員", "", num(24), "人", num(22000), num(528000), "labor", []string{"quantity"}},
	{"内訳明細書", 8, "バックホウ 0.45m3 損料", "", num(6), "日", num(38000), num(228000), "machine", nil},
	{"内訳明細書", 9, "現場事務所 交通費", "", nil, "", nil, num(96000), "expense", nil},
	{"内訳明細書", 10, "共通仮設", "", nil, "", nil, nil, "expense", nil},
}

// Seed inserts one demo project with a reconciled estimate import. It is
// safe to call on every startup because it returns early if any project
// records already exist.
func Seed(app *pocketbase.PocketBase, logger *zap.Logger) error {
	// ── idempotency: skip if projects already exist ──────────────────
	projectsCol, err := app.FindCollectionByNameOrId("projects")
	if err != nil {
		return fmt.Errorf("seed: could not find projects collection: %w", err)
	}
	existing, err := app.FindAllRecords(projectsCol)
	if err != nil {
		return fmt.Errorf("seed: could not query projects: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	logger.Info("seeding demo project")

	importsCol, err := app.FindCollectionByNameOrId("estimate_imports")
	if err != nil {
		return fmt.Errorf("seed: could not find estimate_imports collection: %w", err)
	}
	linesCol, err := app.FindCollectionByNameOrId("budget_lines")
	if err != nil {
		return fmt.Errorf("seed: could not find budget_lines collection: %w", err)
	}

	return app.RunInTransaction(func(txApp core.App) error {
		project := core.NewRecord(projectsCol)
		project.Set("name", "サンプル改修工事")
		project.Set("client_name", "サンプル市")
		project.Set("location", "東京都")
		project.Set("status", "active")
		if err := txApp.Save(project); err != nil {
			return fmt.Errorf("seed: save project: %w", err)
		}

		var total float64
		empty := 0
		for _, l := range demoLines {
			if l.amount != nil {
				total += *l.amount
			}
			if l.quantity == nil && l.unitPrice == nil && l.amount == nil {
				empty++
			}
		}

		imp := core.NewRecord(importsCol)
		imp.Set("project", project.Id)
		imp.Set("file_name", "sample_estimate.xlsx")
		imp.Set("import_no", 1)
		imp.Set("sheet_count", 1)
		imp.Set("row_count", len(demoLines))
		imp.Set("empty_rows", empty)
		imp.Set("mismatch_rows", 0)
		imp.Set("grand_total", total)
		if err := txApp.Save(imp); err != nil {
			return fmt.Errorf("seed: save import: %w", err)
		}

		for i, l := range demoLines {
			r := core.NewRecord(linesCol)
			r.Set("project", project.Id)
			r.Set("estimate_import", imp.Id)
			r.Set("sort_order", i)
			r.Set("sheet_name", l.sheetName)
			r.Set("row_no", l.rowNo)
			r.Set("name", l.name)
			r.Set("breakdown", l.breakdown)
			r.Set("unit", l.unit)
			r.Set("category", l.category)
			r.Set("derived", strings.Join(l.derived, ","))

			var missing []string
			for _, n := range []struct {
				field string
				value *float64
			}{
				{"quantity", l.quantity},
				{"unit_price", l.unitPrice},
				{"amount", l.amount},
			} {
				if n.value == nil {
					missing = append(missing, n.field)
					continue
				}
				r.Set(n.field, *n.value)
			}
			r.Set("missing", strings.Join(missing, ","))

			if err := txApp.Save(r); err != nil {
				return fmt.Errorf("seed: save budget line %q: %w", l.name, err)
			}
		}

		logger.Info("demo project seeded",
			zap.String("project", project.GetString("name")),
			zap.Int("lines", len(demoLines)),
		)
		return nil
	})
}
