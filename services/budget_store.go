package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// ErrNotFound is returned when a project or import does not exist.
var ErrNotFound = errors.New("not found")

// BudgetImport describes one committed estimate import.
type BudgetImport struct {
	ID           string    `json:"id"`
	ImportNo     int       `json:"import_no"`
	FileName     string    `json:"file_name"`
	SheetCount   int       `json:"sheet_count"`
	RowCount     int       `json:"row_count"`
	EmptyRows    int       `json:"empty_rows"`
	MismatchRows int       `json:"mismatch_rows"`
	GrandTotal   float64   `json:"grand_total"`
	Created      time.Time `json:"created"`
}

// FindProject returns the project record or ErrNotFound.
func FindProject(app core.App, projectID string) (*core.Record, error) {
	project, err := app.FindRecordById("projects", projectID)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", projectID, ErrNotFound)
	}
	return project, nil
}

// CommitBudgetImport stores one reconciled import and all of its lines in
// a single transaction and returns the new import's ID.
func CommitBudgetImport(app core.App, projectID, fileName string, res Result) (string, error) {
	if _, err := FindProject(app, projectID); err != nil {
		return "", err
	}

	importsCol, err := app.FindCollectionByNameOrId("estimate_imports")
	if err != nil {
		return "", fmt.Errorf("find estimate_imports collection: %w", err)
	}
	linesCol, err := app.FindCollectionByNameOrId("budget_lines")
	if err != nil {
		return "", fmt.Errorf("find budget_lines collection: %w", err)
	}

	var importID string
	err = app.RunInTransaction(func(txApp core.App) error {
		latest, err := txApp.FindRecordsByFilter(
			importsCol,
			"project = {:projectId}",
			"-import_no",
			1, 0,
			map[string]any{"projectId": projectID},
		)
		if err != nil {
			return fmt.Errorf("query latest import: %w", err)
		}
		importNo := 1
		if len(latest) > 0 {
			importNo = latest[0].GetInt("import_no") + 1
		}

		imp := core.NewRecord(importsCol)
		imp.Set("project", projectID)
		imp.Set("file_name", fileName)
		imp.Set("import_no", importNo)
		imp.Set("sheet_count", len(res.Sheets))
		imp.Set("row_count", res.Stats.TotalRows)
		imp.Set("empty_rows", res.Stats.EmptyRows)
		imp.Set("mismatch_rows", res.Stats.MismatchRows)
		imp.Set("grand_total", res.Summary.GrandTotal)
		if err := txApp.Save(imp); err != nil {
			return fmt.Errorf("save import: %w", err)
		}

		for i, line := range res.Rows {
			record := core.NewRecord(linesCol)
			record.Set("project", projectID)
			record.Set("estimate_import", imp.Id)
			record.Set("sort_order", i)
			setLineFields(record, line)
			if err := txApp.Save(record); err != nil {
				return fmt.Errorf("save line %d (sheet %q row %d): %w", i+1, line.SheetName, line.RowNo, err)
			}
		}

		importID = imp.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	return importID, nil
}

// ListBudgetImports returns a project's imports, oldest first.
func ListBudgetImports(app core.App, projectID string) ([]BudgetImport, error) {
	records, err := app.FindRecordsByFilter(
		"estimate_imports",
		"project = {:projectId}",
		"import_no",
		0, 0,
		map[string]any{"projectId": projectID},
	)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}

	imports := make([]BudgetImport, 0, len(records))
	for _, r := range records {
		imports = append(imports, BudgetImport{
			ID:           r.Id,
			ImportNo:     r.GetInt("import_no"),
			FileName:     r.GetString("file_name"),
			SheetCount:   r.GetInt("sheet_count"),
			RowCount:     r.GetInt("row_count"),
			EmptyRows:    r.GetInt("empty_rows"),
			MismatchRows: r.GetInt("mismatch_rows"),
			GrandTotal:   r.GetFloat("grand_total"),
			Created:      r.GetDateTime("created").Time(),
		})
	}
	return imports, nil
}

// LoadBudgetLines returns every stored line of a project, ordered by import
// and then by position within the import.
func LoadBudgetLines(app core.App, projectID string) ([]BudgetLine, error) {
	if _, err := FindProject(app, projectID); err != nil {
		return nil, err
	}

	imports, err := ListBudgetImports(app, projectID)
	if err != nil {
		return nil, err
	}

	lines := []BudgetLine{}
	for _, imp := range imports {
		records, err := app.FindRecordsByFilter(
			"budget_lines",
			"estimate_import = {:importId}",
			"sort_order",
			0, 0,
			map[string]any{"importId": imp.ID},
		)
		if err != nil {
			return nil, fmt.Errorf("query lines of import %s: %w", imp.ID, err)
		}
		for _, r := range records {
			lines = append(lines, lineFromRecord(r))
		}
	}
	return lines, nil
}

// DeleteBudgetImport removes an import and, through cascade, its lines.
func DeleteBudgetImport(app core.App, projectID, importID string) error {
	imp, err := app.FindRecordById("estimate_imports", importID)
	if err != nil || imp.GetString("project") != projectID {
		return fmt.Errorf("import %q: %w", importID, ErrNotFound)
	}
	if err := app.Delete(imp); err != nil {
		return fmt.Errorf("delete import: %w", err)
	}
	return nil
}

func setLineFields(record *core.Record, line BudgetLine) {
	record.Set("sheet_name", line.SheetName)
	record.Set("row_no", line.RowNo)
	record.Set("name", line.Name)
	record.Set("breakdown", line.Breakdown)
	record.Set("unit", line.Unit)
	record.Set("note", line.Note)
	record.Set("category", string(line.Category))
	record.Set("amount_mismatch", line.AmountMismatch)

	derived := make([]string, 0, len(line.Derived))
	for _, d := range line.Derived {
		derived = append(derived, string(d))
	}
	record.Set("derived", strings.Join(derived, ","))

	var missing []string
	for _, n := range lineNumbers(&line) {
		if *n.value == nil {
			missing = append(missing, string(n.field))
			record.Set(string(n.field), 0)
			continue
		}
		record.Set(string(n.field), **n.value)
	}
	record.Set("missing", strings.Join(missing, ","))
}

func lineFromRecord(r *core.Record) BudgetLine {
	line := BudgetLine{
		RawRow: RawRow{
			SheetName: r.GetString("sheet_name"),
			RowNo:     r.GetInt("row_no"),
			Name:      r.GetString("name"),
			Breakdown: r.GetString("breakdown"),
			Unit:      r.GetString("unit"),
			Note:      r.GetString("note"),
		},
		Category:       Category(r.GetString("category")),
		Derived:        []DerivedField{},
		AmountMismatch: r.GetBool("amount_mismatch"),
	}

	for _, d := range splitList(r.GetString("derived")) {
		line.Derived = append(line.Derived, DerivedField(d))
	}

	missing := make(map[string]bool)
	for _, m := range splitList(r.GetString("missing")) {
		missing[m] = true
	}
	for _, n := range lineNumbers(&line) {
		if missing[string(n.field)] {
			continue
		}
		*n.value = Float(r.GetFloat(string(n.field)))
	}
	return line
}

// lineNumbers pairs each numeric field of a line with its storage name.
func lineNumbers(line *BudgetLine) []struct {
	field DerivedField
	value **float64
} {
	return []struct {
		field DerivedField
		value **float64
	}{
		{DerivedQuantity, &line.Quantity},
		{DerivedUnitPrice, &line.UnitPrice},
		{DerivedAmount, &line.Amount},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
