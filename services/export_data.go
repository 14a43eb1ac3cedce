package services

// ExportRow is one budget line in an export.
type ExportRow struct {
	Index          int
	SheetName      string
	Name           string
	Breakdown      string
	Quantity       *float64
	Unit           string
	UnitPrice      *float64
	Amount         *float64
	Category       Category
	Note           string
	Derived        []DerivedField
	AmountMismatch bool
}

// ExportData holds everything the Excel and PDF budget exports render.
type ExportData struct {
	Title       string
	ProjectName string
	ClientName  string
	CreatedDate string
	Rows        []ExportRow
	Summary     Summary
}

// BuildExportData numbers lines in order and totals them.
func BuildExportData(title, projectName, clientName, createdDate string, lines []BudgetLine) ExportData {
	data := ExportData{
		Title:       title,
		ProjectName: projectName,
		ClientName:  clientName,
		CreatedDate: createdDate,
		Rows:        make([]ExportRow, 0, len(lines)),
		Summary:     BuildSummary(lines),
	}
	for i, l := range lines {
		data.Rows = append(data.Rows, ExportRow{
			Index:          i + 1,
			SheetName:      l.SheetName,
			Name:           l.Name,
			Breakdown:      l.Breakdown,
			Quantity:       l.Quantity,
			Unit:           l.Unit,
			UnitPrice:      l.UnitPrice,
			Amount:         l.Amount,
			Category:       l.Category,
			Note:           l.Note,
			Derived:        l.Derived,
			AmountMismatch: l.AmountMismatch,
		})
	}
	return data
}

func (r ExportRow) isDerived(f DerivedField) bool {
	for _, d := range r.Derived {
		if d == f {
			return true
		}
	}
	return false
}
